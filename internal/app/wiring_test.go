package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/aedplacement/internal/adapters/routing"
	"github.com/okian/aedplacement/internal/adapters/storage"
	service "github.com/okian/aedplacement/internal/app"
	"github.com/okian/aedplacement/internal/config"
)

func TestWiring(t *testing.T) {
	Convey("Given a data dir with token files", t, func() {
		cfg := config.New(context.Background())
		cfg.DataDir = t.TempDir()
		So(os.WriteFile(filepath.Join(cfg.DataDir, cfg.MapboxTokenFile), []byte("pk.test\n"), 0o600), ShouldBeNil)
		So(os.WriteFile(filepath.Join(cfg.DataDir, cfg.RoutingKeyFile), []byte(" AIza-test "), 0o600), ShouldBeNil)

		Convey("Then the browser config carries the trimmed token", func() {
			cc, err := service.ClientConfig(cfg)
			So(err, ShouldBeNil)
			So(cc.MapboxToken, ShouldEqual, "pk.test")
			So(cc.RadiusDefault, ShouldEqual, 300)
		})

		Convey("Then a routing client is created", func() {
			c, err := service.NewRoutingClient(cfg)
			So(err, ShouldBeNil)
			So(c, ShouldNotBeNil)
		})

		Convey("When the token files are missing", func() {
			cfg.DataDir = t.TempDir()

			_, err := service.ClientConfig(cfg)
			So(errors.Is(err, storage.ErrEmptyToken), ShouldBeTrue)

			_, err = service.NewRoutingClient(cfg)
			So(errors.Is(err, storage.ErrEmptyToken), ShouldBeTrue)
			So(errors.Is(err, routing.ErrMissingKey), ShouldBeFalse)
		})
	})
}
