package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/aedplacement/internal/config"
)

var configEnvVars = []string{
	config.EnvConfig, config.EnvDotFile,
	"AED_ADDR", "AED_BUDGET", "AED_CITIES", "AED_RESOLVE_WORKERS",
	"AED_MIN_DISTANCE", "AED_LOG_LEVEL", "AED_COVERAGE_RADIUS",
	"AED_REUSE_COST_MATRIX",
}

func clearConfigEnvVars() {
	for _, k := range configEnvVars {
		_ = os.Unsetenv(k)
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		_ = os.Setenv(config.EnvDotFile, filepath.Join(t.TempDir(), "absent.env"))
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8050")
				convey.So(cfg.Budget, convey.ShouldEqual, 20)
				convey.So(len(cfg.Cities), convey.ShouldEqual, 8)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("AED_ADDR", ":9000")
			_ = os.Setenv("AED_BUDGET", "5")
			_ = os.Setenv("AED_CITIES", "Leuven,Gent")
			_ = os.Setenv("AED_MIN_DISTANCE", "0.002")
			_ = os.Setenv("AED_REUSE_COST_MATRIX", "true")

			cfg, err := config.Load(ctx)

			convey.Convey("Then env values override defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9000")
				convey.So(cfg.Budget, convey.ShouldEqual, 5)
				convey.So(cfg.Cities, convey.ShouldResemble, []string{"Leuven", "Gent"})
				convey.So(cfg.MinDistance, convey.ShouldEqual, 0.002)
				convey.So(cfg.ReuseCostMatrix, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			path := writeFile(t, "config.yaml", `
addr: ":9090"
cities: [Brugge]
resolve_workers: 4
coverage_radius: 200
`)
			_ = os.Setenv(config.EnvConfig, path)

			cfg, err := config.Load(ctx)

			convey.Convey("Then file values replace defaults, lists included", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.Cities, convey.ShouldResemble, []string{"Brugge"})
				convey.So(cfg.ResolveWorkers, convey.ShouldEqual, 4)
				convey.So(cfg.CoverageRadius, convey.ShouldEqual, 200)
				convey.So(cfg.CardiacCodes, convey.ShouldResemble, []string{"P003", "P011", "P039"})
			})

			convey.Convey("And env still wins over the file", func() {
				_ = os.Setenv("AED_RESOLVE_WORKERS", "8")
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.ResolveWorkers, convey.ShouldEqual, 8)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
			})
		})

		convey.Convey("When a .env file is present", func() {
			path := writeFile(t, "test.env", "AED_BUDGET=7\n")
			_ = os.Setenv(config.EnvDotFile, path)

			cfg, err := config.Load(ctx)

			convey.Convey("Then its variables are applied", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Budget, convey.ShouldEqual, 7)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			_ = os.Setenv(config.EnvConfig, writeFile(t, "bad.yaml", `invalid: yaml: content: [`))

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv(config.EnvConfig, "/non/existent/file.yaml")

			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When values break their constraints", func() {
			for k, v := range map[string]string{
				"AED_ADDR":            "",
				"AED_RESOLVE_WORKERS": "0",
				"AED_LOG_LEVEL":       "loud",
				"AED_COVERAGE_RADIUS": "-5",
			} {
				clearConfigEnvVars()
				_ = os.Setenv(config.EnvDotFile, filepath.Join(t.TempDir(), "absent.env"))
				_ = os.Setenv(k, v)

				cfg, err := config.Load(ctx)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			}
		})
	})
}
