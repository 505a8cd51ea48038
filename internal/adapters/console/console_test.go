package console_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/aedplacement/internal/adapters/console"
	"github.com/okian/aedplacement/internal/domain/costmatrix"
)

func TestConfirmer(t *testing.T) {
	Convey("Given an operator at the console", t, func() {
		var out bytes.Buffer
		prompt := costmatrix.Prompt(20)

		Convey("When they answer yes", func() {
			ok, err := console.NewConfirmer(strings.NewReader("yes\n"), &out).Confirm(context.Background(), prompt)

			Convey("Then the request is approved and the prompt shown", func() {
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(out.String(), ShouldEqual, "This will initialize 20 API requests. Are you sure? (yes/no): ")
			})
		})

		Convey("When they answer yes without a newline", func() {
			ok, err := console.NewConfirmer(strings.NewReader("yes"), &out).Confirm(context.Background(), prompt)
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
		})

		Convey("When they answer yes from a Windows console", func() {
			ok, err := console.NewConfirmer(strings.NewReader("yes\r\n"), &out).Confirm(context.Background(), prompt)
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
		})

		Convey("When they answer anything else", func() {
			for _, in := range []string{"no\n", "\n", "yess\n", "sure\n", "y\n", "Yes\n", "YES\n", " yes\n"} {
				ok, err := console.NewConfirmer(strings.NewReader(in), &out).Confirm(context.Background(), prompt)
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
			}
		})

		Convey("When input is closed", func() {
			_, err := console.NewConfirmer(strings.NewReader(""), &out).Confirm(context.Background(), prompt)
			So(errors.Is(err, console.ErrNoAnswer), ShouldBeTrue)
		})

		Convey("When the context ends first", func() {
			r, w := io.Pipe()
			defer w.Close()
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
			defer cancel()

			c := console.NewConfirmer(r, &out)
			_, err := c.Confirm(ctx, prompt)
			So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)

			Convey("Then the late answer goes to the next prompt", func() {
				go func() { _, _ = io.WriteString(w, "yes\n") }()
				ok, err := c.Confirm(context.Background(), prompt)
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
			})
		})

		Convey("When asked twice", func() {
			c := console.NewConfirmer(strings.NewReader("yes\nno\n"), &out)
			first, err := c.Confirm(context.Background(), prompt)
			So(err, ShouldBeNil)
			second, err := c.Confirm(context.Background(), prompt)
			So(err, ShouldBeNil)

			Convey("Then each prompt reads its own line", func() {
				So(first, ShouldBeTrue)
				So(second, ShouldBeFalse)
			})
		})
	})

	Convey("Always approves", t, func() {
		ok, err := console.Always{}.Confirm(context.Background(), "ignored")
		So(err, ShouldBeNil)
		So(ok, ShouldBeTrue)
	})
}
