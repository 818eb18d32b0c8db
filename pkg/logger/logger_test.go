package logger_test

import (
	"context"
	"testing"

	"github.com/okian/squid/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLogger(t *testing.T) {
	Convey("Given an initialized global logger", t, func() {
		So(logger.Init(), ShouldBeNil)

		Convey("When fetching the global logger", func() {
			l := logger.Get()

			Convey("Then it should not be nil and should log without panicking", func() {
				So(l, ShouldNotBeNil)
				So(func() {
					l.Info(context.Background(), "hello",
						logger.String("term", "alpha"),
						logger.Int("count", 1),
					)
				}, ShouldNotPanic)
			})
		})

		Convey("When deriving a named logger", func() {
			l := logger.Named("scoring")

			Convey("Then it should be usable independently", func() {
				So(l, ShouldNotBeNil)
				So(func() { l.Debug(context.Background(), "shard touched") }, ShouldNotPanic)
			})
		})

		Convey("When setting the level from a string", func() {
			Convey("Then known levels should be accepted", func() {
				So(logger.SetLevelString("debug"), ShouldBeNil)
				So(logger.SetLevelString("INFO"), ShouldBeNil)
				So(logger.SetLevelString("warning"), ShouldBeNil)
				So(logger.SetLevelString("error"), ShouldBeNil)
				So(logger.SetLevelString(""), ShouldBeNil)
			})

			Convey("Then unknown levels should be rejected", func() {
				So(logger.SetLevelString("loud"), ShouldNotBeNil)
			})
		})
	})
}
