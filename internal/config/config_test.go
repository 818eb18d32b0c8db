package config_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/squid/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDefaults(t *testing.T) {
	Convey("Given a default configuration", t, func() {
		cfg := config.New(context.Background())

		Convey("Then it should be valid", func() {
			So(cfg.Validate(), ShouldBeNil)
		})

		Convey("Then derived durations should match the raw fields", func() {
			So(cfg.HalfLife(), ShouldEqual, time.Duration(cfg.HalfLifeSeconds*float64(time.Second)))
			So(cfg.ReconcileInterval(), ShouldEqual, time.Duration(cfg.ReconcileIntervalMS)*time.Millisecond)
			So(cfg.SnapshotInterval(), ShouldEqual, time.Duration(cfg.SnapshotIntervalMS)*time.Millisecond)
			So(cfg.SweepInterval(), ShouldEqual, time.Duration(cfg.SweepIntervalMS)*time.Millisecond)
		})
	})
}

func TestValidate(t *testing.T) {
	Convey("Given configurations violating startup invariants", t, func() {
		cases := []struct {
			name   string
			mutate func(*config.Config)
		}{
			{"empty addr", func(c *config.Config) { c.Addr = "" }},
			{"zero half-life", func(c *config.Config) { c.HalfLifeSeconds = 0 }},
			{"negative half-life", func(c *config.Config) { c.HalfLifeSeconds = -60 }},
			{"zero base weight", func(c *config.Config) { c.BaseWeight = 0 }},
			{"negative score floor", func(c *config.Config) { c.ScoreFloor = -0.1 }},
			{"score floor at one", func(c *config.Config) { c.ScoreFloor = 1.0 }},
			{"zero dedupe capacity", func(c *config.Config) { c.DedupeCapacity = 0 }},
			{"fp rate at zero", func(c *config.Config) { c.DedupeFPRate = 0 }},
			{"fp rate at one", func(c *config.Config) { c.DedupeFPRate = 1 }},
			{"zero leaderboard size", func(c *config.Config) { c.LeaderboardSize = 0 }},
			{"zero reconcile interval", func(c *config.Config) { c.ReconcileIntervalMS = 0 }},
			{"zero snapshot interval", func(c *config.Config) { c.SnapshotIntervalMS = 0 }},
			{"zero sweep interval", func(c *config.Config) { c.SweepIntervalMS = 0 }},
			{"zero queue size", func(c *config.Config) { c.EventQueueSize = 0 }},
			{"zero workers", func(c *config.Config) { c.WorkerCount = 0 }},
			{"zero shards", func(c *config.Config) { c.ShardCount = 0 }},
			{"zero term length", func(c *config.Config) { c.MaxTermLength = 0 }},
		}

		for _, tc := range cases {
			Convey("When validating a config with "+tc.name, func() {
				cfg := config.New(context.Background())
				tc.mutate(cfg)

				Convey("Then validation should fail with ErrInvalidConfig", func() {
					err := cfg.Validate()
					So(err, ShouldNotBeNil)
					So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
				})
			})
		}
	})
}

func TestLoad(t *testing.T) {
	Convey("Given environment-driven configuration", t, func() {
		Convey("When loading with overrides", func() {
			t.Setenv("SQUID_ADDR", ":7070")
			t.Setenv("SQUID_LEADERBOARD_SIZE", "25")
			t.Setenv("SQUID_HALF_LIFE_SECONDS", "60")

			cfg, err := config.Load(context.Background())

			Convey("Then env values should win over defaults", func() {
				So(err, ShouldBeNil)
				So(cfg.Addr, ShouldEqual, ":7070")
				So(cfg.LeaderboardSize, ShouldEqual, 25)
				So(cfg.HalfLife(), ShouldEqual, time.Minute)
			})
		})

		Convey("When loading an invalid override", func() {
			t.Setenv("SQUID_HALF_LIFE_SECONDS", "-1")

			_, err := config.Load(context.Background())

			Convey("Then loading should fail fast", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
			})
		})

		Convey("When SQUID_CONFIG points to a missing file", func() {
			t.Setenv("SQUID_CONFIG", "/nonexistent/squid.yaml")

			_, err := config.Load(context.Background())

			Convey("Then loading should report a load failure", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, config.ErrLoadConfig), ShouldBeTrue)
			})
		})
	})
}
