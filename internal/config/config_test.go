package config_test

import (
	"context"
	"errors"
	"runtime"
	"testing"

	"github.com/okian/stride/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with defaults", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 1_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.MinCorrectCount, convey.ShouldEqual, 10)
			convey.So(cfg.RebuildIncrement, convey.ShouldEqual, 5)
			convey.So(cfg.MinFeatureProportion, convey.ShouldEqual, 0.5)
			convey.So(cfg.MaxScorePercentile, convey.ShouldEqual, 0.25)
			convey.So(cfg.ClassifierEnabled, convey.ShouldBeTrue)
			convey.So(cfg.ConditionPolicy, convey.ShouldEqual, config.PolicyAllIntervention)
			convey.So(cfg.DatabasePath, convey.ShouldBeEmpty)
		})

		convey.Convey("Then the defaults should validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with one invalid setting each", t, func() {
		cases := []struct {
			name   string
			mutate func(*config.Config)
		}{
			{"empty addr", func(c *config.Config) { c.Addr = "" }},
			{"zero queue", func(c *config.Config) { c.QueueSize = 0 }},
			{"zero workers", func(c *config.Config) { c.WorkerCount = 0 }},
			{"zero min correct", func(c *config.Config) { c.MinCorrectCount = 0 }},
			{"zero increment", func(c *config.Config) { c.RebuildIncrement = 0 }},
			{"proportion of one", func(c *config.Config) { c.MinFeatureProportion = 1 }},
			{"negative percentile", func(c *config.Config) { c.MaxScorePercentile = -0.1 }},
			{"inverted ngram range", func(c *config.Config) { c.NgramMin, c.NgramMax = 3, 1 }},
			{"probability above 1", func(c *config.Config) { c.ConditionProbability = 1.5 }},
			{"bad override value", func(c *config.Config) { c.ConditionOverrides = map[string]string{"P1": "maybe"} }},
		}

		for _, tc := range cases {
			cfg := config.New(context.Background())
			tc.mutate(cfg)

			convey.Convey("Then "+tc.name+" should be rejected", func() {
				err := cfg.Validate()
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}

		convey.Convey("Then valid overrides should pass", func() {
			cfg := config.New(context.Background())
			cfg.ConditionOverrides = map[string]string{"P1": "control", "P2": "Intervention"}
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
