package model_test

import (
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/aula/internal/domain/model"
)

func TestParseLevel(t *testing.T) {
	convey.Convey("Given stored category labels from mixed deployments", t, func() {
		convey.Convey("Canonical labels resolve to themselves", func() {
			for raw, want := range map[string]model.Level{
				"low":    model.LevelLow,
				"medium": model.LevelMedium,
				"high":   model.LevelHigh,
			} {
				level, ok := model.ParseLevel(raw)
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(level, convey.ShouldEqual, want)
			}
		})

		convey.Convey("Legacy Spanish labels fold into canonical levels", func() {
			for raw, want := range map[string]model.Level{
				"bajo":  model.LevelLow,
				"medio": model.LevelMedium,
				"alto":  model.LevelHigh,
			} {
				level, ok := model.ParseLevel(raw)
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(level, convey.ShouldEqual, want)
			}
		})

		convey.Convey("Whitespace and case variants normalize", func() {
			for _, raw := range []string{" Medio ", "MEDIO", "medio", "\tMedio\n"} {
				level, ok := model.ParseLevel(raw)
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(level, convey.ShouldEqual, model.LevelMedium)
			}
		})

		convey.Convey("Unrecognized labels report not ok", func() {
			for _, raw := range []string{"muy alto", "", "unknown", "severe", "2"} {
				_, ok := model.ParseLevel(raw)
				convey.So(ok, convey.ShouldBeFalse)
			}
		})
	})
}
