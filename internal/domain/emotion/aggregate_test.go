package emotion_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/aula/internal/domain/emotion"
	"github.com/okian/aula/internal/domain/model"
)

func frame(emotions map[string]float64) model.EmotionFrame {
	return model.EmotionFrame{
		UserID:    1,
		SessionID: "session-1",
		Emotions:  emotions,
	}
}

func TestAggregate(t *testing.T) {
	Convey("Given an aggregator in dominant mode", t, func() {
		agg := emotion.New()
		So(agg.Mode(), ShouldEqual, emotion.RatioDominant)

		Convey("Zero frames yield a zero vector and ratio 0", func() {
			res := agg.Aggregate(nil)
			So(res.Frames, ShouldEqual, 0)
			So(res.NegativeRatio, ShouldEqual, 0)
			So(len(res.MeanEmotions), ShouldEqual, len(model.EmotionLabels))
			for _, label := range model.EmotionLabels {
				So(res.MeanEmotions[label], ShouldEqual, 0)
			}
		})

		Convey("Per-label means are arithmetic over all frames", func() {
			frames := []model.EmotionFrame{
				frame(map[string]float64{"happy": 0.2}),
				frame(map[string]float64{"happy": 0.4}),
				frame(map[string]float64{"happy": 0.6}),
			}
			res := agg.Aggregate(frames)
			So(res.Frames, ShouldEqual, 3)
			So(res.MeanEmotions["happy"], ShouldAlmostEqual, 0.4, 1e-9)
			So(res.MeanEmotions["sad"], ShouldEqual, 0)
		})

		Convey("The ratio counts frames with a negative dominant label", func() {
			frames := []model.EmotionFrame{
				frame(map[string]float64{"angry": 0.9, "happy": 0.1}),
				frame(map[string]float64{"fearful": 0.7, "neutral": 0.2}),
				frame(map[string]float64{"happy": 0.8, "angry": 0.1}),
				frame(map[string]float64{"neutral": 0.6}),
			}
			res := agg.Aggregate(frames)
			So(res.NegativeRatio, ShouldAlmostEqual, 0.5, 1e-9)
		})

		Convey("Dominance ties resolve to the first maximum in label order", func() {
			// angry precedes happy in the fixed label order, so an exact
			// tie counts as negative.
			frames := []model.EmotionFrame{
				frame(map[string]float64{"angry": 0.5, "happy": 0.5}),
			}
			res := agg.Aggregate(frames)
			So(res.NegativeRatio, ShouldEqual, 1)
		})

		Convey("Keys outside the fixed label set are ignored", func() {
			frames := []model.EmotionFrame{
				frame(map[string]float64{"happy": 0.3, "confused": 0.9}),
			}
			res := agg.Aggregate(frames)
			So(res.MeanEmotions["happy"], ShouldAlmostEqual, 0.3, 1e-9)
			_, ok := res.MeanEmotions["confused"]
			So(ok, ShouldBeFalse)
		})

		Convey("Aggregation is deterministic for identical input", func() {
			frames := []model.EmotionFrame{
				frame(map[string]float64{"angry": 0.3, "happy": 0.4, "sad": 0.3}),
				frame(map[string]float64{"neutral": 1}),
			}
			first := agg.Aggregate(frames)
			for i := 0; i < 50; i++ {
				again := agg.Aggregate(frames)
				So(again.NegativeRatio, ShouldEqual, first.NegativeRatio)
				So(again.MeanEmotions["happy"], ShouldEqual, first.MeanEmotions["happy"])
			}
		})
	})

	Convey("Given an aggregator in threshold-sum mode", t, func() {
		agg := emotion.New(emotion.WithRatioMode(emotion.RatioThresholdSum))
		So(agg.Mode(), ShouldEqual, emotion.RatioThresholdSum)

		Convey("Frames count as negative when negative mass exceeds the threshold", func() {
			frames := []model.EmotionFrame{
				// mass 0.06 + 0.05 = 0.11 > 0.1 counts
				frame(map[string]float64{"angry": 0.06, "sad": 0.05, "happy": 0.89}),
				// mass exactly 0.1 does not
				frame(map[string]float64{"fearful": 0.1, "happy": 0.9}),
				frame(map[string]float64{"neutral": 1}),
			}
			res := agg.Aggregate(frames)
			So(res.NegativeRatio, ShouldAlmostEqual, 1.0/3.0, 1e-9)
		})

		Convey("Zero frames still yield ratio 0", func() {
			res := agg.Aggregate([]model.EmotionFrame{})
			So(res.NegativeRatio, ShouldEqual, 0)
			So(res.Frames, ShouldEqual, 0)
		})
	})

	Convey("Given an unknown ratio mode option", t, func() {
		agg := emotion.New(emotion.WithRatioMode("whatever"))

		Convey("The default mode is retained", func() {
			So(agg.Mode(), ShouldEqual, emotion.RatioDominant)
		})
	})
}
