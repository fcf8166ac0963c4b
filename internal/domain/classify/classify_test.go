package classify_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/aula/internal/domain/classify"
	"github.com/okian/aula/internal/domain/model"
)

func TestFeatures(t *testing.T) {
	Convey("Given a session aggregate", t, func() {
		mean := map[string]float64{
			"neutral":   0.1,
			"happy":     0.2,
			"sad":       0.3,
			"angry":     0.4,
			"fearful":   0.5,
			"disgusted": 0.6,
			"surprised": 0.7,
		}

		Convey("The feature vector follows the training column order", func() {
			features := classify.Features(mean, 0.8)
			So(features, ShouldResemble, []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8})
		})

		Convey("Missing labels project as zero", func() {
			features := classify.Features(map[string]float64{"happy": 1}, 0)
			So(features[0], ShouldEqual, 0) // neutral_avg
			So(features[1], ShouldEqual, 1) // happiness_avg
			So(features[7], ShouldEqual, 0) // negative_ratio
		})
	})
}

func TestLevelFromRatio(t *testing.T) {
	Convey("Given the fallback ratio bands", t, func() {
		Convey("Ratios of 0.75 and above are high", func() {
			So(classify.LevelFromRatio(0.75), ShouldEqual, model.LevelHigh)
			So(classify.LevelFromRatio(1.0), ShouldEqual, model.LevelHigh)
		})

		Convey("Ratios of 0.40 up to 0.75 are medium", func() {
			So(classify.LevelFromRatio(0.40), ShouldEqual, model.LevelMedium)
			So(classify.LevelFromRatio(0.7499), ShouldEqual, model.LevelMedium)
		})

		Convey("Ratios below 0.40 are low", func() {
			So(classify.LevelFromRatio(0.3999), ShouldEqual, model.LevelLow)
			So(classify.LevelFromRatio(0), ShouldEqual, model.LevelLow)
		})
	})
}

// writeArtifact dumps a forest artifact to a temp file and returns its path.
func writeArtifact(t *testing.T, artifact map[string]any) string {
	t.Helper()
	raw, err := json.Marshal(artifact)
	if err != nil {
		t.Fatalf("marshal artifact: %v", err)
	}
	path := filepath.Join(t.TempDir(), "forest.json")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	return path
}

// thresholdForest builds a one-feature forest: negative_ratio above the
// threshold votes high, otherwise low.
func thresholdForest(threshold float64, trees int) map[string]any {
	tree := map[string]any{
		"nodes": []map[string]any{
			{"feature": 7, "threshold": threshold, "left": 1, "right": 2, "leaf": -1},
			{"feature": 0, "threshold": 0, "left": 0, "right": 0, "leaf": 0},
			{"feature": 0, "threshold": 0, "left": 0, "right": 0, "leaf": 1},
		},
	}
	all := make([]map[string]any, trees)
	for i := range all {
		all[i] = tree
	}
	return map[string]any{
		"format":   "stress-forest/v1",
		"features": classify.FeatureColumns,
		"classes":  []string{"low", "high"},
		"trees":    all,
	}
}

func TestForest(t *testing.T) {
	Convey("Given a valid forest artifact", t, func() {
		path := writeArtifact(t, thresholdForest(0.5, 3))
		forest, err := classify.Load(path)
		So(err, ShouldBeNil)

		Convey("Prediction walks the trees and majority-votes", func() {
			level, err := forest.Predict(classify.Features(map[string]float64{}, 0.9))
			So(err, ShouldBeNil)
			So(level, ShouldEqual, model.LevelHigh)

			level, err = forest.Predict(classify.Features(map[string]float64{}, 0.1))
			So(err, ShouldBeNil)
			So(level, ShouldEqual, model.LevelLow)
		})

		Convey("Prediction is deterministic", func() {
			features := classify.Features(map[string]float64{"angry": 0.4}, 0.6)
			first, err := forest.Predict(features)
			So(err, ShouldBeNil)
			for i := 0; i < 50; i++ {
				again, err := forest.Predict(features)
				So(err, ShouldBeNil)
				So(again, ShouldEqual, first)
			}
		})

		Convey("A wrong-sized feature vector is rejected", func() {
			_, err := forest.Predict([]float64{1, 2, 3})
			So(errors.Is(err, classify.ErrBadFeatures), ShouldBeTrue)
		})
	})

	Convey("Given a missing artifact file", t, func() {
		_, err := classify.Load(filepath.Join(t.TempDir(), "nope.json"))
		So(errors.Is(err, classify.ErrUnavailable), ShouldBeTrue)
	})

	Convey("Given malformed artifacts", t, func() {
		Convey("Invalid JSON is rejected", func() {
			path := filepath.Join(t.TempDir(), "broken.json")
			So(os.WriteFile(path, []byte("{nope"), 0o600), ShouldBeNil)
			_, err := classify.Load(path)
			So(errors.Is(err, classify.ErrInvalidArtifact), ShouldBeTrue)
		})

		Convey("An unsupported format marker is rejected", func() {
			art := thresholdForest(0.5, 1)
			art["format"] = "stress-forest/v2"
			_, err := classify.Load(writeArtifact(t, art))
			So(errors.Is(err, classify.ErrInvalidArtifact), ShouldBeTrue)
		})

		Convey("A reordered feature list is rejected", func() {
			art := thresholdForest(0.5, 1)
			cols := make([]string, len(classify.FeatureColumns))
			copy(cols, classify.FeatureColumns)
			cols[0], cols[1] = cols[1], cols[0]
			art["features"] = cols
			_, err := classify.Load(writeArtifact(t, art))
			So(errors.Is(err, classify.ErrInvalidArtifact), ShouldBeTrue)
		})

		Convey("An unknown class label is rejected", func() {
			art := thresholdForest(0.5, 1)
			art["classes"] = []string{"low", "extreme"}
			_, err := classify.Load(writeArtifact(t, art))
			So(errors.Is(err, classify.ErrInvalidArtifact), ShouldBeTrue)
		})

		Convey("A tree with backward child pointers is rejected", func() {
			art := thresholdForest(0.5, 1)
			art["trees"] = []map[string]any{
				{
					"nodes": []map[string]any{
						{"feature": 0, "threshold": 0.5, "left": 0, "right": 0, "leaf": -1},
					},
				},
			}
			_, err := classify.Load(writeArtifact(t, art))
			So(errors.Is(err, classify.ErrInvalidArtifact), ShouldBeTrue)
		})
	})
}
