package repository_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/aula/internal/adapters/repository"
	"github.com/okian/aula/internal/domain/model"
	"github.com/okian/aula/pkg/logger"
)

func openTestStore(t *testing.T) *repository.SQLiteStore {
	t.Helper()
	_ = logger.Init()
	store, err := repository.NewSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	Convey("Given a fresh SQLite store", t, func() {
		store := openTestStore(t)
		ctx := context.Background()

		Convey("Migrations leave a usable schema", func() {
			n, err := store.CountByCourse(ctx, "")
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 0)
		})

		Convey("Frames survive a round trip with their emotion vector", func() {
			frame := model.EmotionFrame{
				UserID: 7, SessionID: "s1", CapturedAt: 1700000000.5,
				Emotions: map[string]float64{"happy": 0.6, "angry": 0.1},
			}
			So(store.AppendFrame(ctx, frame), ShouldBeNil)

			// Duplicate key is dropped silently.
			So(store.AppendFrame(ctx, frame), ShouldBeNil)

			frames, err := store.FramesBySession(ctx, "s1")
			So(err, ShouldBeNil)
			So(len(frames), ShouldEqual, 1)
			So(frames[0].UserID, ShouldEqual, 7)
			So(frames[0].Emotions["happy"], ShouldAlmostEqual, 0.6, 1e-9)
		})

		Convey("Evaluations aggregate by raw final label", func() {
			base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
			for i, level := range []model.Level{model.LevelLow, model.LevelHigh, model.LevelMedium} {
				So(store.AppendEvaluation(ctx, model.Evaluation{
					UserID: 1, SessionID: "s", Course: "algebra",
					PSSScore: 20, PSSLevel: model.LevelMedium,
					FacialLevel: level, FinalLevel: level,
					MeanEmotions: map[string]float64{"neutral": 0.5},
					CreatedAt:    base.Add(time.Duration(i) * time.Hour),
				}), ShouldBeNil)
			}

			counts, err := store.FinalLevelCounts(ctx)
			So(err, ShouldBeNil)
			So(counts["low"], ShouldEqual, 1)
			So(counts["medium"], ShouldEqual, 1)
			So(counts["high"], ShouldEqual, 1)

			Convey("And the latest label per student wins the class view", func() {
				labels, err := store.LatestFinalLabels(ctx, "algebra")
				So(err, ShouldBeNil)
				So(labels, ShouldResemble, []string{"medium"})
			})

			Convey("And the per-user timeline reads oldest first", func() {
				evals, err := store.EvaluationsByUser(ctx, 1)
				So(err, ShouldBeNil)
				So(len(evals), ShouldEqual, 3)
				So(evals[0].FinalLevel, ShouldEqual, model.LevelLow)
				So(evals[2].FinalLevel, ShouldEqual, model.LevelMedium)
				So(evals[0].MeanEmotions["neutral"], ShouldAlmostEqual, 0.5, 1e-9)
			})
		})

		Convey("The roster upserts and scopes by course", func() {
			So(store.UpsertStudent(ctx, model.Student{
				ID: 1, Name: "Ana", Email: "ana@example.edu", Course: "algebra",
			}), ShouldBeNil)
			So(store.UpsertStudent(ctx, model.Student{
				ID: 1, Name: "Ana M", Email: "ana@example.edu", Course: "biology",
			}), ShouldBeNil)

			st, err := store.StudentByID(ctx, 1)
			So(err, ShouldBeNil)
			So(st.Name, ShouldEqual, "Ana M")
			So(st.Course, ShouldEqual, "biology")

			n, err := store.CountByCourse(ctx, "biology")
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)
		})
	})
}
