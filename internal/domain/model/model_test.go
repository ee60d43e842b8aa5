package model_test

import (
	"errors"
	"testing"
	"time"

	model "github.com/okian/commskill/internal/domain/model"
	"github.com/okian/commskill/internal/domain/scoring"
	"github.com/smartystreets/goconvey/convey"
)

func TestAnalysisRecord(t *testing.T) {
	convey.Convey("Given scores for an owner", t, func() {
		now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.FixedZone("x", 3600))
		scores := scoring.Scores{scoring.DimPace: 100}

		convey.Convey("When creating a record with empty feedback", func() {
			rec := model.NewAnalysisRecord("u1", "s3://videos/a.mp4", scores, &model.Insights{}, now)

			convey.Convey("Then it gets an id, a UTC timestamp and no feedback", func() {
				convey.So(rec.ID, convey.ShouldNotBeEmpty)
				convey.So(rec.OwnerID, convey.ShouldEqual, "u1")
				convey.So(rec.CreatedAt.Location(), convey.ShouldEqual, time.UTC)
				convey.So(rec.CreatedAt.Equal(now), convey.ShouldBeTrue)
				convey.So(rec.Feedback, convey.ShouldBeNil)
			})
		})

		convey.Convey("When creating two records", func() {
			a := model.NewAnalysisRecord("u1", "", scores, nil, now)
			b := model.NewAnalysisRecord("u1", "", scores, nil, now)

			convey.Convey("Then their ids differ", func() {
				convey.So(a.ID, convey.ShouldNotEqual, b.ID)
			})
		})

		convey.Convey("When feedback is present", func() {
			fb := &model.Insights{Strengths: []string{"steady pace"}}
			rec := model.NewAnalysisRecord("u1", "", scores, fb, now)

			convey.Convey("Then it is kept", func() {
				convey.So(rec.Feedback, convey.ShouldEqual, fb)
				convey.So(rec.Feedback.Empty(), convey.ShouldBeFalse)
			})
		})
	})
}

func TestSessionTransitions(t *testing.T) {
	convey.Convey("Given a new session", t, func() {
		start := time.Now()
		s := model.NewSession("u1", "s3://videos/a.mp4", start)

		convey.So(s.Status, convey.ShouldEqual, model.StatusQueued)
		convey.So(s.Status.Terminal(), convey.ShouldBeFalse)

		convey.Convey("When it is processed and completed", func() {
			later := start.Add(time.Second)
			convey.So(s.Transition(model.StatusProcessing, later), convey.ShouldBeNil)
			convey.So(s.Complete("rec-1", later), convey.ShouldBeNil)

			convey.Convey("Then it is terminal with the analysis id", func() {
				convey.So(s.Status, convey.ShouldEqual, model.StatusCompleted)
				convey.So(s.Status.Terminal(), convey.ShouldBeTrue)
				convey.So(s.AnalysisID, convey.ShouldEqual, "rec-1")
				convey.So(s.UpdatedAt.After(s.CreatedAt), convey.ShouldBeTrue)
			})

			convey.Convey("Then it cannot fail afterwards", func() {
				err := s.Fail(errors.New("late"), later)
				convey.So(errors.Is(err, model.ErrInvalidTransition), convey.ShouldBeTrue)
				convey.So(s.Error, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When it fails while queued", func() {
			convey.So(s.Fail(errors.New("queue closed"), start), convey.ShouldBeNil)

			convey.Convey("Then the cause is recorded", func() {
				convey.So(s.Status, convey.ShouldEqual, model.StatusFailed)
				convey.So(s.Error, convey.ShouldEqual, "queue closed")
			})
		})

		convey.Convey("When completing without processing", func() {
			err := s.Complete("rec-1", start)

			convey.Convey("Then the transition is rejected", func() {
				convey.So(errors.Is(err, model.ErrInvalidTransition), convey.ShouldBeTrue)
				convey.So(s.AnalysisID, convey.ShouldBeEmpty)
			})
		})
	})
}
