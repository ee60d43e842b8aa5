package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/commskill/internal/adapters/coach"
	"github.com/okian/commskill/internal/adapters/provider"
	repository "github.com/okian/commskill/internal/adapters/repository"
	"github.com/okian/commskill/internal/adapters/storage"
	service "github.com/okian/commskill/internal/app"
	"github.com/okian/commskill/internal/domain/annotations"
	"github.com/okian/commskill/internal/domain/dedupe"
	"github.com/okian/commskill/internal/domain/model"
	"github.com/okian/commskill/internal/domain/scoring"
)

type fakeCoach struct {
	mu       sync.Mutex
	insights *model.Insights
	err      error
	calls    int
}

func (f *fakeCoach) Start(_ context.Context, owner string) coach.Conversation {
	return coach.Conversation{ID: "conv-" + owner, OwnerID: owner, Greeting: "hi"}
}

func (f *fakeCoach) Send(_ context.Context, _, id, msg string) (coach.Reply, error) {
	if id != "conv-u1" {
		return coach.Reply{}, coach.ErrConversationNotFound
	}
	return coach.Reply{ConversationID: id, Message: "echo: " + msg}, nil
}

func (f *fakeCoach) End(_ context.Context, _, id string) error {
	if id != "conv-u1" {
		return coach.ErrConversationNotFound
	}
	return nil
}

func (f *fakeCoach) Insights(context.Context, scoring.Scores) (*model.Insights, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.insights, f.err
}

func upload(body string) service.Upload {
	return service.Upload{Filename: "talk.mp4", Body: strings.NewReader(body), Size: int64(len(body))}
}

func waitTerminal(svc *service.Service, owner, id string) model.Session {
	deadline := time.Now().Add(5 * time.Second)
	for {
		sess, err := svc.Session(context.Background(), owner, id)
		if (err == nil && sess.Status.Terminal()) || time.Now().After(deadline) {
			return sess
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(service.WithWorkerCount(2), service.WithQueueSize(10))
		ctx := context.Background()

		Convey("When it is not started", func() {
			_, err := svc.StartAnalysis(ctx, "u1", upload("x"))

			Convey("Then async analysis is refused", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})

		Convey("When started and stopped", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Started(), ShouldBeTrue)
			stats := svc.GetStats()
			So(stats["workerCount"], ShouldEqual, 2)
			So(stats["queueLength"], ShouldEqual, 0)

			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			So(svc.Stop(stopCtx), ShouldBeNil)

			Convey("Then it reports stopped", func() {
				So(svc.Started(), ShouldBeFalse)
				So(svc.Stop(stopCtx), ShouldBeNil)
			})
		})
	})
}

func TestService_Process(t *testing.T) {
	Convey("Given a service with a static annotator and a coach", t, func() {
		media := storage.NewMemoryMediaStore("bucket")
		fc := &fakeCoach{insights: &model.Insights{Strengths: []string{"steady voice"}}}
		svc := service.New(
			service.WithMedia(media),
			service.WithAnnotator(provider.Static(&annotations.RawAnnotations{})),
			service.WithCoach(fc),
		)
		ctx := context.Background()

		Convey("When processing an external video url", func() {
			rec, err := svc.Process(ctx, "u1", "https://cdn.example.com/v.mp4")

			Convey("Then fallback scores are stored with feedback", func() {
				So(err, ShouldBeNil)
				So(rec.Scores[scoring.DimEyeContact], ShouldEqual, 85.0)
				So(rec.Scores[scoring.DimPace], ShouldEqual, 85.0)
				So(rec.Scores[scoring.DimEngagement], ShouldAlmostEqual, 83.5)
				So(rec.Feedback.Strengths, ShouldResemble, []string{"steady voice"})

				got, err := svc.Get(ctx, "u1", rec.ID)
				So(err, ShouldBeNil)
				So(got.ID, ShouldEqual, rec.ID)

				scores, ok := svc.LatestScores(ctx, "u1")
				So(ok, ShouldBeTrue)
				So(scores[scoring.DimPosture], ShouldEqual, 80.0)
			})
		})

		Convey("When the coach fails", func() {
			fc.err = errors.New("llm down")
			rec, err := svc.Process(ctx, "u1", "https://cdn.example.com/v.mp4")

			Convey("Then the analysis is stored without feedback", func() {
				So(err, ShouldBeNil)
				So(rec.Feedback, ShouldBeNil)
			})
		})

		Convey("When uploading and analyzing synchronously", func() {
			rec, err := svc.UploadAndAnalyze(ctx, "u1", upload("video-bytes"))

			Convey("Then the media is removed after analysis", func() {
				So(err, ShouldBeNil)
				So(rec.VideoURL, ShouldStartWith, "mem://bucket/videos/u1/")
				So(media.Len(), ShouldEqual, 0)
			})
		})

		Convey("When the upload is empty", func() {
			_, err := svc.UploadAndAnalyze(ctx, "u1", upload(""))
			So(errors.Is(err, service.ErrEmptyVideo), ShouldBeTrue)
		})

		Convey("When no url is given", func() {
			_, err := svc.Process(ctx, "u1", "")
			So(errors.Is(err, service.ErrMissingVideoURL), ShouldBeTrue)
		})
	})

	Convey("Given a failing annotator", t, func() {
		svc := service.New(service.WithAnnotator(provider.AnnotatorFunc(
			func(context.Context, string) (*annotations.RawAnnotations, error) {
				return nil, errors.New("connection reset")
			})))

		Convey("Then the failure is an upstream error and nothing is stored", func() {
			_, err := svc.Process(context.Background(), "u1", "https://x/v.mp4")
			So(errors.Is(err, provider.ErrUpstream), ShouldBeTrue)
			recs, err := svc.History(context.Background(), "u1", 0)
			So(err, ShouldBeNil)
			So(recs, ShouldBeEmpty)
		})
	})

	Convey("Given a service without an annotator", t, func() {
		svc := service.New()
		_, err := svc.Process(context.Background(), "u1", "https://x/v.mp4")
		So(errors.Is(err, service.ErrNoAnnotator), ShouldBeTrue)
	})
}

func TestService_StartAnalysis(t *testing.T) {
	Convey("Given a started service", t, func() {
		media := storage.NewMemoryMediaStore("bucket")
		svc := service.New(
			service.WithWorkerCount(1),
			service.WithMedia(media),
			service.WithAnnotator(provider.Static(&annotations.RawAnnotations{})),
		)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When a video is submitted", func() {
			res, err := svc.StartAnalysis(ctx, "u1", upload("clip-1"))
			So(err, ShouldBeNil)
			So(res.Duplicate, ShouldBeFalse)

			Convey("Then the session completes with an analysis", func() {
				sess := waitTerminal(svc, "u1", res.Session.ID)
				So(sess.Status, ShouldEqual, model.StatusCompleted)
				So(sess.AnalysisID, ShouldNotBeEmpty)

				_, err := svc.Get(ctx, "u1", sess.AnalysisID)
				So(err, ShouldBeNil)
			})

			Convey("Then resubmitting the same bytes returns the first session", func() {
				again, err := svc.StartAnalysis(ctx, "u1", upload("clip-1"))
				So(err, ShouldBeNil)
				So(again.Duplicate, ShouldBeTrue)
				So(again.Session.ID, ShouldEqual, res.Session.ID)
			})

			Convey("Then deleting the analysis lets the same bytes run again", func() {
				sess := waitTerminal(svc, "u1", res.Session.ID)
				So(sess.Status, ShouldEqual, model.StatusCompleted)
				So(svc.Delete(ctx, "u1", sess.AnalysisID), ShouldBeNil)

				again, err := svc.StartAnalysis(ctx, "u1", upload("clip-1"))
				So(err, ShouldBeNil)
				So(again.Duplicate, ShouldBeFalse)
				So(again.Session.ID, ShouldNotEqual, res.Session.ID)

				done := waitTerminal(svc, "u1", again.Session.ID)
				So(done.Status, ShouldEqual, model.StatusCompleted)
				_, err = svc.Get(ctx, "u1", done.AnalysisID)
				So(err, ShouldBeNil)
			})

			Convey("Then another owner is not affected", func() {
				other, err := svc.StartAnalysis(ctx, "u2", upload("clip-1"))
				So(err, ShouldBeNil)
				So(other.Duplicate, ShouldBeFalse)

				_, err = svc.Session(ctx, "u1", other.Session.ID)
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})
	})

	Convey("Given a shared deduper whose claim belongs to another instance", t, func() {
		shared := dedupe.NewInMemoryDeduper()
		first := service.New(
			service.WithWorkerCount(1),
			service.WithDeduper(shared),
			service.WithAnnotator(provider.Static(&annotations.RawAnnotations{})),
		)
		second := service.New(
			service.WithWorkerCount(1),
			service.WithDeduper(shared),
			service.WithAnnotator(provider.Static(&annotations.RawAnnotations{})),
		)
		ctx := context.Background()
		So(first.Start(ctx), ShouldBeNil)
		defer func() { _ = first.Stop(ctx) }()
		So(second.Start(ctx), ShouldBeNil)
		defer func() { _ = second.Stop(ctx) }()

		res, err := first.StartAnalysis(ctx, "u1", upload("clip"))
		So(err, ShouldBeNil)

		Convey("When the same bytes arrive at the other instance", func() {
			again, err := second.StartAnalysis(ctx, "u1", upload("clip"))

			Convey("Then it takes over the claim and analyzes the upload", func() {
				So(err, ShouldBeNil)
				So(again.Duplicate, ShouldBeFalse)
				So(again.Session.ID, ShouldNotEqual, res.Session.ID)
				So(waitTerminal(second, "u1", again.Session.ID).Status, ShouldEqual, model.StatusCompleted)
			})

			Convey("Then later duplicates on that instance resolve to its session", func() {
				third, err := second.StartAnalysis(ctx, "u1", upload("clip"))
				So(err, ShouldBeNil)
				So(third.Duplicate, ShouldBeTrue)
				So(third.Session.ID, ShouldEqual, again.Session.ID)
			})
		})
	})

	Convey("Given a failing provider", t, func() {
		svc := service.New(
			service.WithWorkerCount(1),
			service.WithAnnotator(provider.AnnotatorFunc(
				func(context.Context, string) (*annotations.RawAnnotations, error) {
					return nil, provider.ErrUpstream
				})),
		)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("Then the session fails and the same video can be retried", func() {
			res, err := svc.StartAnalysis(ctx, "u1", upload("clip"))
			So(err, ShouldBeNil)
			sess := waitTerminal(svc, "u1", res.Session.ID)
			So(sess.Status, ShouldEqual, model.StatusFailed)
			So(sess.Error, ShouldNotBeEmpty)

			retry, err := svc.StartAnalysis(ctx, "u1", upload("clip"))
			So(err, ShouldBeNil)
			So(retry.Duplicate, ShouldBeFalse)
		})
	})

	Convey("Given a busy worker and a queue of one", t, func() {
		release := make(chan struct{})
		svc := service.New(
			service.WithWorkerCount(1),
			service.WithQueueSize(1),
			service.WithAnnotator(provider.AnnotatorFunc(
				func(ctx context.Context, _ string) (*annotations.RawAnnotations, error) {
					select {
					case <-release:
					case <-ctx.Done():
					}
					return &annotations.RawAnnotations{}, nil
				})),
		)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer func() {
			close(release)
			_ = svc.Stop(ctx)
		}()

		first, err := svc.StartAnalysis(ctx, "u1", upload("a"))
		So(err, ShouldBeNil)
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			s, _ := svc.Session(ctx, "u1", first.Session.ID)
			if s.Status == model.StatusProcessing {
				break
			}
			time.Sleep(5 * time.Millisecond)
		}
		_, err = svc.StartAnalysis(ctx, "u1", upload("b"))
		So(err, ShouldBeNil)

		Convey("Then a further submission is rejected with backpressure", func() {
			_, err := svc.StartAnalysis(ctx, "u1", upload("c"))
			So(errors.Is(err, service.ErrBackpressure), ShouldBeTrue)
		})
	})
}

func TestService_Records(t *testing.T) {
	Convey("Given a service", t, func() {
		media := storage.NewMemoryMediaStore("bucket")
		svc := service.New(service.WithMedia(media), service.WithMediaCleanup(false),
			service.WithAnnotator(provider.Static(&annotations.RawAnnotations{})))
		ctx := context.Background()

		Convey("When saving client results with every component", func() {
			rec, err := svc.SaveResults(ctx, "u1", "https://x/v.mp4", scoring.Scores{
				scoring.DimEyeContact:   90,
				scoring.DimPosture:      80,
				scoring.DimGestures:     75,
				scoring.DimVoiceClarity: 95,
				scoring.DimPace:         100,
			})

			Convey("Then engagement is derived", func() {
				So(err, ShouldBeNil)
				So(rec.Scores[scoring.DimEngagement], ShouldAlmostEqual, 88.25)
			})
		})

		Convey("When saving out of range results", func() {
			_, err := svc.SaveResults(ctx, "u1", "https://x/v.mp4", scoring.Scores{scoring.DimPace: 120})
			So(errors.Is(err, service.ErrInvalidScores), ShouldBeTrue)
		})

		Convey("When saving nothing", func() {
			_, err := svc.SaveResults(ctx, "u1", "https://x/v.mp4", nil)
			So(errors.Is(err, service.ErrInvalidScores), ShouldBeTrue)
		})

		Convey("When deleting an uploaded analysis", func() {
			rec, err := svc.UploadAndAnalyze(ctx, "u1", upload("bytes"))
			So(err, ShouldBeNil)
			So(media.Len(), ShouldEqual, 1)

			So(svc.Delete(ctx, "u1", rec.ID), ShouldBeNil)

			Convey("Then the record and its media are gone", func() {
				So(media.Len(), ShouldEqual, 0)
				_, err := svc.Get(ctx, "u1", rec.ID)
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				So(errors.Is(svc.Delete(ctx, "u1", rec.ID), repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When listing history", func() {
			for i := 0; i < 3; i++ {
				_, err := svc.Process(ctx, "u1", "https://x/v.mp4")
				So(err, ShouldBeNil)
			}
			recs, err := svc.History(ctx, "u1", 2)
			So(err, ShouldBeNil)
			So(len(recs), ShouldEqual, 2)
		})

		Convey("When testing connectivity", func() {
			report, err := svc.TestConnection(ctx)
			So(err, ShouldBeNil)
			So(report.Bucket, ShouldEqual, "bucket")
		})
	})
}

func TestService_Chat(t *testing.T) {
	Convey("Given a service with a coach", t, func() {
		svc := service.New(service.WithCoach(&fakeCoach{}))
		ctx := context.Background()

		conv, err := svc.StartChat(ctx, "u1")
		So(err, ShouldBeNil)

		reply, err := svc.SendChat(ctx, "u1", conv.ID, "how is my pace?")
		So(err, ShouldBeNil)
		So(reply.Message, ShouldEqual, "echo: how is my pace?")

		_, err = svc.SendChat(ctx, "u1", "missing", "hello")
		So(errors.Is(err, coach.ErrConversationNotFound), ShouldBeTrue)

		So(svc.EndChat(ctx, "u1", conv.ID), ShouldBeNil)
		So(errors.Is(svc.EndChat(ctx, "u1", "missing"), coach.ErrConversationNotFound), ShouldBeTrue)
	})

	Convey("Given a service without a coach", t, func() {
		_, err := service.New().StartChat(context.Background(), "u1")
		So(errors.Is(err, service.ErrCoachUnavailable), ShouldBeTrue)
		So(errors.Is(service.New().EndChat(context.Background(), "u1", "c"), service.ErrCoachUnavailable), ShouldBeTrue)
	})
}
