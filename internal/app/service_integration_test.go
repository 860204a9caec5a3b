package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/stride/internal/adapters/assignment"
	"github.com/okian/stride/internal/adapters/eventlog"
	"github.com/okian/stride/internal/adapters/repository"
	"github.com/okian/stride/internal/adapters/sqlitedb"
	service "github.com/okian/stride/internal/app"
	"github.com/okian/stride/internal/app/scheduler"
	"github.com/okian/stride/internal/domain/condition"
	"github.com/okian/stride/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// waitForModel polls until a model with at least count training rows is published.
func waitForModel(ctx context.Context, svc *service.Service, problemID string, count int) (service.ModelInfo, bool) {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		info, err := svc.ModelInfo(ctx, problemID)
		if err == nil && info.TrainingCount >= count {
			return info, true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return service.ModelInfo{}, false
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service backed by SQLite with running workers", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := sqlitedb.Open(ctx, sqlitedb.MemoryPath)
		So(err, ShouldBeNil)
		defer db.Close()

		settings, err := condition.NewSettings("integration", "random_student", 0.5, nil, nil)
		So(err, ShouldBeNil)
		assigner, err := condition.NewAssigner(settings, assignment.NewSQLiteStore(db))
		So(err, ShouldBeNil)

		svc := service.New(
			service.WithWorkerCount(2),
			service.WithQueueSize(100),
			service.WithCatalog(problems),
			service.WithEventLog(eventlog.NewSQLiteLog(db)),
			service.WithModelStore(repository.NewCachedStore(repository.NewSQLiteStore(db))),
			service.WithAssigner(assigner),
			service.WithSchedulerOptions(scheduler.WithMinCorrectCount(3), scheduler.WithIncrement(2)),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When enough correct submissions are logged", func() {
			logSolutions(ctx, svc, 3)
			info, ok := waitForModel(ctx, svc, "P1", 3)

			Convey("Then a worker publishes the model", func() {
				So(ok, ShouldBeTrue)
				So(info.Language, ShouldEqual, "python")
				So(info.UsefulTokens, ShouldNotBeEmpty)
				So(svc.GetStats()["models"], ShouldEqual, 1)
			})

			Convey("Then a subject keeps one condition across requests", func() {
				first, err := svc.GenerateFeedback(ctx, service.FeedbackRequest{ProblemID: "P1", SubjectID: "s-sticky", Code: solution})
				So(err, ShouldBeNil)
				for i := 0; i < 5; i++ {
					fb, err := svc.GenerateFeedback(ctx, service.FeedbackRequest{ProblemID: "P1", SubjectID: "s-sticky", Code: solution})
					So(err, ShouldBeNil)
					So(fb.Shown, ShouldEqual, first.Shown)
				}
			})

			Convey("And more submissions pass the increment", func() {
				for i := 10; i < 12; i++ {
					_, err := svc.LogEvent(ctx, model.Event{
						ProblemID: "P1",
						EventType: model.EventRunProgram,
						Code:      fmt.Sprintf("%s# run %d\ny%d = 1\n", solution, i, i),
						Score:     score(1),
					})
					So(err, ShouldBeNil)
				}
				info, ok := waitForModel(ctx, svc, "P1", 5)

				Convey("Then the model is retrained", func() {
					So(ok, ShouldBeTrue)
					So(info.TrainingCount, ShouldEqual, 5)
				})
			})
		})
	})
}

func TestServiceConcurrency(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := newService(service.WithWorkerCount(4), service.WithQueueSize(50))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When many clients log and request feedback at once", func() {
			const clients = 20
			var wg sync.WaitGroup
			errs := make(chan error, clients*2)
			for i := 0; i < clients; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, err := svc.LogEvent(ctx, model.Event{
						SubjectID: fmt.Sprintf("c%d", i),
						ProblemID: "P1",
						EventType: model.EventSubmit,
						Code:      fmt.Sprintf("%s# client %d\nz%d = 0\n", solution, i, i),
						Score:     score(1),
					})
					errs <- err
					_, err = svc.GenerateFeedback(ctx, service.FeedbackRequest{
						ProblemID: "P1", SubjectID: fmt.Sprintf("c%d", i), Code: solution,
					})
					errs <- err
				}(i)
			}
			wg.Wait()
			close(errs)

			Convey("Then every call succeeds and a model is eventually published", func() {
				for err := range errs {
					So(err, ShouldBeNil)
				}
				_, ok := waitForModel(ctx, svc, "P1", 3)
				So(ok, ShouldBeTrue)
				So(svc.GetStats()["events"], ShouldEqual, clients)
			})
		})
	})
}

func TestServiceStopDrains(t *testing.T) {
	Convey("Given a service with queued rebuilds", t, func() {
		ctx := context.Background()
		svc := newService(service.WithWorkerCount(1))
		So(svc.Start(ctx), ShouldBeNil)
		logSolutions(ctx, svc, 3)

		Convey("When the service is stopped", func() {
			svc.Stop()

			Convey("Then pending rebuilds have completed", func() {
				info, err := svc.ModelInfo(ctx, "P1")
				So(err, ShouldBeNil)
				So(info.TrainingCount, ShouldEqual, 3)
			})
		})
	})
}
