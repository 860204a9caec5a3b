package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/stride/internal/adapters/http/api"
	service "github.com/okian/stride/internal/app"
	"github.com/okian/stride/internal/domain/model"
	"github.com/okian/stride/internal/domain/progress"
	"github.com/okian/stride/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type mockDeps struct {
	feedback    model.Feedback
	feedbackErr error
	lastReq     service.FeedbackRequest

	logged    []model.Event
	duplicate bool
	logErr    error

	info       service.ModelInfo
	infoErr    error
	cover      []string
	rebuildErr error

	stats map[string]interface{}
}

func (m *mockDeps) GenerateFeedback(_ context.Context, req service.FeedbackRequest) (model.Feedback, error) {
	m.lastReq = req
	return m.feedback, m.feedbackErr
}

func (m *mockDeps) LogEvent(_ context.Context, e model.Event) (service.LogResult, error) {
	if m.logErr != nil {
		return service.LogResult{}, m.logErr
	}
	m.logged = append(m.logged, e)
	id := e.EventID
	if id == "" {
		id = "generated"
	}
	return service.LogResult{EventID: id, Duplicate: m.duplicate}, nil
}

func (m *mockDeps) ModelInfo(_ context.Context, problemID string) (service.ModelInfo, error) {
	if m.infoErr != nil {
		return service.ModelInfo{}, m.infoErr
	}
	info := m.info
	info.ProblemID = problemID
	return info, nil
}

func (m *mockDeps) SolutionCover(_ context.Context, _ string) ([]string, error) {
	return m.cover, m.infoErr
}

func (m *mockDeps) Rebuild(_ context.Context, _ string) error { return m.rebuildErr }

func (m *mockDeps) GetStats() map[string]interface{} { return m.stats }

func newMux(deps *mockDeps) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps).Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
	return out
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDeps{stats: map[string]interface{}{"started": true}}
		mux := newMux(deps)

		Convey("Then health serves Prometheus metrics", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then stats returns the provider's map", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["started"], ShouldEqual, true)
		})

		Convey("Then a wrong method is rejected", func() {
			w := do(mux, http.MethodGet, "/feedback", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			So(w.Header().Get("Allow"), ShouldEqual, http.MethodPost)
		})

		Convey("Then registering on a nil mux panics", func() {
			So(func() { api.NewServer(deps).Register(context.Background(), nil) }, ShouldPanic)
		})
	})
}

func TestFeedbackHandler(t *testing.T) {
	Convey("Given a feedback endpoint", t, func() {
		p := 0.75
		deps := &mockDeps{feedback: model.Feedback{Shown: true, Progress: &p, Subgoals: map[int]float64{0: 1}}}
		mux := newMux(deps)

		Convey("When a valid request is posted", func() {
			w := do(mux, http.MethodPost, "/feedback",
				`{"problem_id":"P1","subject_id":"s1","code":"x = 1","subgoals":[0,2]}`)

			Convey("Then the feedback is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["shown"], ShouldEqual, true)
				So(body["progress"], ShouldEqual, 0.75)
				So(body["subgoal_scores"], ShouldResemble, map[string]any{"0": 1.0})
				So(deps.lastReq.Subgoals, ShouldResemble, []int{0, 2})
				So(deps.lastReq.SubjectID, ShouldEqual, "s1")
			})
		})

		Convey("When no feedback is available", func() {
			deps.feedback = model.Feedback{Shown: false}
			w := do(mux, http.MethodPost, "/feedback", `{"problem_id":"P1","code":"x"}`)

			Convey("Then shown is false and no scores are sent", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["shown"], ShouldEqual, false)
				So(body, ShouldNotContainKey, "progress")
				So(body, ShouldNotContainKey, "score")
			})
		})

		Convey("When the body is malformed or lacks a problem", func() {
			bad := do(mux, http.MethodPost, "/feedback", `{not json`)
			missing := do(mux, http.MethodPost, "/feedback", `{"code":"x"}`)

			Convey("Then it is a bad request", func() {
				So(bad.Code, ShouldEqual, http.StatusBadRequest)
				So(missing.Code, ShouldEqual, http.StatusBadRequest)
				So(decode(missing)["code"], ShouldEqual, "bad_request")
			})
		})

		Convey("When the service fails internally", func() {
			deps.feedbackErr = errors.New("disk I/O error near /var/lib/stride.db")
			w := do(mux, http.MethodPost, "/feedback", `{"problem_id":"P1","code":"x"}`)

			Convey("Then a generic unavailable response hides the cause", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(w.Body.String(), ShouldNotContainSubstring, "disk")
				So(decode(w)["message"], ShouldEqual, http.StatusText(http.StatusServiceUnavailable))
			})
		})
	})
}

func TestEventsHandler_HandlePostEvent(t *testing.T) {
	Convey("Given an events endpoint", t, func() {
		deps := &mockDeps{}
		mux := newMux(deps)

		Convey("When a valid event is posted", func() {
			w := do(mux, http.MethodPost, "/events",
				`{"event_id":"e1","subject_id":"s1","problem_id":"P1","event_type":"Submit","code":"x","score":1}`)

			Convey("Then it is accepted and forwarded", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(decode(w)["status"], ShouldEqual, "accepted")
				So(deps.logged, ShouldHaveLength, 1)
				So(*deps.logged[0].Score, ShouldEqual, 1.0)
				So(deps.logged[0].EventType, ShouldEqual, model.EventSubmit)
			})
		})

		Convey("When the event is a duplicate", func() {
			deps.duplicate = true
			w := do(mux, http.MethodPost, "/events", `{"event_id":"e1","event_type":"Submit"}`)

			Convey("Then it returns duplicate status", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["status"], ShouldEqual, "duplicate")
				So(body["duplicate"], ShouldEqual, true)
			})
		})

		Convey("When the event type is missing", func() {
			w := do(mux, http.MethodPost, "/events", `{"event_id":"e1"}`)

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(deps.logged, ShouldBeEmpty)
			})
		})

		Convey("When the service rejects the event", func() {
			deps.logErr = fmt.Errorf("%w: score must be within [0,1]", service.ErrInvalidRequest)
			w := do(mux, http.MethodPost, "/events", `{"event_type":"Submit","score":3}`)

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestModelsHandler(t *testing.T) {
	Convey("Given the models endpoints", t, func() {
		deps := &mockDeps{
			info:  service.ModelInfo{TrainingCount: 12, UsefulTokens: []string{"for"}},
			cover: []string{"for i in x: pass"},
		}
		mux := newMux(deps)

		Convey("When a model exists", func() {
			w := do(mux, http.MethodGet, "/models/P1", "")

			Convey("Then its summary is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["problem_id"], ShouldEqual, "P1")
				So(body["training_count"], ShouldEqual, 12.0)
			})
		})

		Convey("When the cover is requested", func() {
			w := do(mux, http.MethodGet, "/models/P1/cover", "")

			Convey("Then the solutions are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode(w)["solutions"], ShouldResemble, []any{"for i in x: pass"})
			})
		})

		Convey("When no model is published", func() {
			deps.infoErr = fmt.Errorf("%w: P1", service.ErrNoModel)
			w := do(mux, http.MethodGet, "/models/P1", "")

			Convey("Then it is not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When a rebuild lacks data", func() {
			deps.rebuildErr = fmt.Errorf("rebuild P1: %w", progress.ErrInsufficientData)
			w := do(mux, http.MethodPost, "/models/P1/rebuild", "")

			Convey("Then it is a conflict", func() {
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(decode(w)["code"], ShouldEqual, "insufficient_data")
			})
		})

		Convey("When a rebuild succeeds", func() {
			w := do(mux, http.MethodPost, "/models/P1/rebuild", "")

			Convey("Then the new summary is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
			})
		})
	})
}

func TestErrorHelpers(t *testing.T) {
	Convey("Given the error helpers", t, func() {
		cause := errors.New("boom")

		Convey("Then WrapKind matches both kind and cause", func() {
			err := api.WrapKind("op", api.ErrBadRequest, cause)
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "op: bad request: boom")
		})

		Convey("Then NewKind prefixes the operation", func() {
			So(api.NewKind("op", api.ErrUnavailable).Error(), ShouldEqual, "op: service unavailable")
		})

		Convey("Then Wrap keeps nil", func() {
			So(api.Wrap("op", nil), ShouldBeNil)
			So(errors.Is(api.Wrap("op", cause), cause), ShouldBeTrue)
		})
	})
}
