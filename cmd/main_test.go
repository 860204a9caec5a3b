package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/stride/internal/config"
	"github.com/okian/stride/internal/domain/condition"
	"github.com/okian/stride/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const problemsYAML = `problems:
  - id: sum
    language: python
    starter_code: |
      total = 0
`

func TestBuildService(t *testing.T) {
	convey.Convey("Given a configuration", t, func() {
		ctx := context.Background()
		cfg := config.New(ctx)
		cfg.WorkerCount = 1

		dir := t.TempDir()
		cfg.ProblemsFile = filepath.Join(dir, "problems.yaml")
		convey.So(os.WriteFile(cfg.ProblemsFile, []byte(problemsYAML), 0o600), convey.ShouldBeNil)

		convey.Convey("When no database path is set", func() {
			svc, closeStores, err := buildService(ctx, cfg, logger.Get())

			convey.Convey("Then an in-memory service is built", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(svc.GetStats()["problems"], convey.ShouldEqual, 1)
				convey.So(closeStores(), convey.ShouldBeNil)
			})
		})

		convey.Convey("When a database path is set", func() {
			cfg.DatabasePath = filepath.Join(dir, "stride.db")
			svc, closeStores, err := buildService(ctx, cfg, logger.Get())
			convey.So(err, convey.ShouldBeNil)
			defer closeStores()

			convey.Convey("Then the SQLite file is created", func() {
				_, statErr := os.Stat(cfg.DatabasePath)
				convey.So(statErr, convey.ShouldBeNil)
				convey.So(svc.GetStats()["models"], convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When the condition policy is unknown", func() {
			cfg.ConditionPolicy = "everyone"
			_, _, err := buildService(ctx, cfg, logger.Get())

			convey.Convey("Then startup is refused", func() {
				convey.So(errors.Is(err, condition.ErrConfiguration), convey.ShouldBeTrue)
			})
		})
	})
}

func TestNewMux(t *testing.T) {
	convey.Convey("Given the application mux", t, func() {
		ctx := context.Background()
		cfg := config.New(ctx)
		svc, closeStores, err := buildService(ctx, cfg, logger.Get())
		convey.So(err, convey.ShouldBeNil)
		defer closeStores()
		mux := newMux(ctx, svc)

		get := func(path string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
			return w
		}

		convey.Convey("Then every surface is routed", func() {
			convey.So(get("/").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/api-docs").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/openapi.yaml").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/stats").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/healthz").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/models/sum").Code, convey.ShouldEqual, http.StatusNotFound)
		})

		convey.Convey("Then feedback without a model is not shown", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/feedback",
				strings.NewReader(`{"problem_id":"sum","code":"total = 0"}`)))
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, `"shown":false`)
		})
	})
}

func TestSystemMetrics(t *testing.T) {
	convey.Convey("Given the system metrics updater", t, func() {
		convey.Convey("Then a single update does not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})

		convey.Convey("Then the loop returns when the context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
		})
	})
}
