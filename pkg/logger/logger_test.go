package logger

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLoggerInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}
}

func TestInitWithWriter_Nil(t *testing.T) {
	if err := InitWithWriter(nil); err == nil {
		t.Fatal("expected error for nil writer")
	}
}

func TestLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWithWriter(&buf); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	ctx := context.Background()
	Get().Info(ctx, "rebuild finished",
		String("problem", "p1"),
		Int("count", 12),
		Bool("published", true),
		Duration("took", 2*time.Millisecond),
		Error(errors.New("boom")),
	)

	out := buf.String()
	for _, want := range []string{"rebuild finished", "problem=p1", "count=12", "published=true", "error=boom", "source="} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got %q", want, out)
		}
	}
}

func TestLoggerNamedAndWith(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWithWriter(&buf); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	ctx := context.Background()
	Named("scheduler").With(String("problem", "p9")).Warn(ctx, "degenerate")

	out := buf.String()
	if !strings.Contains(out, "component=scheduler") {
		t.Errorf("expected component attribute, got %q", out)
	}
	if !strings.Contains(out, "problem=p9") {
		t.Errorf("expected problem attribute, got %q", out)
	}
}

func TestSetLevelString(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWithWriter(&buf); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() { _ = SetLevelString("info") }()

	if err := SetLevelString("bogus"); err == nil {
		t.Error("expected error for unknown level")
	}
	if err := SetLevelString("error"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	Get().Info(context.Background(), "hidden")
	if strings.Contains(buf.String(), "hidden") {
		t.Error("info entry should be suppressed at error level")
	}
}

func TestNop(t *testing.T) {
	Nop().Error(context.Background(), "discarded", String("k", "v"))
}
