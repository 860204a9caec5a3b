package main

import (
	"context"
	"flag"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/okian/stride/internal/loadgen"
	"github.com/okian/stride/pkg/logger"
)

const (
	defaultSubmissions = 200
	defaultRunTimeout  = 10 * time.Minute
	logFilePermission  = 0o600
)

func main() {
	var (
		baseURL      = flag.String("url", "http://localhost:9080", "Base URL of the service")
		problemID    = flag.String("problem", "sum", "Problem id to submit against")
		submissions  = flag.Int("submissions", defaultSubmissions, "Number of submissions to generate")
		correctRatio = flag.Float64("correct", 0.6, "Share of submissions that pass")
		workers      = flag.Int("workers", runtime.NumCPU()*2, "Number of concurrent senders")
		seed         = flag.Uint64("seed", uint64(time.Now().UnixNano()), "Seed for variant selection")
		timeout      = flag.Duration("timeout", 30*time.Second, "HTTP request timeout")
		pollInterval = flag.Duration("poll-interval", 500*time.Millisecond, "Delay between feedback polls")
		pollTimeout  = flag.Duration("poll-timeout", 2*time.Minute, "How long to wait for a model")
		logFile      = flag.String("log", "", "Also write logs to this file")
		verbose      = flag.Bool("verbose", false, "Log every request")
	)
	flag.Parse()

	if err := setupLogging(*logFile); err != nil {
		os.Stderr.WriteString("failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	_, err := loadgen.Run(ctx, &loadgen.Config{
		BaseURL:      *baseURL,
		ProblemID:    *problemID,
		Submissions:  *submissions,
		CorrectRatio: *correctRatio,
		Workers:      *workers,
		Seed:         *seed,
		Timeout:      *timeout,
		PollInterval: *pollInterval,
		PollTimeout:  *pollTimeout,
		Verbose:      *verbose,
	})
	if err != nil {
		logger.Get().Error(ctx, "load run failed", logger.Error(err))
		cancel()
		os.Exit(1)
	}
}

func setupLogging(path string) error {
	if path == "" {
		return logger.Init()
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return err
	}
	return logger.InitWithWriter(io.MultiWriter(os.Stdout, f))
}
