// Command canvasctl exports Canvas courses, assignments and classmates as CSV
// or XLSX.
//
// Usage:
//
//	canvasctl [-env FILE] <command> [flags]
//
// Commands: courses, assignments, peers, best-friends, upcoming.
// Settings come from CANVAS_* environment variables or the env file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/Sternrassler/canvas-lms-client/internal/config"
	"github.com/Sternrassler/canvas-lms-client/pkg/canvas"
	"github.com/Sternrassler/canvas-lms-client/pkg/client"
	"github.com/Sternrassler/canvas-lms-client/pkg/logging"
	"github.com/Sternrassler/canvas-lms-client/pkg/metrics"
	"github.com/Sternrassler/canvas-lms-client/pkg/snapshot"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// app carries what every command needs.
type app struct {
	cfg    *config.Config
	canvas *canvas.Client
	logger zerolog.Logger
	stdout io.Writer
	stderr io.Writer
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("canvasctl", flag.ContinueOnError)
	global.SetOutput(stderr)
	envFile := global.String("env", config.DefaultFile, "env file with CANVAS_* settings")
	global.Usage = func() { usage(stderr) }
	if err := global.Parse(args); err != nil {
		return 2
	}
	if global.NArg() == 0 {
		usage(stderr)
		return 2
	}

	name, rest := global.Arg(0), global.Args()[1:]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", name)
		usage(stderr)
		return 2
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(stderr, "load config: %v\n", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "invalid config: %v\n", err)
		return 1
	}

	logCfg := cfg.LoggingConfig()
	logCfg.Output = stderr
	logger := logging.Setup(logCfg).With().Str("component", "canvasctl").Logger()

	if cfg.MetricsAddr != "" {
		stopMetrics := serveMetrics(cfg.MetricsAddr, logger)
		defer stopMetrics()
	}

	session, err := client.New(ctx, cfg.ClientConfig())
	if err != nil {
		fmt.Fprintf(stderr, "connect to canvas: %v\n", err)
		return 1
	}

	a := &app{
		cfg:    cfg,
		canvas: canvas.New(session),
		logger: logger,
		stdout: stdout,
		stderr: stderr,
	}

	if err := cmd.run(ctx, a, rest); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "%s: %v\n", name, err)
		return 1
	}
	return 0
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: canvasctl [-env FILE] <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-14s %s\n", name, commands[name].summary)
	}
}

// serveMetrics exposes /metrics until the returned func is called.
func serveMetrics(addr string, logger zerolog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("addr", addr).Msg("Metrics server failed")
		}
	}()
	logger.Info().Str("addr", addr).Msg("Serving metrics")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// newSnapshotStore connects to Redis when snapshots are configured.
func (a *app) newSnapshotStore(ctx context.Context) (*snapshot.Store, func(), error) {
	if !a.cfg.SnapshotsEnabled() {
		return nil, nil, errors.New("snapshot publishing requires CANVAS_REDIS_ADDR")
	}
	redisClient := redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		redisClient.Close()
		return nil, nil, fmt.Errorf("connect to redis at %s: %w", a.cfg.Redis.Addr, err)
	}
	return snapshot.NewStore(redisClient), func() { redisClient.Close() }, nil
}

func joinIDs(ids []int64) string {
	s := make([]string, len(ids))
	for i, id := range ids {
		s[i] = fmt.Sprint(id)
	}
	return strings.Join(s, ",")
}
