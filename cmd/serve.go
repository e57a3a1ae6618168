package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"mpvrelay/internal/config"
	"mpvrelay/internal/control"
	"mpvrelay/internal/history"
	"mpvrelay/internal/ingest"
	"mpvrelay/internal/media"
	"mpvrelay/internal/metrics"
	"mpvrelay/internal/player"
	"mpvrelay/internal/queue"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start mpv and accept locators (default command)",
	Args:  cobra.NoArgs,
	RunE:  serveRun,
}

// serveRun never returns on its own; it stops only on a fatal error.
func serveRun(cmd *cobra.Command, args []string) error {
	useYtdlp := cfg.Ytdl && player.Available("yt-dlp")
	opts := cfg.PlayerOptions(useYtdlp)
	logger.Debug("starting mpv",
		slog.String("binary", cfg.MPVPath),
		slog.Any("args", opts.Args()),
	)

	mpv, err := player.StartMPV(cmd.Context(), cfg.MPVPath, opts)
	if err != nil {
		return fmt.Errorf("initializing mpv: %w", err)
	}
	defer mpv.Close()

	met := metrics.New()
	commands := queue.New[media.Locator]()
	// The loop is the only receiver; once it stops, ingest must fail.
	defer commands.Close()

	ln, err := ingest.Listen(cfg.Listen,
		ingest.WithLogger(logger),
		ingest.WithAcceptHook(func(string) { met.IncConnections() }),
	)
	if err != nil {
		return err
	}
	defer ln.Close()

	loopOpts := []control.Option{
		control.WithPollTimeout(cfg.PollTimeout.Duration),
		control.WithLogger(logger),
		control.WithStats(met),
	}

	if cfg.History {
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()
		loopOpts = append(loopOpts, control.WithRecorder(store))
	}

	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: met.Router(func() { met.SetPending(commands.Len()) }),
		}
		defer srv.Close()
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server", slog.String("error", err.Error()))
			}
		}()
	}

	logger.Info("listening",
		slog.String("addr", ln.Addr().String()),
		slog.Bool("yt-dlp", useYtdlp),
		slog.Int("resolution", cfg.Resolution),
	)

	// cobra prints the returned error.
	return runRelay(cmd.Context(), mpv, ln, commands, loopOpts...)
}

// runRelay feeds ln into the control loop until one of them fails. A
// listener failure stops the loop and becomes the returned error. Pending
// history writes are flushed before it returns.
func runRelay(ctx context.Context, eng player.Engine, ln *ingest.Listener, commands *queue.Queue[media.Locator], opts ...control.Option) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	go func() {
		err := ln.Serve(commands)
		cancel(fmt.Errorf("ingest stopped: %w", err))
	}()

	loop := control.New(eng, commands, opts...)
	defer loop.Close()

	err := loop.Run(ctx)
	if cause := context.Cause(ctx); cause != nil && errors.Is(err, context.Canceled) {
		err = cause
	}
	return err
}

func openHistory() (*history.Store, error) {
	path, err := config.HistoryPath()
	if err != nil {
		return nil, err
	}
	store, err := history.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	return store, nil
}
