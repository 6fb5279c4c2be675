package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"recruitpulse/internal/app"
	"recruitpulse/internal/config"
	"recruitpulse/internal/hiring"
	logx "recruitpulse/pkg/logx"
)

const defaultConfigPath = "./config.yaml"

// errSnapshotFailed is returned after an error payload has been printed.
var errSnapshotFailed = errors.New("snapshot computation failed")

func newServeCommand() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the WebSocket feed and source watcher",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cfgPath)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", defaultConfigPath, "path to config (yaml or json)")
	return cmd
}

func runServe(parent context.Context, cfgPath string) error {
	if parent == nil {
		parent = context.Background()
	}
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.NewApp(cfgPath)
	if err != nil {
		return err
	}
	if err := a.Start(ctx); err != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		_ = a.Stop(stopCtx, app.StopFatalError)
		return fmt.Errorf("start: %w", err)
	}

	reason := app.StopUnknown
	select {
	case <-ctx.Done():
		select {
		case sig := <-sigCh:
			if sig == syscall.SIGTERM {
				reason = app.StopSIGTERM
			} else {
				reason = app.StopSIGINT
			}
		default:
			reason = app.StopAppStop
		}
	case <-a.Done():
		reason = app.StopFatalError
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	_ = a.Stop(stopCtx, reason)

	if reason == app.StopFatalError {
		if err := a.Err(); err != nil {
			return err
		}
	}
	return nil
}

func newSnapshotCommand() *cobra.Command {
	var (
		cfgPath string
		pretty  bool
		stats   bool
	)
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Compute the datasets once and print them as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSnapshot(cmd.OutOrStdout(), cmd.ErrOrStderr(), cfgPath, pretty, stats)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", defaultConfigPath, "path to config (yaml or json)")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent the JSON output")
	cmd.Flags().BoolVar(&stats, "stats", false, "print row statistics to stderr")
	return cmd
}

func runSnapshot(stdout, stderr io.Writer, cfgPath string, pretty, stats bool) error {
	cfg, err := config.NewConfigManager(cfgPath).Load()
	if err != nil {
		return err
	}
	log := logx.NewConsole(stderr, cfg.Logging.Level)
	loader := hiring.NewLoader(cfg.HiringConfig(), log.With(logx.String("comp", "loader")))

	p := loader.ComputeSnapshot()

	enc := json.NewEncoder(stdout)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	if st, ok := loader.LastStats(); ok && stats {
		fmt.Fprintf(stderr, "rows: %s, dropped: %s, took: %s\n",
			humanize.Comma(int64(st.TotalRows)),
			humanize.Comma(int64(st.DroppedRows)),
			st.Took.Round(time.Microsecond),
		)
	}
	if p.IsError() {
		return errSnapshotFailed
	}
	return nil
}
