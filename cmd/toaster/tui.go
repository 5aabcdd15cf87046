package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/toaster/internal/config"
	"github.com/jmylchreest/toaster/internal/dom"
	"github.com/jmylchreest/toaster/internal/httpapi"
	"github.com/jmylchreest/toaster/internal/store"
	"github.com/jmylchreest/toaster/internal/toast"
	"github.com/jmylchreest/toaster/internal/tui"
)

var tuiOpts struct {
	poll     string
	interval time.Duration
	listen   string
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Show toasts in the terminal",
	Long: `Show toasts in the terminal and compose new ones.

Key bindings:
  enter       Send the typed message as a toast
  tab         Cycle the toast style
  ctrl+p      Toggle persistent
  ctrl+d      Dismiss the newest toast
  ctrl+x      Dismiss all toasts
  esc         Quit

With --poll the endpoint is fetched every --interval and each toast payload
it returns is shown. With --listen the HTTP API accepts toasts as well.`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)

	tuiCmd.Flags().StringVar(&tuiOpts.poll, "poll", "",
		"URL returning a toast payload to poll")
	tuiCmd.Flags().DurationVar(&tuiOpts.interval, "interval", config.DefaultPollInterval,
		"Delay between polls")
	tuiCmd.Flags().StringVar(&tuiOpts.listen, "listen", "",
		"Serve the HTTP API on this address (e.g. 127.0.0.1:7077)")
}

func runTUI(cmd *cobra.Command, args []string) error {
	if tuiOpts.poll != "" {
		cfg.TUI.PollURL = tuiOpts.poll
	}
	if cmd.Flags().Changed("interval") {
		cfg.TUI.PollInterval = config.Duration(tuiOpts.interval)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	queue := store.NewQueue()
	defer func() { _ = queue.Close() }()

	doc := dom.NewDocument()
	widgets := tui.NewWidgetFactory()
	metrics := httpapi.NewMetrics(queue)

	manager := toast.NewManager(queue, doc, widgets,
		toast.WithLogger(logger),
		toast.WithHiddenHook(metrics.ObserveHidden),
	)

	if tuiOpts.listen != "" {
		opts := []httpapi.Option{httpapi.WithLogger(logger)}
		if cfg.HTTP.Metrics {
			opts = append(opts, httpapi.WithMetrics(metrics))
		}
		srv := httpapi.NewServer(manager, opts...)
		if err := srv.Start(tuiOpts.listen); err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	return tui.Run(tui.RunOptions{
		Context:  cmd.Context(),
		Config:   cfg,
		Manager:  manager,
		Document: doc,
		Widgets:  widgets,
		Logger:   logger,
	})
}
