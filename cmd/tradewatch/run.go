// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tradewatch/tradewatch/internal/accept"
	"github.com/tradewatch/tradewatch/internal/issue"
	"github.com/tradewatch/tradewatch/internal/mailbox"
	"github.com/tradewatch/tradewatch/internal/metrics"
	"github.com/tradewatch/tradewatch/internal/poller"
	"github.com/tradewatch/tradewatch/internal/tradeoffer"
)

func newRunCommand(app *App) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Poll the inbox and accept trusted trade offers",
		Long: `Poll the inbox for Steam trade offer emails and accept offers from
allow-listed traders. This is the container entry point; it runs until
interrupted. With METRICS_ADDR set, Prometheus metrics are served on
/metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPoller(cmd.Context(), app, once)
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "run a single poll cycle and exit")
	return cmd
}

func runPoller(ctx context.Context, app *App, once bool) error {
	cfg, err := app.Config.Load(ctx, app.loadOptions())
	if err != nil {
		return app.renderFailure(err, configIssue(err))
	}

	level := app.levelFor(cfg)
	logger := app.logger("poller", level)

	var recorder metrics.Recorder = metrics.NewNoop()
	var reg *prometheus.Registry
	if cfg.MetricsAddr != "" {
		reg = prometheus.NewRegistry()
		prom, err := metrics.NewPrometheus(reg)
		if err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		recorder = prom
	}

	allow := tradeoffer.ParseAllowList(cfg.AllowedTraders)
	p, err := poller.New(poller.Options{
		Dialer:         app.NewDialer(cfg, app.logger("mailbox", level)),
		Parser:         tradeoffer.NewParser(allow),
		Accepter:       accept.New(accept.Options{MaxAttempts: cfg.AcceptMaxRetries, Logger: app.logger("accept", level)}),
		Sender:         cfg.SteamSender,
		Interval:       cfg.Interval(),
		ReconnectDelay: cfg.ReconnectDelay,
		Metrics:        recorder,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	if once {
		stats, err := p.Cycle(ctx)
		if err != nil {
			return app.renderFailure(err, cycleIssue(err))
		}
		fmt.Fprintf(app.stdout, "%s processed %d, accepted %d, untrusted %d, failed %d\n",
			SuccessStyle.Render("✓"), stats.Processed, stats.Accepted, stats.Untrusted, stats.Failed)
		return nil
	}

	logger.Info("Monitoring trade offers", "traders", allow.Len(), "server", cfg.EmailServer, "user", cfg.EmailUsername)

	g, gctx := errgroup.WithContext(ctx)
	if reg != nil {
		g.Go(func() error {
			return metrics.Serve(gctx, cfg.MetricsAddr, metrics.Handler(reg, reg), app.logger("metrics", level))
		})
	}
	g.Go(func() error {
		return p.Run(gctx)
	})
	return g.Wait()
}

func cycleIssue(err error) issue.Id {
	if errors.Is(err, mailbox.ErrLoginFailed) {
		return issue.MailboxLoginFailedId
	}
	return 0
}
