package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/abhisek/profilebot/internal/filelock"
	"github.com/abhisek/profilebot/internal/logging"
	"github.com/abhisek/profilebot/internal/report"
	"github.com/abhisek/profilebot/internal/transport/httpapi"
	"github.com/abhisek/profilebot/internal/transport/larkbot"
)

// shutdownGrace bounds how long running report jobs may finish on exit.
const shutdownGrace = 60 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot with the HTTP API and, when configured, the Lark transport",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.HTTP.Addr = addr
		}
		log := logging.New("serve")

		lock, err := filelock.Acquire(cfg.Scratch.Dir)
		if err != nil {
			return fmt.Errorf("instance lock: %w", err)
		}
		defer lock.Unlock()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		svc, err := buildServices(ctx, cfg, buildOpts{})
		if err != nil {
			return err
		}
		defer svc.Close()

		sweeper, err := startSweeper(cfg.Scratch.Dir, cfg.Scratch.Retention)
		if err != nil {
			return err
		}
		defer sweeper.Stop()

		routes := newNotifyRouter(cfg.Session.TTL)
		svc.runtime.SetNotifier(routes)

		outbox := httpapi.NewOutbox()
		routes.register("http", outbox)
		srv := httpapi.New(httpapi.Options{
			Handler:  routes.handler(svc.runtime, "http"),
			Outbox:   outbox,
			Gatherer: svc.registry,
		})

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return srv.Run(gctx, cfg.HTTP.Addr) })

		creds, ok, err := cfg.LarkCredentials()
		switch {
		case err != nil:
			return err
		case !ok:
			log.Info("lark credentials not set, lark transport off")
		default:
			gw, err := larkbot.NewGateway(larkbot.Config{
				AppID:      creds.AppID,
				AppSecret:  creds.AppSecret,
				BaseDomain: cfg.Lark.OpenBaseURL,
			}, routes.handler(svc.runtime, "lark"), nil)
			if err != nil {
				return err
			}
			routes.register("lark", gw)
			g.Go(func() error { return gw.Start(gctx) })
		}

		err = g.Wait()
		log.Info("shutting down, waiting for report jobs")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if serr := svc.runtime.Shutdown(shutdownCtx); serr != nil {
			log.Warn("report jobs still running at exit", "err", serr)
		}
		if err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

// startSweeper removes stale scratch directories now and then hourly.
func startSweeper(dir string, retention time.Duration) (*cron.Cron, error) {
	log := logging.New("sweeper")
	sweep := func() {
		n, err := report.SweepScratch(dir, time.Now().Add(-retention))
		if err != nil {
			log.Warn("scratch sweep failed", "dir", dir, "err", err)
			return
		}
		if n > 0 {
			log.Info("removed stale report directories", "count", n)
		}
	}

	c := cron.New()
	if _, err := c.AddFunc("@hourly", sweep); err != nil {
		return nil, fmt.Errorf("schedule scratch sweep: %w", err)
	}
	sweep()
	c.Start()
	return c, nil
}

func init() {
	serveCmd.Flags().String("addr", "", "HTTP listen address (overrides http.addr)")
}
