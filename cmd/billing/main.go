package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/robfig/cron/v3"

	"github.com/ManuelReschke/ServicePortal/internal/pkg/billing"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/cache"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/database"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/env"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/portal"
)

func main() {
	once := flag.Bool("once", false, "run one billing cycle and exit")
	flag.Parse()

	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	svc := portal.NewServices(database.GetDB(), portal.OptionsFromEnv())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *once {
		if err := runCycle(ctx, svc); err != nil {
			log.Errorf("[Billing] run could not start: %v", err)
			os.Exit(1)
		}
		return
	}

	schedule := env.GetEnv("BILLING_SCHEDULE", "0 5 * * *")
	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(schedule, func() {
		err := runCycle(ctx, svc)
		switch {
		case errors.Is(err, billing.ErrRunInProgress):
			log.Info("[Billing] another instance holds the run lock, skipping")
		case err != nil:
			log.Errorf("[Billing] scheduled run skipped: %v", err)
		}
	}); err != nil {
		log.Fatalf("[Billing] invalid BILLING_SCHEDULE %q: %v", schedule, err)
	}
	c.Start()
	log.Infof("[Billing] scheduler started (%s UTC)", schedule)

	<-ctx.Done()
	log.Info("[Billing] shutting down, waiting for the running cycle")
	<-c.Stop().Done()
	log.Info("[Billing] stopped")
}

func runCycle(ctx context.Context, svc *portal.Services) error {
	summary, err := svc.Billing.RunBillingCycle(ctx, svc.Clock.Now())
	if err != nil {
		return err
	}
	log.Infof("[Billing] cycle done: %d due, %d charged, %d failed, %d manual, %d errors, %d overdue",
		summary.Due, summary.Charged, summary.Failed, summary.Manual, summary.Errors, summary.Overdue)
	if summary.Interrupted {
		log.Warn("[Billing] cycle interrupted by shutdown")
	}
	return nil
}
