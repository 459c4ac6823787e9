// Command worker runs the Reminder Scheduler: a ticker that periodically
// sweeps open support tickets for SLA breaches and reminder emails.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"csms/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := app.Bootstrap(ctx)
	if err != nil {
		panic(err)
	}
	defer components.Close()

	logger := components.Logger
	interval := time.Duration(components.Config.ReminderCheckMinutes) * time.Minute
	logger.Info("reminder scheduler starting", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sweep := func() {
		sweepCtx, cancel := context.WithTimeout(ctx, interval)
		defer cancel()

		n, err := components.Tickets.RunSLASweep(sweepCtx)
		if err != nil {
			logger.Error("sla sweep failed", zap.Error(err))
			return
		}
		if n > 0 {
			logger.Info("sla sweep completed", zap.Int("tickets_touched", n))
		}
	}

	sweep()
	for {
		select {
		case <-ticker.C:
			sweep()
		case <-ctx.Done():
			logger.Info("reminder scheduler stopping")
			return
		}
	}
}
