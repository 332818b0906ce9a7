package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/playforge/netcore/internal/metrics"
)

func startMetricsLogger(ctx context.Context, interval time.Duration, l *slog.Logger, wg *sync.WaitGroup) {
	if interval <= 0 {
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				snap := metrics.Snap()
				l.Info("metrics_snapshot",
					"handshakes_accepted", snap.HandshakesAccepted,
					"handshakes_rejected", snap.HandshakesRejected,
					"fast_rx", snap.FastRx,
					"fast_malformed", snap.FastMalformed,
					"broadcasts", snap.Broadcasts,
					"broadcast_errors", snap.BroadcastErrors,
					"sessions_active", snap.SessionsActive,
					"errors", snap.Errors,
				)
			case <-ctx.Done():
				return
			}
		}
	}()
}
