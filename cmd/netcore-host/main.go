package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/playforge/netcore/internal/discovery"
	"github.com/playforge/netcore/internal/metrics"
	"github.com/playforge/netcore/internal/server"
)

// portOf extracts the numeric port from a host:port address, returning 0
// if addr is malformed.
func portOf(addr string) int {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	n, _ := strconv.Atoi(p)
	return n
}

func main() {
	cfg, showVersion := parseFlags()
	if showVersion {
		fmt.Printf("netcore-host %s (commit %s, built %s)\n", version, commit, date)
		return
	}
	if cfg == nil {
		os.Exit(1)
	}
	l := setupLogger(cfg.logFormat, cfg.logLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup
	startMetricsLogger(ctx, cfg.logMetricsEvery, l, &wg)

	var discoverySvc discovery.Service
	switch cfg.discoveryMode {
	case "lan":
		discoverySvc = discovery.NewLAN()
	case "mdns":
		discoverySvc = discovery.NewMDNS()
	case "none":
		discoverySvc = nil
	}

	srv := server.NewServer(
		server.WithListenAddr(cfg.listenAddr),
		server.WithGameID(cfg.gameID),
		server.WithDiscovery(discoverySvc),
		server.WithLogger(l),
		server.WithMaxClients(cfg.maxClients),
		server.WithHandshakeTimeout(cfg.handshakeTO),
		server.WithReadDeadline(cfg.clientReadTO),
	)

	go func() {
		if err := srv.Serve(ctx); err != nil {
			l.Error("server_error", "error", err)
			cancel()
		}
	}()

	select {
	case <-srv.Ready():
		l.Info("host_banner", "reachable_at", fmt.Sprintf("%s:%d", localOutboundIP(), portOf(srv.Addr())), "game_id", cfg.gameID)
	case <-ctx.Done():
	}

	metrics.SetReadinessFunc(func() bool {
		select {
		case <-srv.Ready():
		default:
			return false
		}
		return ctx.Err() == nil
	})
	if cfg.metricsAddr != "" {
		metrics.InitBuildInfo(version, commit, date)
		httpSrv := metrics.StartHTTP(cfg.metricsAddr)
		defer func() { _ = httpSrv.Shutdown(context.Background()) }()
	}

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		l.Info("shutdown_signal", "signal", sig.String())
	case <-ctx.Done():
		l.Warn("shutting_down_after_server_error")
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error("shutdown_error", "error", err)
	}
	wg.Wait()
}
