package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/lossyudp/internal/dashboard"
	"github.com/danmuck/lossyudp/internal/logging"
	"github.com/danmuck/lossyudp/internal/logs"
	"github.com/danmuck/lossyudp/internal/metrics"
	"github.com/danmuck/lossyudp/internal/observability"
	"github.com/danmuck/lossyudp/internal/relay"
)

const (
	redrawInterval  = 250 * time.Millisecond
	publishInterval = 500 * time.Millisecond
	stopTimeout     = 5 * time.Second
)

func main() {
	logging.ConfigureRuntime()
	if err := run(); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "relayctl: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := resolveConfig(os.Args[1:], os.Stderr)
	if err != nil {
		return err
	}
	observability.RegisterMetrics()

	agg := metrics.NewAggregator()
	listener, err := metrics.Listen(cfg.LogListenAddr(), agg)
	if err != nil {
		return fmt.Errorf("bind log port: %w", err)
	}
	r, err := relay.New(cfg.Relay())
	if err != nil {
		return err
	}

	var httpLn net.Listener
	if cfg.HTTPAddr != "" {
		httpLn, err = net.Listen("tcp", cfg.HTTPAddr)
		if err != nil {
			_ = r.Close()
			return fmt.Errorf("bind http: %w", err)
		}
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	go func() {
		if err := listener.Serve(ctx); err != nil {
			logs.Errf("relayctl.run log listener stopped err=%v", err)
		}
	}()
	relayDone := make(chan error, 1)
	go func() { relayDone <- r.Run(ctx) }()

	state := dashboard.Collect(agg, listener, r)
	if httpLn != nil {
		hub := dashboard.NewHub()
		go hub.Run(ctx)
		go hub.Publish(ctx, publishInterval, state)
		router := dashboard.NewRouter(ctx, dashboard.RouterConfig{
			ID:          r.ID(),
			CORSOrigins: cfg.CorsOrigins,
			State:       state,
			Hub:         hub,
		})
		go func() {
			if err := dashboard.Serve(ctx, httpLn, router); err != nil {
				logs.Errf("relayctl.run http stopped err=%v", err)
			}
		}()
	}

	term := &dashboard.Terminal{In: os.Stdin, Out: os.Stdout, State: state, Interval: redrawInterval}
	if err := term.Run(ctx); err != nil {
		logs.Warnf("relayctl.run terminal err=%v", err)
	}
	cancel()

	select {
	case err := <-relayDone:
		if err != nil {
			return err
		}
	case <-time.After(stopTimeout):
		return errors.New("relay did not stop in time")
	}

	m := agg.Snapshot()
	logs.Infof(
		"relayctl.run stopped sent=%d received=%d ack_sent=%d ack_received=%d",
		m.Sent, m.Received, m.AckSent, m.AckReceived,
	)
	return nil
}
