package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/lossyudp/internal/eventlog"
	"github.com/danmuck/lossyudp/internal/logging"
	"github.com/danmuck/lossyudp/internal/logs"
	"github.com/danmuck/lossyudp/internal/sender"
)

const drainTimeout = 2 * time.Second

func main() {
	logging.ConfigureRuntime()
	if err := run(); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "sendctl: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := resolveConfig(os.Args[1:], os.Stderr)
	if err != nil {
		return err
	}
	rt, err := cfg.Sender()
	if err != nil {
		return err
	}

	conn, err := sender.Dial(cfg.Bind, cfg.TargetAddr())
	if err != nil {
		return err
	}
	defer conn.Close()

	var sink eventlog.Sink = eventlog.Discard{}
	if addr := cfg.LogAddr(); addr != "" {
		emitter := eventlog.NewEmitter(eventlog.DefaultConfig(addr))
		defer emitter.Close(drainTimeout)
		sink = emitter
	}

	s, err := sender.New(conn, rt, sink)
	if err != nil {
		return err
	}
	logs.Infof(
		"sendctl.run session=%s bind=%s target=%s timeout=%s max_retries=%d codec=%s",
		s.Session(), conn.LocalAddr(), cfg.TargetAddr(), rt.Timeout, rt.MaxRetries, rt.Codec.Name(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	type result struct {
		sum sender.Summary
		err error
	}
	done := make(chan result, 1)
	go func() {
		sum, err := s.RunConsole(ctx, os.Stdin, os.Stdout)
		done <- result{sum, err}
	}()

	select {
	case res := <-done:
		if res.err != nil && ctx.Err() == nil {
			return res.err
		}
		logs.Infof("sendctl.run done acked=%d failed=%d", res.sum.Acked, res.sum.Failed)
	case <-ctx.Done():
		logs.Infof("sendctl.run interrupted next_seq=%d", s.NextSeq())
	}
	return nil
}
