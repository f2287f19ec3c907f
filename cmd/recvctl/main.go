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
	"github.com/danmuck/lossyudp/internal/receiver"
)

const drainTimeout = 2 * time.Second

func main() {
	logging.ConfigureRuntime()
	if err := run(); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "recvctl: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := resolveConfig(os.Args[1:], os.Stderr)
	if err != nil {
		return err
	}
	rt, err := cfg.Receiver()
	if err != nil {
		return err
	}
	rt.OnPayload, rt.OnDuplicate = receiver.PrintPayloads(os.Stdout)

	conn, err := receiver.Listen(cfg.ListenAddr())
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

	r, err := receiver.New(conn, rt, sink)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := r.Serve(ctx); err != nil {
		return err
	}
	st := r.Stats()
	logs.Infof("recvctl.run stopped accepted=%d duplicates=%d discarded=%d", st.Accepted, st.Duplicates, st.Discarded)
	return nil
}
