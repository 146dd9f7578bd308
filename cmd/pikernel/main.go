// Command pikernel boots the four-core scheduler simulation and drives an
// interactive monitor over the keyboard, grounded on the flag-parsing and
// signal-handling shape of SchawnnDev-awesomeVM/cmd/mipsvm/main.go,
// generalized from "run one CPU until Ctrl+C" to "boot four cores, accept
// single-keypress monitor commands, shut down cleanly on Ctrl+C or 'q'."
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "go.uber.org/automaxprocs"

	"rpi4kernel/internal/config"
	"rpi4kernel/internal/kernel"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file (defaults built in if omitted)")
	verbose := flag.Bool("v", false, "enable verbose (debug-level) logging regardless of config")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("pikernel: loading config: %v", err)
		}
		cfg = loaded
	}
	if *verbose {
		cfg.LogLevel = "debug"
	}

	k := kernel.New(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	bootDone := make(chan error, 1)
	go func() { bootDone <- k.Boot(ctx, idleWorkloads()) }()

	fmt.Println("pikernel booted. Commands: t=force tick  s<core>=SGI-kick a core  l=list queues  q=quit")
	mon := newMonitor(k, cancel)
	go mon.run(ctx)

	if err := <-bootDone; err != nil && ctx.Err() == nil {
		log.Fatalf("pikernel: core loop error: %v", err)
	}
}
