package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"trainfeed/internal/app"
)

func main() {
	var (
		cfgPath    string
		replayPath string
	)
	flag.StringVar(&cfgPath, "config", "./trainfeed.yaml", "path to config file (yaml or json)")
	flag.StringVar(&replayPath, "replay", "", "metric log (jsonl) to replay through the reporter")
	flag.Parse()

	if replayPath == "" {
		fmt.Fprintln(os.Stderr, "usage: trainfeed -config trainfeed.yaml -replay metrics.jsonl")
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(cfgPath)
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}

	a.Start(ctx)
	err = a.Replay(ctx, replayPath)
	a.Stop(context.Background())
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}
}
