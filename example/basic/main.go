package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	enosebridge "github.com/ghalamif/enosebridge"
)

func main() {
	cfg, err := enosebridge.LoadConfig("../../config.example.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	bridge, err := enosebridge.New(cfg)
	if err != nil {
		log.Fatalf("build bridge: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := bridge.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("bridge exited: %v", err)
	}
}
