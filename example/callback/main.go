package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	enosebridge "github.com/ghalamif/enosebridge"
)

func main() {
	cfg := enosebridge.DefaultConfig()
	cfg.Metrics.Addr = ""

	printRecord := func(_ context.Context, rec enosebridge.Record) error {
		fmt.Printf("%s no2=%g ethanol=%g voc=%g co=%g state=%d level=%d\n",
			time.Unix(0, rec.Timestamp).Format(time.RFC3339Nano),
			rec.NO2GM, rec.EthanolGM, rec.VOCGM, rec.COGM,
			rec.State, rec.Level,
		)
		return nil
	}

	bridge, err := enosebridge.New(cfg, enosebridge.WithRecordWriter(enosebridge.NewCallbackWriter("stdout", printRecord)))
	if err != nil {
		log.Fatalf("build bridge: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := bridge.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("bridge exited: %v", err)
	}
}
