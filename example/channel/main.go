package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	enosebridge "github.com/ghalamif/enosebridge"
)

// Feeds records into a channel and drives the device from the consumer side:
// sampling stops once the bridge has seen enough readings.
func main() {
	cfg := enosebridge.DefaultConfig()

	writer, records, closeRecords := enosebridge.NewChannelWriter("fanout", 32)
	defer closeRecords()

	bridge, err := enosebridge.New(cfg, enosebridge.WithRecordWriter(writer))
	if err != nil {
		log.Fatalf("build bridge: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go consume(ctx, bridge, records, 100)

	if err := bridge.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("bridge exited: %v", err)
	}
}

func consume(ctx context.Context, bridge *enosebridge.Bridge, records <-chan enosebridge.Record, limit int) {
	var n int
	for rec := range records {
		n++
		fmt.Printf("[%d] co_mics=%g voc_mics=%g\n", n, rec.COMics, rec.VOCMics)
		if n == limit {
			if err := bridge.Dispatch(ctx, enosebridge.CmdStopSampling); err != nil {
				log.Printf("stop sampling: %v", err)
			}
		}
	}
}
