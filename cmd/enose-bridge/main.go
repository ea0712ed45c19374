package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	enosebridge "github.com/ghalamif/enosebridge"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "run":
		err = runCommand(os.Args[2:])
	case "validate":
		err = validateCommand(os.Args[2:])
	case "stats":
		err = statsCommand(os.Args[2:])
	case "send":
		err = sendCommand(os.Args[2:])
	case "ports":
		err = portsCommand()
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		log.Fatalf("enose-bridge %s: %v", cmd, err)
	}
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to bridge configuration file (defaults apply when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := enosebridge.LoadConfig(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	bridge, err := enosebridge.New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return bridge.Run(ctx)
}

func validateCommand(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to configuration file to validate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := enosebridge.LoadConfig(*cfgPath)
	if err != nil {
		return err
	}
	fmt.Printf("config %s looks good (ingest %s, command %s, backend %s, serial %s)\n",
		orDefaults(*cfgPath), cfg.Ingest.Addr, cfg.Command.Addr, cfg.Persistence.Backend, cfg.Serial.Port)
	return nil
}

func orDefaults(path string) string {
	if path == "" {
		return "<defaults>"
	}
	return path
}

func sendCommand(args []string) error {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	addr := fs.String("addr", "127.0.0.1:8082", "Bridge command endpoint")
	timeout := fs.Duration("timeout", 5*time.Second, "Connect timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("expected exactly one command, e.g. START_SAMPLING")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	command := fs.Arg(0)
	if err := enosebridge.SendCommand(ctx, *addr, command); err != nil {
		return err
	}
	fmt.Printf("sent %s to %s\n", enosebridge.ParseCommand(command), *addr)
	return nil
}

func portsCommand() error {
	ports, err := enosebridge.ListSerialPorts()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println("no serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Println(p)
	}
	return nil
}

func statsCommand(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	url := fs.String("url", "http://localhost:9100/metrics", "Prometheus metrics endpoint")
	interval := fs.Duration("interval", 2*time.Second, "Refresh interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	fmt.Printf("Streaming metrics from %s (Ctrl+C to stop)\n", *url)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := printMetricsSnapshot(*url); err != nil {
				fmt.Fprintf(os.Stderr, "stats error: %v\n", err)
			}
		}
	}
}

var statsTargets = []string{
	"enose_records_ingested_total",
	"enose_records_malformed_total",
	"enose_persist_failure_total",
	"enose_history_records",
	"enose_command_queue_length",
}

func printMetricsSnapshot(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	values, err := scrapeMetrics(resp.Body, statsTargets)
	if err != nil {
		return err
	}

	fmt.Printf("[%s] ingested=%.0f malformed=%.0f persist_failed=%.0f history=%.0f queued=%.0f\n",
		time.Now().Format(time.RFC3339),
		values["enose_records_ingested_total"],
		values["enose_records_malformed_total"],
		values["enose_persist_failure_total"],
		values["enose_history_records"],
		values["enose_command_queue_length"],
	)
	return nil
}

// scrapeMetrics pulls unlabelled sample values for keys out of a Prometheus
// text exposition.
func scrapeMetrics(r io.Reader, keys []string) (map[string]float64, error) {
	targets := make(map[string]float64, len(keys))
	for _, k := range keys {
		targets[k] = 0
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		for key := range targets {
			if strings.HasPrefix(line, key+" ") {
				var value float64
				if _, err := fmt.Sscanf(line, key+" %g", &value); err == nil {
					targets[key] = value
				}
			}
		}
	}
	return targets, scanner.Err()
}

func printUsage() {
	fmt.Printf(`enose-bridge

Usage:
  enose-bridge <command> [flags]

Commands:
  run        Start the bridge using the provided config (defaults when omitted)
  validate   Load and validate a config file without starting the bridge
  stats      Poll the Prometheus metrics endpoint and print live counters
  send       Send one command (START_SAMPLING, STOP_SAMPLING, SAVE_INFLUX) to a running bridge
  ports      List serial ports visible to this host

Examples:
  enose-bridge run -config ./config.yaml
  enose-bridge validate -config ./config.yaml
  enose-bridge stats -url http://localhost:9100/metrics -interval 1s
  enose-bridge send -addr 127.0.0.1:8082 START_SAMPLING
`)
}
