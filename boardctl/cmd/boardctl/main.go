package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/nexusboard/nexusboard/boardctl/internal/config"
	"github.com/nexusboard/nexusboard/boardctl/internal/scraper"
	"github.com/nexusboard/nexusboard/boardctl/internal/shipper"
	"github.com/nexusboard/nexusboard/boardctl/internal/watch"
	"github.com/nexusboard/nexusboard/pkg/notifyrpc"
)

const (
	notifyTimeout = 10 * time.Second
	drainTimeout  = 30 * time.Second
	maxLineBytes  = 1 << 20
)

const usage = `usage: boardctl [-config path] [-v] <command> [flags]

commands:
  notify  -board B -event E [-data JSON]   push one board event
  relay                                    ship NDJSON notifications from stdin
  stats                                    print gateway metrics
  watch   -board B                         join a board and print its events
`

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	_ = godotenv.Load()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cmd, args := flag.Arg(0), flag.Args()[1:]
	switch cmd {
	case "notify":
		err = runNotify(ctx, cfg, args)
	case "relay":
		err = runRelay(ctx, cfg, args)
	case "stats":
		err = runStats(ctx, cfg, args)
	case "watch":
		err = runWatch(ctx, cfg, args)
	default:
		fmt.Fprintf(os.Stderr, "boardctl: unknown command %q\n\n", cmd)
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		slog.Error("boardctl: "+cmd+" failed", "err", err)
		os.Exit(1)
	}
}

func runNotify(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("notify", flag.ExitOnError)
	board := fs.String("board", "", "board id")
	event := fs.String("event", "", "event name")
	data := fs.String("data", "", "optional JSON payload")
	fs.Parse(args) //nolint:errcheck // ExitOnError

	req := &notifyrpc.NotifyRequest{BoardID: *board, Event: *event}
	if *data != "" {
		if !json.Valid([]byte(*data)) {
			return errors.New("-data is not valid JSON")
		}
		req.Data = json.RawMessage(*data)
	}

	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()

	conn, err := shipper.Dial(ctx, cfg.GRPCEndpoint)
	if err != nil {
		return fmt.Errorf("dial %s: %w", cfg.GRPCEndpoint, err)
	}
	defer conn.Close()

	resp, err := notifyrpc.NewNotifyClient(conn).NotifyBoard(shipper.WithAPIKey(ctx, cfg.Auth), req)
	if err != nil {
		return err
	}
	fmt.Printf("delivered to %d member(s)\n", resp.Delivered)
	return nil
}

// runRelay ships stdin until EOF, then waits for the buffer to drain.
func runRelay(ctx context.Context, cfg *config.Config, _ []string) error {
	s := shipper.New(*cfg)
	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	go s.Run(runCtx)

	sc := bufio.NewScanner(os.Stdin)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		req, err := shipper.ParseLine(sc.Bytes())
		if errors.Is(err, shipper.ErrBlankLine) {
			continue
		}
		if err != nil {
			slog.Warn("relay: skipping line", "line", lineNo, "err", err)
			continue
		}
		s.Ship(req)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}

	deadline := time.NewTimer(drainTimeout)
	defer deadline.Stop()
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for s.Pending() > 0 {
		select {
		case <-ctx.Done():
			return nil
		case <-deadline.C:
			return fmt.Errorf("%d notification(s) undelivered after %s", s.Pending(), drainTimeout)
		case <-tick.C:
		}
	}
	slog.Info("relay: done", "lines", lineNo)
	return nil
}

func runStats(ctx context.Context, cfg *config.Config, _ []string) error {
	sum, err := scraper.New(cfg.MetricsURL, nil).Scrape(ctx)
	if err != nil {
		return err
	}
	_, err = sum.WriteTo(os.Stdout)
	return err
}

func runWatch(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	board := fs.String("board", "", "board id")
	url := fs.String("url", cfg.WSURL, "gateway WebSocket URL")
	fs.Parse(args) //nolint:errcheck // ExitOnError

	return watch.Run(ctx, watch.Options{URL: *url, Board: *board, Token: cfg.Token()}, os.Stdout)
}
