package main

import (
	"bufio"
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/steamwatch/steamwatch/internal/config"
	"github.com/steamwatch/steamwatch/internal/mock"
	"github.com/steamwatch/steamwatch/internal/report"
	"github.com/steamwatch/steamwatch/internal/steam"
	"github.com/steamwatch/steamwatch/internal/tailer"
	"github.com/steamwatch/steamwatch/internal/tracker"
	"github.com/steamwatch/steamwatch/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	interval := flag.Float64("i", 0, "Report interval in seconds (overrides config)")
	logPath := flag.String("log", "", "Explicit content_log path (overrides discovery)")
	mockMode := flag.Bool("mock", false, "Generate a synthetic log instead of watching Steam")
	timeout := flag.Duration("timeout", 0, "Exit after this duration (0 = run until stopped)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *interval > 0 {
		cfg.Monitor.ReportInterval = config.Duration(*interval * float64(time.Second))
	}
	if *logPath != "" {
		cfg.Steam.LogPath = *logPath
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	state := tracker.NewState()

	var wg sync.WaitGroup

	var resolver report.NameResolver
	var path string
	if *mockMode {
		path = filepath.Join(os.TempDir(), "steamwatch_mock_log.txt")
		// Truncate up front so the tailer's initial open cannot race the
		// generator's first append.
		if err := os.WriteFile(path, nil, 0644); err != nil {
			log.Fatalf("Failed to create mock log: %v", err)
		}
		gen := mock.NewGenerator(path, 500*time.Millisecond)
		wg.Add(1)
		go func() {
			defer wg.Done()
			gen.Run(ctx)
		}()
		resolver = mock.Names{}
	} else {
		path = cfg.Steam.LogPath
		root := cfg.Steam.Root
		if path == "" || root == "" {
			found, err := steam.FindRoot(root)
			if err != nil {
				log.Fatalf("Steam installation not found: %v", err)
			}
			root = found
			if path == "" {
				path = steam.LogPath(root)
			}
		}
		resolver = steam.NewResolver(steam.Libraries(root))
	}

	log.Printf("Watching: %s", path)
	log.Printf("Report interval: %s", cfg.Monitor.ReportInterval.Std())

	tl := tailer.New(path, state,
		tailer.WithWindowBytes(cfg.Monitor.ReplayWindowBytes),
		tailer.WithPollInterval(cfg.Monitor.PollInterval.Std()),
		tailer.WithErrorBackoff(cfg.Monitor.ErrorBackoff.Std()),
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := tl.Run(ctx); err != nil {
			log.Printf("Tailer stopped: %v", err)
		}
	}()

	opts := []report.Option{report.WithStaleAfter(cfg.Monitor.StaleAfter.Std())}
	var broadcaster *ws.Broadcaster
	if cfg.Server.Enabled {
		broadcaster = ws.NewBroadcaster(state)
		opts = append(opts, report.WithNotify(broadcaster.PublishReport))

		wg.Add(1)
		go func() {
			defer wg.Done()
			broadcaster.Run(ctx, cfg.Server.SnapshotInterval.Std())
		}()

		mux := http.NewServeMux()
		ws.NewServer(broadcaster).SetupRoutes(mux)
		go func() {
			if err := ws.ListenAndServe(cfg.Server.Host, cfg.Server.Port, mux); err != nil {
				log.Printf("Status server error: %v", err)
			}
		}()
	}

	rep := report.New(state, resolver, os.Stdout, cfg.Monitor.ReportInterval.Std(), opts...)
	wg.Add(1)
	go func() {
		defer wg.Done()
		rep.Run(ctx)
	}()

	log.Println("Press 'q' or Enter to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	quitCh := make(chan struct{}, 1)
	go watchStdin(quitCh)

	var timeoutCh <-chan time.Time
	if *timeout > 0 {
		timer := time.NewTimer(*timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case <-sigCh:
	case <-quitCh:
	case <-timeoutCh:
	}

	log.Println("Shutting down...")
	cancel()
	wg.Wait()
	log.Println("Stopped.")
}

// watchStdin signals quitCh when the operator types q (or a bare Enter).
func watchStdin(quitCh chan<- struct{}) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		text := strings.TrimSpace(strings.ToLower(scanner.Text()))
		if text == "" || text == "q" {
			quitCh <- struct{}{}
			return
		}
	}
}
