// cuecall-display is a standalone console display client: it polls a cuecall
// server's status endpoint and renders a drift-corrected countdown for one
// event.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/rfoster/cuecall/internal/config"
	"github.com/rfoster/cuecall/internal/logging"
	"github.com/rfoster/cuecall/internal/sync"
)

func main() {
	var (
		configPath = pflag.StringP("config", "c", "", "path to JSONC config file")
		serverURL  = pflag.String("server", "http://localhost:8080", "cuecall server base URL")
		eventID    = pflag.Int64("event", 0, "event id to display (required)")
		logLevel   = pflag.String("log-level", "", "debug, info, warn, or error (overrides config)")
	)
	pflag.Parse()

	if *eventID <= 0 {
		os.Stderr.WriteString("cuecall-display: --event is required\n")
		pflag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	engine := sync.New(
		sync.Config{
			EventID:          *eventID,
			TickInterval:     cfg.TickInterval(),
			ResyncInterval:   cfg.ResyncInterval(),
			ForceResyncAfter: cfg.ForceResyncInterval(),
		},
		sync.NewHTTPFetcher(strings.TrimRight(*serverURL, "/"), nil),
		render,
		logger.With("component", "display"),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		cancel()
	}()

	logger.Info("display running", "server", *serverURL, "event", *eventID)
	engine.Run(ctx)
	fmt.Println()
}

func render(d sync.Display) {
	var b strings.Builder
	if d.Main == nil {
		b.WriteString("-- no cue loaded --")
	} else {
		fmt.Fprintf(&b, "%-12s %s", d.Main.CueLabel, clock(d.Main.Remaining))
		if !d.Main.Running {
			b.WriteString(" (held)")
		}
	}
	for _, sub := range d.Subs {
		fmt.Fprintf(&b, "  | %s %s", sub.CueLabel, clock(sub.Remaining))
	}
	if d.StaleResyncs > 0 {
		fmt.Fprintf(&b, "  [stale x%d]", d.StaleResyncs)
	}
	fmt.Printf("\r\033[K%s", b.String())
}

// clock renders seconds as m:ss, keeping the sign for overtime.
func clock(seconds int) string {
	sign := ""
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}
	return fmt.Sprintf("%s%d:%02d", sign, seconds/60, seconds%60)
}
