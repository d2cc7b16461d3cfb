package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"

	flow "github.com/tailored-agentic-units/flow"
	"github.com/tailored-agentic-units/flow/bridge"
	"github.com/tailored-agentic-units/flow/engine/openai"
	"github.com/tailored-agentic-units/flow/observability"
	"github.com/tailored-agentic-units/flow/session"
)

func main() {
	var (
		configFile  = flag.String("config", "", "Path to flow config JSON file (required)")
		prompt      = flag.String("prompt", "", "Message to send through the flow")
		agentName   = flag.String("agent", "", "Agent to address (overrides config)")
		sessionPath = flag.String("session", "", "Path to JSONL session file (overrides config)")
		listen      = flag.String("listen", "", "Serve the flow over websocket on this address instead of running once")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging to stderr")
	)
	flag.Parse()

	if *configFile == "" || (*prompt == "" && *listen == "") {
		fmt.Fprintln(os.Stderr, "Usage: flow -config <file> -prompt <text> | flow -config <file> -listen <addr>")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *agentName != "" {
		cfg.Agent = *agentName
	}
	if *sessionPath != "" {
		cfg.Session = session.Config{Backend: session.BackendFile, Path: *sessionPath}
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	observability.RegisterObserver("slog", observability.NewSlogObserver(logger))

	observer, err := cfg.observer()
	if err != nil {
		log.Fatalf("Failed to resolve observer: %v", err)
	}

	reg, err := cfg.registry()
	if err != nil {
		log.Fatalf("Failed to build agent registry: %v", err)
	}
	agent, err := reg.Get(cfg.Agent)
	if err != nil {
		log.Fatalf("Failed to resolve agent %q: %v", cfg.Agent, err)
	}

	sess, err := session.New(&cfg.Session)
	if err != nil {
		log.Fatalf("Failed to open session: %v", err)
	}
	engine, err := openai.New(cfg.Engine)
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}

	chat := func(ctx context.Context, msg string) (string, error) {
		res, err := agent.Call(msg).Stream().Run(ctx)
		if err != nil {
			return "", err
		}
		return res.Text(), nil
	}

	opts := []flow.RunnerOption{
		flow.WithRunnerSession(sess),
		flow.WithRunnerEngine(engine),
		flow.WithRunnerObserver(observer),
	}

	if *listen != "" {
		// Server mode: the bridge surfaces events to websocket clients, so
		// no terminal handler is bound.
		runner := flow.NewRunner(chat, opts...)
		srv := bridge.NewServer(runner, bridge.WithServerObserver[string](observer))
		logger.Info("serving flow over websocket", "addr", *listen)
		log.Fatal(http.ListenAndServe(*listen, srv))
	}

	runner := flow.NewRunner(chat, append(opts, flow.WithRunnerHandler(printEvent))...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if _, err := runner.Run(ctx, *prompt); err != nil {
		log.Fatalf("Flow run failed: %v", err)
	}
	fmt.Println()
}

// printEvent renders flow events for an interactive terminal: phase labels
// as bracketed markers, streaming deltas as raw text, completed results on
// their own line.
func printEvent(_ context.Context, ev flow.Event) error {
	switch e := ev.(type) {
	case flow.PhaseStarted:
		fmt.Printf("[%s]\n", e.Label)
	case flow.PhaseEnded:
		fmt.Printf("[/%s]\n", e.Label)
	case flow.StreamDelta:
		fmt.Print(e.Delta)
	case flow.AgentResult:
		fmt.Println(e.Content)
	}
	return nil
}
