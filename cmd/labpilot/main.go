package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/minwoo/labpilot/internal/agent"
	"github.com/minwoo/labpilot/internal/gateway"
	"github.com/minwoo/labpilot/internal/governance"
	"github.com/minwoo/labpilot/internal/intent"
	"github.com/minwoo/labpilot/internal/invoker"
	"github.com/minwoo/labpilot/internal/observability"
	"github.com/minwoo/labpilot/internal/plan"
	"github.com/minwoo/labpilot/internal/registry"
	"github.com/minwoo/labpilot/internal/store"
	"github.com/minwoo/labpilot/pkg/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	observability.PrintBanner()
	observability.InitializeTerminal()

	// Route all log output through the terminal mutex so it never
	// interrupts the dashboard's cursor save/restore sequence.
	log.SetOutput(observability.NewTermWriter())

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	reg := registry.New()
	if err := reg.Load(cfg.Services); err != nil {
		log.Fatalf("Failed to load service descriptors: %v", err)
	}

	history, err := store.NewHistoryStore(cfg.Memory.Path)
	if err != nil {
		log.Fatal(err)
	}
	defer history.Close()

	prompts := agent.NewPromptManager(cfg.Prompts)
	logger := observability.NewLogger()

	gov := governance.NewDefaultPolicyEngine()
	// Default safety rules: never forward destructive SQL fragments to
	// the natural-language query service.
	_ = gov.DenyArguments(`(?i)drop\s+table`)
	_ = gov.DenyArguments(`(?i)delete\s+from`)
	_ = gov.DenyArguments(`(?i)truncate\s+table`)

	// Initialize LLM (using default enabled provider)
	pName, pCfg := cfg.GetDefaultProvider()

	var model llms.Model
	switch pName {
	case "openai", "openrouter":
		opts := []openai.Option{
			openai.WithToken(pCfg.APIKey),
			openai.WithModel(pCfg.Model),
		}
		if pCfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(pCfg.BaseURL))
		}
		model, err = openai.New(opts...)
		if err != nil {
			log.Fatal(err)
		}
	case "":
		log.Println("Warning: no enabled provider found, answers will use the deterministic fallback")
	default:
		log.Fatalf("Provider %s not yet implemented in main", pName)
	}

	httpInvoker := invoker.NewHTTPInvoker()
	executor := agent.NewExecutor(httpInvoker, gov, logger)
	runner := agent.NewRunner(executor, logger)
	synth := agent.NewSynthesizer(model, prompts, logger)
	matcher := intent.NewMatcher(cfg.Orchestrator.MaxCandidates)
	builder := plan.NewBuilder(cfg.Orchestrator.PlanBudget.Std(), cfg.Orchestrator.RetryAttempts)

	orch := agent.NewOrchestrator(reg, matcher, builder, runner, synth, history, logger)

	reload := func() error {
		next, err := config.LoadConfig(*configPath)
		if err != nil {
			return err
		}
		return reg.Load(next.Services)
	}

	gw := gateway.NewHTTPGateway(cfg.App.Listen, orch, reg, history, reload)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	monitor := agent.NewMonitor(reg, httpInvoker, logger)
	go monitor.Start(ctx)

	// Start Live Resource Dashboard (1-second updates)
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.PrintLiveStatus()
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.Heartbeat()
				logger.LogHeartbeat()
			}
		}
	}()

	// Start Gateway in a goroutine so we can wait for context in the main loop
	go func() {
		if err := gw.Start(); err != nil {
			log.Printf("\033[91m[ FAIL ] GATEWAY CRITICAL ERROR: %v\033[0m", err)
			stop() // stop caller if gateway dies
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := gw.Stop(shutdownCtx); err != nil {
		log.Printf("Gateway shutdown error: %v", err)
	}

	// Reset terminal aesthetics
	observability.CleanupTerminal()

	log.Println("\033[95m[ EXIT ] ORCHESTRATOR STOPPED. GOODBYE.\033[0m")
}
