package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	ossignal "os/signal"
	"strings"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"tabot/config"
	"tabot/internal/api"
	"tabot/internal/exchange"
	"tabot/internal/execution"
	"tabot/internal/logger"
	"tabot/internal/metrics"
	"tabot/internal/notification"
	"tabot/internal/report"
	"tabot/internal/signal"
	"tabot/internal/strategy"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	cfgPath := flag.String("config", "", "strategy YAML file (optional)")
	listPresets := flag.Bool("presets", false, "print the built-in presets and exit")
	flag.Parse()

	if *listPresets {
		fmt.Println(strings.Join(config.Presets(), "\n"))
		return
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("[tabot] config: %v", err)
	}
	level, _ := config.ParseLevel(cfg.Log.Level)
	logger.InitWithFormat("tabot", level, cfg.Log.Format, os.Stderr)

	params := cfg.Params()
	log.Printf("[tabot] strategy %q on %s %s, symbols %v, min vote %.2f",
		params.Name, params.Market, params.Timeframe, params.Symbols, params.MinVote)

	ctx, stop := ossignal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Exchange: public Binance candles priced into a paper account.
	source := exchange.NewBinanceKlines(cfg.DataURL(), params.Market == exchange.MarketFutures)
	gw := exchange.NewPaper(cfg.Paper(), source)

	rules, err := signal.BuildAll(cfg.Strategy.Rules)
	if err != nil {
		log.Fatalf("[tabot] rules: %v", err)
	}

	// Metrics and health
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg)
	health := metrics.NewHealthStatus()

	// Journal
	journal, err := execution.NewJournal(cfg.Report.JournalPath)
	if err != nil {
		log.Fatalf("[tabot] journal: %v", err)
	}
	defer journal.Close()

	// Reporters
	hub := report.NewHub()
	hub.OnClients = func(n int) { m.WSClients.Set(float64(n)) }

	reporters := report.Multi{hub, report.NewJournal(journal), report.NewAlerts(buildNotifier(cfg.Notify))}
	if cfg.Report.Console {
		c := report.NewConsole(os.Stdout)
		c.Verbose = cfg.Report.Verbose
		reporters = append(reporters, c)
	}

	var rdb *goredis.Client
	if cfg.Report.Redis.Enabled {
		rcfg := report.RedisConfig{
			Addr:     cfg.Report.Redis.Addr,
			Password: cfg.Report.Redis.Password,
			DB:       cfg.Report.Redis.DB,
			Prefix:   cfg.Report.Redis.Prefix,
		}
		rdb, err = report.ConnectRedis(rcfg)
		if err != nil {
			// the publisher buffers until Redis comes back
			log.Printf("[tabot] WARNING: %v", err)
		}
		if rdb == nil {
			rdb = goredis.NewClient(&goredis.Options{Addr: rcfg.Addr, Password: rcfg.Password, DB: rcfg.DB})
		}
		defer rdb.Close()

		pub := report.NewPublisher(rdb, rcfg)
		pub.OnPublish = m.ObservePublish
		pub.OnBreakerChange(m.ObserveBreaker)
		go pub.Run(ctx)
		reporters = append(reporters, pub)
		health.RedisEnabled = true
	}

	loop, err := strategy.New(params, gw, rules,
		strategy.WithReporter(reporters),
		strategy.WithHooks(loopHooks(m, health)),
		strategy.WithExecutionHooks(m.ExecutionHooks()),
		strategy.WithComputeHook(m.ObserveCompute),
	)
	if err != nil {
		log.Fatalf("[tabot] strategy: %v", err)
	}

	// HTTP: metrics, health, websocket and the decisions API on one port.
	router := api.NewRouter(&api.API{
		Gatherer: reg,
		Health:   health,
		Hub:      hub,
		Journal:  journal,
		Risk:     loop.Risk(),
	})
	srv := metrics.NewServer(cfg.Server.Addr, router)
	srv.Start()
	health.StartLivenessChecker(ctx, rdb, journal.DB(), 15*time.Second)

	runErr := loop.Run(ctx)
	if errors.Is(runErr, execution.ErrRollbackFailed) {
		health.SetHalted(true)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Stop(shutdownCtx)

	if runErr != nil {
		log.Printf("[tabot] halted: %v", runErr)
		journal.Close()
		os.Exit(1)
	}
	log.Println("[tabot] stopped")
}

// loopHooks merges metric hooks with health tracking.
func loopHooks(m *metrics.Metrics, health *metrics.HealthStatus) strategy.Hooks {
	h := m.StrategyHooks()
	onCycle, onDecision := h.OnCycle, h.OnDecision
	h.OnCycle = func(d time.Duration) {
		onCycle(d)
		health.MarkCycle(time.Now())
	}
	h.OnDecision = func(o strategy.Outcome) {
		onDecision(o)
		if o == strategy.OutcomeError {
			health.SetExchangeOK(false)
		}
	}
	return h
}

// buildNotifier fans alerts out to the configured channels, always
// including the log.
func buildNotifier(c config.NotifyConfig) notification.Notifier {
	chain := notification.Multi{notification.NewLogNotifier()}
	if c.TelegramToken != "" && c.TelegramChatID != "" {
		chain = append(chain, notification.NewTelegramNotifier(c.TelegramToken, c.TelegramChatID))
	}
	if c.WebhookURL != "" {
		chain = append(chain, notification.NewWebhookNotifier(c.WebhookURL))
	}
	return notification.MinLevel{
		Level: notification.AlertLevel(strings.ToUpper(c.MinLevel)),
		Next:  chain,
	}
}

