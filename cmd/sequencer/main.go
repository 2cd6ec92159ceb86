package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"orderflow/api/httpapi"
	"orderflow/domain/match"
	"orderflow/infra/config"
	"orderflow/infra/journal"
	"orderflow/infra/publish"
	"orderflow/infra/sequence"
	"orderflow/service/sequencer"
)

var configPath = flag.String("config", "", "path to config file (defaults apply when empty)")

func main() {
	flag.Parse()

	// Prices and quantities go over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			panic(err)
		}
		cfg = loaded
	}

	log, err := config.NewLogger(cfg.Logging.Level)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// ---------------- Journal ----------------

	jnl, err := journal.Open(cfg.Sequencer.JournalDir)
	if err != nil {
		log.Fatal("journal init failed", zap.Error(err))
	}
	defer jnl.Close()

	// ---------------- Publisher ----------------

	client := publish.NewClient(
		cfg.Sequencer.StoreEndpoint,
		time.Duration(cfg.Sequencer.Publish.TimeoutMS)*time.Millisecond,
	)
	dispatcher := publish.NewDispatcher(client, jnl, log, publish.Options{
		QueueSize:  cfg.Sequencer.Publish.QueueSize,
		Workers:    cfg.Sequencer.Publish.Workers,
		MaxRetries: cfg.Sequencer.Publish.MaxRetries,
		RetryDelay: time.Duration(cfg.Sequencer.Publish.RetryDelayMS) * time.Millisecond,
	})

	// ---------------- Service ----------------

	svc := sequencer.New(
		sequence.New(),
		match.NewPriceTime(cfg.Symbols),
		dispatcher,
		log,
		cfg.Symbols,
	)

	// ---------------- HTTP ----------------

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	httpapi.NewSequencerAPI(svc, log).Register(e)

	go func() {
		log.Info("sequencer listening", zap.String("addr", cfg.Sequencer.Listen))
		if err := e.Start(cfg.Sequencer.Listen); err != nil {
			log.Info("http server stopped", zap.Error(err))
		}
	}()

	// ---------------- Shutdown ----------------

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("draining")
	svc.BeginDrain()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}

	dispatcher.Close()
	published, failed, dropped := dispatcher.Stats()
	log.Info("publish totals",
		zap.Uint64("published", published),
		zap.Uint64("failed", failed),
		zap.Uint64("dropped", dropped),
	)
}
