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
	"orderflow/api/ws"
	"orderflow/domain/book"
	"orderflow/infra/config"
	"orderflow/infra/feed"
	"orderflow/service/store"
)

var configPath = flag.String("config", "", "path to config file (defaults apply when empty)")

func main() {
	flag.Parse()

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

	// ---------------- Store + Hub ----------------

	st := store.New(log)
	hub := ws.NewHub(func() book.Snapshot { return st.Snapshot() }, log)
	st.Subscribe(hub)

	// ---------------- Kafka feed ----------------

	var producer *feed.Producer
	if cfg.MarketStore.Feed.Enabled {
		producer, err = feed.NewProducer(
			cfg.MarketStore.Feed.Brokers,
			cfg.MarketStore.Feed.Topic,
			log,
		)
		if err != nil {
			log.Fatal("kafka producer init failed", zap.Error(err))
		}
		st.Subscribe(producer)
	}

	// ---------------- HTTP ----------------

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	httpapi.NewStoreAPI(st, hub, log).Register(e)

	go func() {
		log.Info("market store listening", zap.String("addr", cfg.MarketStore.Listen))
		if err := e.Start(cfg.MarketStore.Listen); err != nil {
			log.Info("http server stopped", zap.Error(err))
		}
	}()

	// ---------------- Shutdown ----------------

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("draining")
	st.BeginDrain()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}

	hub.Close()
	if producer != nil {
		producer.Close()
	}
}
