package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/olyamironova/exchange-simulator/internal/adapter/cache"
	"github.com/olyamironova/exchange-simulator/internal/adapter/pg"
	httpapi "github.com/olyamironova/exchange-simulator/internal/api/http"
	"github.com/olyamironova/exchange-simulator/internal/api/tcp"
	"github.com/olyamironova/exchange-simulator/internal/api/ws"
	"github.com/olyamironova/exchange-simulator/internal/core"
	"github.com/olyamironova/exchange-simulator/internal/domain"
	"github.com/olyamironova/exchange-simulator/internal/infra"
	"github.com/olyamironova/exchange-simulator/internal/port"
)

// multiDatastream fans one report out to several public channels (raw TCP
// and websocket); individual sink failures are already absorbed downstream.
type multiDatastream []port.DatastreamSink

func (m multiDatastream) SendDatastreamReport(ctx context.Context, r domain.DatastreamReport) error {
	var errs []error
	for _, sink := range m {
		if err := sink.SendDatastreamReport(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	orderAddr := flag.String("order-addr", "", "address of order/private channel")
	datastreamAddr := flag.String("datastream-addr", "", "address of datastream/public channel")
	httpAddr := flag.String("http-addr", "", "address of admin HTTP API")
	printStats := flag.Bool("print-stats", false, "print statistics of open orders every second")
	flag.Parse()

	cfg, err := infra.LoadConfig(*configPath)
	if err != nil {
		slog.Error("load config failed", "err", err)
		os.Exit(1)
	}
	if *orderAddr != "" {
		cfg.Server.OrderAddr = *orderAddr
	}
	if *datastreamAddr != "" {
		cfg.Server.DatastreamAddr = *datastreamAddr
	}
	if *httpAddr != "" {
		cfg.Server.HTTPAddr = *httpAddr
	}

	log := infra.NewLogger(cfg)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var repo port.Repository
	if cfg.Storage.PostgresDSN != "" {
		pgRepo, err := pg.NewPgRepo(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			log.Error("connect to Postgres failed", "err", err)
			os.Exit(1)
		}
		if err := pgRepo.EnsureSchema(ctx); err != nil {
			log.Error("ensure schema failed", "err", err)
			os.Exit(1)
		}
		defer pgRepo.Close(ctx)
		repo = pgRepo
	}

	var bookCache port.Cache
	if cfg.Storage.Redis.Addr != "" {
		ttl, _ := cfg.RedisTTL()
		redisCache := cache.NewRedisCache(cfg.Storage.Redis.Addr, cfg.Storage.Redis.Password, cfg.Storage.Redis.DB, ttl)
		defer redisCache.Close()
		bookCache = redisCache
	}

	exchange := core.NewExchange(repo, bookCache, log)
	if err := exchange.RestoreOpenOrders(ctx); err != nil {
		log.Warn("restore open orders failed", "err", err)
	}

	orderServer := tcp.NewOrderServer(exchange, log)
	datastreamServer := tcp.NewDatastreamServer(log)
	hub := ws.NewHub(log)
	exchange.SetReportSinks(orderServer, multiDatastream{datastreamServer, hub})

	if err := orderServer.Start(cfg.Server.OrderAddr); err != nil {
		log.Error("cannot bind order channel, is another server already started?", "err", err)
		os.Exit(1)
	}
	defer orderServer.Stop()
	if err := datastreamServer.Start(cfg.Server.DatastreamAddr); err != nil {
		log.Error("cannot bind datastream channel", "err", err)
		os.Exit(1)
	}
	defer datastreamServer.Stop()
	defer hub.Close()

	if cfg.Server.HTTPAddr != "" {
		httpServer := httpapi.NewHTTPServer(exchange, bookCache, hub, log)
		go func() {
			if err := httpServer.Run(cfg.Server.HTTPAddr); err != nil {
				log.Error("HTTP server failed", "err", err)
			}
		}()
	}

	if *printStats {
		go func() {
			ticker := time.NewTicker(time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					logStats(log, exchange)
				}
			}
		}()
	}

	log.Info("stock exchange simulation server started",
		"order_addr", cfg.Server.OrderAddr,
		"datastream_addr", cfg.Server.DatastreamAddr)

	<-ctx.Done()
	log.Info("received shutdown signal, exiting")
	logStats(log, exchange)
}

func logStats(log *slog.Logger, exchange *core.Exchange) {
	s := exchange.SnapshotStats()
	log.Info("exchange stats",
		"opened", s.Opened,
		"traded", s.Traded,
		"resting_bids", s.RestingBids,
		"resting_asks", s.RestingAsks)
}
