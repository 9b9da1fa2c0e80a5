package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"
	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	configs "github.com/avvvet/tourney-services/configs"
	"github.com/avvvet/tourney-services/internal/auth"
	"github.com/avvvet/tourney-services/internal/nats"
	"github.com/avvvet/tourney-services/internal/tourneysvc/broker"
	"github.com/avvvet/tourney-services/internal/tourneysvc/config"
	"github.com/avvvet/tourney-services/internal/tourneysvc/db"
	"github.com/avvvet/tourney-services/internal/tourneysvc/handlers"
	"github.com/avvvet/tourney-services/internal/tourneysvc/scheduler"
	"github.com/avvvet/tourney-services/internal/tourneysvc/service"
	"github.com/avvvet/tourney-services/internal/tourneysvc/store"
)

const SERVICE_NAME = "tourney"

func main() {
	configs.LoadEnv(SERVICE_NAME)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	instanceId := configs.CreateUniqueInstance(SERVICE_NAME)
	configs.Logging(SERVICE_NAME+"_service_"+instanceId[:8], cfg.LogDir, cfg.LogFormat, cfg.LogLevel)

	ctx := context.Background()

	// pg connection
	dbpool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer dbpool.Close()
	if err := db.Migrate(ctx, dbpool); err != nil {
		log.Fatalf("Failed to migrate DB: %v", err)
	}
	log.Info("pg connection established successfully")

	clock := clockwork.NewRealClock()
	st := store.NewPgStore(dbpool)

	svc := handlers.Services{
		Lifecycle: service.NewLifecycleService(st, clock),
		Admission: service.NewAdmissionService(st, clock),
		Balance:   service.NewBalanceService(st),
		Query:     service.NewQueryService(st, clock),
		Funding:   service.NewFundingService(st),
	}

	// Connect to NATS
	n, err := nats.Connect(SERVICE_NAME+"-"+instanceId, cfg.NatsURL, cfg.NatsToken)
	if err != nil {
		log.Fatalf("Error: unable to connect to NATS server %v", err)
	}
	defer n.Conn.Close()
	log.Infof("NATS connection established successfully %s", n.Url)

	b := broker.NewBroker(n.Conn, clock, svc.Balance, svc.Query)

	// every instance shares the request queue
	sub, err := b.QueueSubscribeRequests(n.Conn, SERVICE_NAME)
	if err != nil {
		log.Fatalf("Error: unable to subscribe to queue %v", err)
	}

	announcer := scheduler.NewAnnouncer(svc.Query, b, clock, cfg.AnnounceInterval)
	if err := announcer.Start(); err != nil {
		log.Fatalf("Error: unable to start announcer %v", err)
	}

	// Setup router
	r := chi.NewRouter()
	c := configs.CORS(cfg.Origins())

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(configs.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(c.Handler)

	// to protect the service api from any over requests
	r.Use(httprate.LimitByIP(cfg.RateLimit, 1*time.Minute))

	h := handlers.NewHandler(auth.New(cfg.JWTSecret), svc, b, cfg.Port)
	h.SetRoutes(r)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	// Wait for interrupt signal to gracefully shutdown the server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	if err := announcer.Stop(); err != nil {
		log.Errorf("announcer shutdown: %v", err)
	}
	if err := sub.Unsubscribe(); err != nil {
		log.Errorf("unsubscribe: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
