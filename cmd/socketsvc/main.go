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
	log "github.com/sirupsen/logrus"

	configs "github.com/avvvet/tourney-services/configs"
	"github.com/avvvet/tourney-services/internal/auth"
	"github.com/avvvet/tourney-services/internal/comm"
	"github.com/avvvet/tourney-services/internal/nats"
	"github.com/avvvet/tourney-services/internal/socketsvc/broker"
	"github.com/avvvet/tourney-services/internal/socketsvc/config"
	"github.com/avvvet/tourney-services/internal/socketsvc/handlers"
	"github.com/avvvet/tourney-services/internal/socketsvc/routes"
	"github.com/avvvet/tourney-services/internal/socketsvc/ws"
)

const SERVICE_NAME = "socket"

func main() {
	configs.LoadEnv(SERVICE_NAME)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	instanceId := configs.CreateUniqueInstance(SERVICE_NAME)
	configs.Logging(SERVICE_NAME+"_service_"+instanceId[:8], cfg.LogDir, cfg.LogFormat, cfg.LogLevel)

	// Connect to NATS
	n, err := nats.Connect(SERVICE_NAME+"-"+instanceId, cfg.NatsURL, cfg.NatsToken)
	if err != nil {
		log.Fatalf("Error: unable to connect to NATS server %v", err)
	}
	defer n.Conn.Close()
	log.Infof("NATS connection established successfully %s", n.Url)

	s := ws.NewWs()

	b := broker.NewBroker(n.Conn, s.GetConnection, s.GetWatchers) // s.GetConnection dependency injection to broker
	s.Broker = b                                                 // set broker reference for websocket handler logic

	// every socket instance receives every event
	sub, err := b.Subscribe(comm.SubjectEvents)
	if err != nil {
		log.Fatalf("Error: unable to subscribe to %s %v", comm.SubjectEvents, err)
	}

	// Setup router
	r := chi.NewRouter()
	origins := cfg.Origins()
	c := configs.CORS(origins)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(configs.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(c.Handler)
	r.Use(httprate.LimitByIP(cfg.RateLimit, 1*time.Minute))

	h := handlers.NewHandler(s, cfg.Port, func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range origins {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	})
	routes.SetRoutes(r, h, auth.New(cfg.JWTSecret))

	// no write timeout, sockets are long lived
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 60 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	if err := sub.Unsubscribe(); err != nil {
		log.Errorf("unsubscribe: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
