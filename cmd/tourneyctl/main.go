package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	configs "github.com/avvvet/tourney-services/configs"
	"github.com/avvvet/tourney-services/internal/auth"
	"github.com/avvvet/tourney-services/internal/nats"
	"github.com/avvvet/tourney-services/internal/tourneysvc/broker"
	"github.com/avvvet/tourney-services/internal/tourneysvc/config"
	"github.com/avvvet/tourney-services/internal/tourneysvc/db"
	"github.com/avvvet/tourney-services/internal/tourneysvc/scheduler"
	"github.com/avvvet/tourney-services/internal/tourneysvc/service"
	"github.com/avvvet/tourney-services/internal/tourneysvc/store"
)

const SERVICE_NAME = "ctl"

const usage = `usage: tourneyctl <command> [flags]

commands:
  migrate                         apply the database schema
  token -id N -role admin|user    print a signed bearer token
  announce -since 1h              publish tournament-closed events for the window`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	configs.LoadEnv(SERVICE_NAME)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	configs.Logging(SERVICE_NAME, "", cfg.LogFormat, cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	switch os.Args[1] {
	case "migrate":
		err = migrate(ctx, cfg)
	case "token":
		err = token(cfg, os.Args[2:])
	case "announce":
		err = announce(ctx, cfg, os.Args[2:])
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s: %v", os.Args[1], err)
	}
}

func migrate(ctx context.Context, cfg config.Config) error {
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		return err
	}
	log.Info("schema applied")
	return nil
}

func token(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	id := fs.Int64("id", 0, "account id")
	role := fs.String("role", string(auth.RoleUser), "admin or user")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *id <= 0 {
		return fmt.Errorf("id must be positive, got %d", *id)
	}
	r := auth.Role(*role)
	if r != auth.RoleAdmin && r != auth.RoleUser {
		return fmt.Errorf("unknown role %q", *role)
	}

	tokenString, err := auth.IssueToken(auth.New(cfg.JWTSecret), *id, r, *ttl)
	if err != nil {
		return err
	}
	fmt.Println(tokenString)
	return nil
}

// announce runs a single announcer tick over a past window, for windows
// missed while tourneysvc was down.
func announce(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("announce", flag.ContinueOnError)
	since := fs.Duration("since", time.Hour, "how far back to look")
	if err := fs.Parse(args); err != nil {
		return err
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	n, err := nats.Connect(SERVICE_NAME, cfg.NatsURL, cfg.NatsToken)
	if err != nil {
		return err
	}
	defer n.Conn.Close()

	clock := clockwork.NewRealClock()
	st := store.NewPgStore(pool)
	query := service.NewQueryService(st, clock)
	b := broker.NewBroker(n.Conn, clock, service.NewBalanceService(st), query)

	a := scheduler.NewAnnouncer(query, b, clock, time.Minute)
	a.Since(clock.Now().Add(-*since))
	count, err := a.Tick(ctx)
	if err != nil {
		return err
	}

	// Publish is buffered by the client
	if err := n.Conn.Flush(); err != nil {
		return err
	}
	log.Infof("announced %d tournaments", count)
	return nil
}
