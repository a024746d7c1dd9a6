package main

import (
	"context"
	"log"

	"codeframe-be/internal/bootstrap"
	"codeframe-be/internal/config"
	"codeframe-be/internal/server"
	"codeframe-be/internal/tracer"
	"codeframe-be/pkg/database"
	"codeframe-be/pkg/events"
	pktNats "codeframe-be/pkg/nats"
)

func main() {
	// 0. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	// 4. Start Background Services
	go func() {
		log.Println("Background: Starting Consumer Service...")
		if err := container.ConsumerService.Consume(context.Background()); err != nil {
			log.Printf("Background Consumer Error: %v", err)
		}
	}()

	// Audit trail: mirror pipeline events from the bus into the log
	go func() {
		sub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
		if err != nil {
			log.Printf("Background: NATS Subscriber unavailable: %v", err)
			return
		}
		err = sub.Subscribe("events.>", "codeframe-audit", func(ctx context.Context, evt events.Event) error {
			log.Printf("Event %s: %v", evt.EventType(), evt.Payload())
			return nil
		})
		if err != nil {
			log.Printf("Background: Event audit subscription failed: %v", err)
		}
	}()

	// 5. Initialize Server
	srv := server.New(cfg, container)

	// 6. Run Server
	log.Fatal(srv.Run())
}
