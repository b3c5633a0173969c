package main

import (
	"context"
	"log"

	"ai-loanengine-be/internal/bootstrap"
	"ai-loanengine-be/internal/config"
	"ai-loanengine-be/internal/server"
	"ai-loanengine-be/internal/tracer"
)

func main() {
	// 0. Initialize Tracer (opt-in via OTEL_ENABLED)
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(cfg)
	defer container.Logger.Sync()

	// 3. Start Background Services
	// Note: In a larger app, we might use an errgroup or supervisor here
	go func() {
		log.Println("Background: Starting Audit Consumer...")
		if err := container.AuditConsumerService.Consume(context.Background()); err != nil {
			log.Printf("Background Audit Consumer Error: %v", err)
		}
	}()

	// 4. Initialize Server
	srv := server.New(cfg, container)

	// 5. Run Server
	log.Fatal(srv.Run())
}
