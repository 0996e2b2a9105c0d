package main

import (
	"context"
	"log"
	"os"

	"github.com/david/opportunity-finder/internal/api"
	"github.com/david/opportunity-finder/internal/db"
	"github.com/david/opportunity-finder/internal/pipeline"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}

	cfg, err := pipeline.LoadConfig(os.Getenv("SCORING_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load scoring config: %v", err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	srv := api.NewServer(pool, cfg)
	log.Printf("Server starting on port %s...", port)
	if err := srv.Start(port); err != nil {
		log.Fatal(err)
	}
}
