package main

import (
	"context"
	"fastest-route-service/internal/adapters/cache"
	"fastest-route-service/internal/adapters/repositories"
	"fastest-route-service/internal/config"
	"fastest-route-service/internal/platform/db"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

func main() {
	pruneOlderThan := flag.Duration("prune-distance-cache", 0, "delete cached legs not refreshed within this duration (0 disables)")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if strings.TrimSpace(databaseURL) == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()

	conn, err := db.Open(ctx, config.PostgresConfig{
		URL:             databaseURL,
		MaxOpenConns:    2,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	log.Println("Initializing database schema...")
	if err := repositories.InitSchema(ctx, conn); err != nil {
		log.Fatalf("schema initialization failed: %v", err)
	}
	log.Println("Schema ready.")

	if *pruneOlderThan > 0 {
		cutoff := time.Now().Add(-*pruneOlderThan)
		n, err := cache.NewSQLDistanceCache(conn, 0).Prune(ctx, cutoff)
		if err != nil {
			log.Fatalf("distance cache prune failed: %v", err)
		}
		log.Printf("Pruned distance cache rows=%d cutoff=%s", n, cutoff.Format(time.RFC3339))
	}
}
