package main

import (
	"context"
	"log"
	"os"

	"gobrick/adapters/postgres"
	"gobrick/internal/migration"
)

func main() {
	if len(os.Args) < 3 {
		log.Fatal("Usage: migrate <postgres|sqlite> <database_url>")
	}

	driver := os.Args[1]
	databaseURL := os.Args[2]

	ctx := context.Background()
	db, err := postgres.Open(ctx, driver, databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	runner := migration.NewRunner()
	if err := runner.Run(ctx, db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Printf("Evaluation ledger schema %s applied (%s)", runner.Version(), driver)
}
