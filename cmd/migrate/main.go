// Command migrate applies or reverts the CSMS's Postgres schema.
package main

import (
	"flag"
	"log"

	"csms/internal/config"
	"csms/pkg/database"
)

func main() {
	var direction string
	flag.StringVar(&direction, "direction", "up", "migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	switch direction {
	case "up":
		if err := database.Migrate("migrations", cfg.DatabaseURL); err != nil {
			log.Fatalf("migrate up: %v", err)
		}
		log.Println("migrations applied")
	case "down":
		if err := database.Rollback("migrations", cfg.DatabaseURL); err != nil {
			log.Fatalf("migrate down: %v", err)
		}
		log.Println("last migration rolled back")
	default:
		log.Fatalf("unknown migration direction: %s", direction)
	}
}
