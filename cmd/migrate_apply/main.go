package main

import (
	"context"
	"flag"
	"fmt"

	"task_manager/internal/config"
	"task_manager/internal/db"
	"task_manager/internal/logger"
)

// migrate_apply lists the embedded migrations for the configured database
// and applies them with -apply.
func main() {
	apply := flag.Bool("apply", false, "apply migrations")
	flag.Parse()

	cfg := config.Load()

	driver, _, err := db.DriverFor(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("unsupported database", "error", err)
	}

	names, err := db.MigrationNames(driver)
	if err != nil {
		logger.Fatal("list migrations", "error", err)
	}
	if !*apply {
		for _, name := range names {
			fmt.Println(name)
		}
		return
	}

	ctx := context.Background()
	handle, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", "error", err)
	}
	defer handle.Close()

	if err := handle.Migrate(ctx); err != nil {
		logger.Fatal("failed to apply migrations", "error", err)
	}
	for _, name := range names {
		fmt.Printf("applied %s\n", name)
	}
}
