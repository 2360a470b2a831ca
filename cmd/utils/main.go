package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/tableside/cmd/utils/internal/commands"
)

const (
	appName    = "tableside-utils"
	appVersion = "0.1.0"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	config, err := apt.LoadConfig("UTILS", os.Args[2:])
	if err != nil {
		log.Fatalf("Cannot load config: %v", err)
	}

	logLevel := config.GetStringOrDef("log.level", "info")
	logger := apt.NewLogger(logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command := os.Args[1]

	switch command {
	case "seed-demo":
		if err := commands.SeedDemo(ctx, config, logger); err != nil {
			log.Fatalf("Demo seeding failed: %v", err)
		}
		logger.Info("Demo seeding completed successfully")

	case "clear-demo":
		if err := commands.ClearDemo(ctx, config, logger); err != nil {
			log.Fatalf("Clear demo data failed: %v", err)
		}
		logger.Info("Demo data cleared successfully")

	case "reset-db":
		if err := commands.ResetDB(ctx, config, logger); err != nil {
			log.Fatalf("Database reset failed: %v", err)
		}
		logger.Info("Database reset completed successfully")

	case "version":
		fmt.Printf("%s version %s\n", appName, appVersion)

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`%s - Tableside utility commands

Usage:
  %s <command> [options]

Commands:
  seed-demo    Write the demo restaurant, its tables, menu and orders
  clear-demo   Remove the demo restaurant and its orders, carts and counters
  reset-db     Drop all order data in Mongo, Postgres and Redis - USE WITH CAUTION
  version      Print version information
  help         Show this help message

Environment Variables:
  UTILS_DB_MONGO_URL      MongoDB connection URL (default: mongodb://localhost:27017)
  UTILS_DB_MONGO_NAME     MongoDB database (default: tableside)
  UTILS_DB_POSTGRES_URL   Postgres connection URL (optional)
  UTILS_REDIS_ADDR        Redis address (optional)
  UTILS_LOG_LEVEL         Log level: debug, info, warn, error (default: info)

Examples:
  %s seed-demo
  %s clear-demo
  UTILS_DB_MONGO_URL=mongodb://localhost:27017 %s reset-db

`, appName, appName, appName, appName, appName)
}
