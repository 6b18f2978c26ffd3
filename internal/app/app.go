package app

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"spfwatch/internal/app/bootstrap"
	"spfwatch/internal/app/server"
	"spfwatch/internal/config"
	"spfwatch/internal/support"
)

const defaultPort = 8082

func Run() error {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found. Falling back to system environment variables.")
	}

	log.SetLevel(log.DebugLevel)

	portFlag := flag.Int("port", defaultPort, "Port for API server")
	productionFlag := flag.Bool("production", false, "Run in production mode")
	flag.Parse()

	config.SetProductionMode(*productionFlag)

	port := resolvePort("PORT", *portFlag)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	components, err := bootstrap.Setup(ctx)
	if err != nil {
		return fmt.Errorf("failed to set up application: %w", err)
	}
	defer support.CloseRedisClient()

	server.Configure(components.Resolver, components.Classifier, components.Flattener, components.Monitor)

	return server.OpenRoutes(port)
}

func resolvePort(envKey string, fallback int) int {
	raw := os.Getenv(envKey)
	if raw == "" {
		return fallback
	}
	port, err := strconv.Atoi(raw)
	if err != nil || port == 0 {
		log.Warn("invalid port override", "env", envKey, "value", raw)
		return fallback
	}
	return port
}
