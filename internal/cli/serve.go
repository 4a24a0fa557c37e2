package cli

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"automationsim/internal/api"
	"automationsim/internal/clock"
	"automationsim/internal/ha"
	"automationsim/internal/simulate"
)

// NewServeCommand creates the serve command, which connects to Home
// Assistant and serves the simulation API.
func NewServeCommand(logger *zap.Logger) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the simulation HTTP API",
		Long: `Connects to Home Assistant over its WebSocket API and serves dry-run
requests. Requires HA_URL and HA_TOKEN, read from the environment or a
.env file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(logger, port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP port (defaults to PORT env var or 8081)")

	return cmd
}

func runServe(logger *zap.Logger, port int) error {
	if err := godotenv.Load(); err != nil {
		logger.Warn("No .env file found, using environment variables")
	}

	haURL := os.Getenv("HA_URL")
	haToken := os.Getenv("HA_TOKEN")
	if haURL == "" || haToken == "" {
		return fmt.Errorf("HA_URL and HA_TOKEN environment variables must be set")
	}

	if port == 0 {
		port = 8081
		if v := os.Getenv("PORT"); v != "" {
			p, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid PORT value %q: %w", v, err)
			}
			port = p
		}
	}

	logger.Info("Starting automation simulator",
		zap.String("url", haURL),
		zap.Int("port", port))

	client := ha.NewClient(haURL, haToken, logger)
	if err := client.Connect(); err != nil {
		return fmt.Errorf("failed to connect to Home Assistant: %w", err)
	}
	defer client.Disconnect()

	simulator := simulate.NewSimulator(logger)
	server := api.NewServer(simulator, client, clock.NewRealClock(), logger, port)
	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Simulator running. Press Ctrl+C to exit.")
	<-sigChan

	logger.Info("Shutting down gracefully...")
	return server.Stop()
}
