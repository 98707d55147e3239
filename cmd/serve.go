package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"pagebridge/pkg/config"
	"pagebridge/pkg/conversation"
	"pagebridge/pkg/gateway"
	"pagebridge/pkg/logger"
	"pagebridge/pkg/messenger"
	"pagebridge/pkg/router"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook gateway",
	Long:  "Serves the page webhook with health and readiness endpoints until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		_ = args

		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		appLogger, err := logger.New(cfg.Logging)
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
		slog.SetDefault(appLogger)
		log := slog.Default().With("component", "cmd.serve")

		runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		backend, err := conversation.NewDialogflow(runCtx, cfg.Dialogflow)
		if err != nil {
			return err
		}
		defer func() {
			if err := backend.Close(); err != nil {
				log.Warn("Failed to close dialogflow client", "error", err)
			}
		}()

		svc, err := buildService(cfg, backend, log)
		if err != nil {
			return err
		}

		log.Info("Starting gateway",
			"project_id", cfg.Dialogflow.ProjectID,
			"location", cfg.Dialogflow.Location,
			"agent_id", cfg.Dialogflow.AgentID,
			"max_concurrency", cfg.Router.MaxConcurrency,
		)
		if err := svc.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("gateway runtime failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// buildService wires conversation, dispatch and routing around backend.
func buildService(cfg *config.Config, backend conversation.Backend, log *slog.Logger) (*gateway.Service, error) {
	conv, err := conversation.NewClient(conversation.AgentFromConfig(cfg.Dialogflow), backend, log)
	if err != nil {
		return nil, fmt.Errorf("configure conversation client: %w", err)
	}

	sender, err := messenger.NewClient(cfg.Messenger, log)
	if err != nil {
		return nil, fmt.Errorf("configure messenger client: %w", err)
	}

	webhook, err := router.New(cfg, conv, sender, log)
	if err != nil {
		return nil, fmt.Errorf("configure router: %w", err)
	}

	return gateway.NewService(cfg, webhook, log)
}
