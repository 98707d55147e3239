package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"pagebridge/pkg/config"
	"pagebridge/pkg/conversation"
	"pagebridge/pkg/logger"
	"pagebridge/pkg/reply"
	"pagebridge/pkg/router"
	"pagebridge/pkg/ui/preview"

	"github.com/spf13/cobra"
)

var (
	promptText     string
	simulateSender string
	plainOutput    bool
)

// simulateCmd represents the simulate command
var simulateCmd = &cobra.Command{
	Use:   "simulate [text]",
	Short: "Send text to the agent and print the reply that would be sent",
	Long:  "Runs one turn (or an interactive session) against the configured agent and renders the payload the webhook would dispatch. Nothing is sent to the page.",
	RunE: func(cmd *cobra.Command, args []string) error {
		prompt := resolvePrompt(args)

		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		appLogger, err := logger.New(cfg.Logging)
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
		slog.SetDefault(appLogger)

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		backend, err := conversation.NewDialogflow(ctx, cfg.Dialogflow)
		if err != nil {
			return err
		}
		defer backend.Close()

		conv, err := conversation.NewClient(conversation.AgentFromConfig(cfg.Dialogflow), backend, appLogger)
		if err != nil {
			return err
		}

		sim := &simulator{
			conv:     conv,
			sender:   strings.TrimSpace(simulateSender),
			out:      cmd.OutOrStdout(),
			renderer: preview.NewRenderer(),
			plain:    plainOutput,
		}

		if prompt != "" {
			sim.turn(ctx, prompt)
			return nil
		}

		return sim.interactive(ctx, cmd.InOrStdin())
	},
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().StringVarP(&promptText, "prompt", "p", "", "text to send")
	simulateCmd.Flags().StringVarP(&simulateSender, "sender", "s", "local-tester", "sender id used for the session")
	simulateCmd.Flags().BoolVar(&plainOutput, "plain", false, "print replies without styling")
}

// simulator runs turns through the same conversation and transform path as the webhook.
type simulator struct {
	conv     router.Conversation
	sender   string
	out      io.Writer
	renderer *preview.Renderer
	plain    bool
}

func (s *simulator) turn(ctx context.Context, text string) {
	payload := reply.Transform(s.conv.Forward(ctx, s.sender, text), s.sender)
	if s.plain {
		fmt.Fprintln(s.out, preview.Plain(payload))
		return
	}

	fmt.Fprintln(s.out, s.renderer.Inbound(s.sender, text))
	fmt.Fprintln(s.out, s.renderer.Reply(payload))
}

func (s *simulator) interactive(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprint(s.out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}

		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if isExitCommand(text) {
			return nil
		}

		s.turn(ctx, text)
	}
}

func resolvePrompt(args []string) string {
	if value := strings.TrimSpace(promptText); value != "" {
		return value
	}

	return strings.TrimSpace(strings.Join(args, " "))
}

func isExitCommand(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "exit", "quit", ":q":
		return true
	default:
		return false
	}
}
