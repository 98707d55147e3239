package cmd

import (
	"context"
	"testing"

	"pagebridge/pkg/config"
	"pagebridge/pkg/conversation"
	"pagebridge/pkg/logger"

	"github.com/stretchr/testify/require"
)

type emptyBackend struct{}

func (emptyBackend) DetectIntent(context.Context, string, string) (conversation.Result, error) {
	return conversation.Result{}, nil
}

func TestBuildServiceRequiresCompleteConfig(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	if _, err := buildService(cfg, emptyBackend{}, logger.Discard()); err == nil {
		t.Fatal("expected error for empty config")
	}
}

func TestBuildService(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		Messenger:  config.MessengerConfig{VerifyToken: "tok", PageAccessToken: "page"},
		Dialogflow: config.DialogflowConfig{ProjectID: "proj", AgentID: "agent"},
	}
	cfg.ApplyDefaults()

	svc, err := buildService(cfg, emptyBackend{}, logger.Discard())
	require.NoError(t, err)
	require.NotNil(t, svc.Handler())
}

func TestCommandsRegistered(t *testing.T) {
	t.Parallel()

	names := map[string]bool{}
	for _, command := range rootCmd.Commands() {
		names[command.Name()] = true
	}
	require.True(t, names["serve"])
	require.True(t, names["simulate"])
}
