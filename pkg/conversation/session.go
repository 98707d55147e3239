package conversation

import (
	"fmt"
	"strings"

	"pagebridge/pkg/config"
)

// Agent holds the fixed identifiers every session is scoped to.
type Agent struct {
	ProjectID string
	Location  string
	AgentID   string
}

// AgentFromConfig copies agent identifiers out of cfg.
func AgentFromConfig(cfg config.DialogflowConfig) Agent {
	location := strings.TrimSpace(cfg.Location)
	if location == "" {
		location = config.DefaultLocation
	}

	return Agent{
		ProjectID: strings.TrimSpace(cfg.ProjectID),
		Location:  location,
		AgentID:   strings.TrimSpace(cfg.AgentID),
	}
}

// SessionPath derives the session reference for senderID. The same sender
// always maps to the same path, so the backend keeps one context per user.
func (a Agent) SessionPath(senderID string) string {
	return fmt.Sprintf("projects/%s/locations/%s/agents/%s/sessions/%s",
		a.ProjectID, a.Location, a.AgentID, strings.TrimSpace(senderID))
}
