package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pagebridge",
	Short: "Bridge page messages to a conversational agent",
	Long:  "pagebridge receives page webhook events, forwards user text to a Dialogflow CX agent, and sends the agent's reply back to the sender.",
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
