package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.2.0"

var (
	envFile     string
	strategyDir string

	rootCmd = &cobra.Command{
		Use:           "agentflow",
		Short:         "Strategy-driven conversation orchestrator",
		Long:          "agentflow runs goal-directed conversations whose every turn is a structured decision made by an LLM.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the session API over HTTP",
		RunE:  runServe, // Defined in cmd_serve.go
	}

	chatCmd = &cobra.Command{
		Use:   "chat [strategy]",
		Short: "Chat with a strategy in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  runChat, // Defined in cmd_chat.go
	}

	strategiesCmd = &cobra.Command{
		Use:   "strategies",
		Short: "List the strategies found in the strategy directory",
		RunE:  runStrategies,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional dotenv file to load")
	rootCmd.PersistentFlags().StringVar(&strategyDir, "strategies", "", "strategy directory (overrides AGENTFLOW_STRATEGY_DIR)")

	chatCmd.Flags().String("user", "cli-user", "user id for the chat session")

	rootCmd.AddCommand(serveCmd, chatCmd, strategiesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
