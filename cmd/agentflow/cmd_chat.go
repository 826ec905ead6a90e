package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/quantumflow/agentflow/internal/agent"
	"github.com/quantumflow/agentflow/internal/config"
	"github.com/quantumflow/agentflow/internal/models"
)

func runChat(cmd *cobra.Command, args []string) error {
	strategyName := args[0]
	userID, _ := cmd.Flags().GetString("user")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	printBanner(strategyName)

	sess, err := a.orch.StartSession(ctx, userID, strategyName, nil, a.orch.BuiltinTools(strategyName))
	if err != nil {
		return err
	}
	fmt.Printf("Agent: %s\n\n", sess.InitialMessage)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("You: ")
		if !scanner.Scan() || ctx.Err() != nil {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if done := handleCommand(ctx, a.orch, sess, input); done {
				break
			}
			continue
		}

		out, err := a.orch.SendMessage(ctx, sess.SessionID, input, a.orch.BuiltinTools(strategyName))
		if err != nil {
			fmt.Printf("\n❌ Error: %v\n\n", err)
			if sessionClosed(err) {
				break
			}
			continue
		}

		fmt.Printf("\nAgent: %s\n", out.Message)
		if out.Reasoning != "" {
			fmt.Printf("  ⤷ %s\n", truncate(out.Reasoning, 160))
		}
		fmt.Println()

		if out.SessionStatus.IsTerminal() {
			fmt.Printf("Session %s.\n", out.SessionStatus)
			break
		}
	}

	a.orch.EndSession(context.Background(), sess.SessionID)
	fmt.Println("Goodbye! 👋")
	return nil
}

// handleCommand runs a slash command and reports whether the chat should end
func handleCommand(ctx context.Context, orch *agent.Orchestrator, sess *models.Session, input string) bool {
	switch strings.Fields(input)[0] {
	case "/help":
		fmt.Println("\nCommands: /help /stats /perf /analytics /end /exit")
		fmt.Println()
	case "/stats":
		s := orch.GetStats()
		fmt.Printf("\nSessions: %d total, %d active, %d completed, %d escalated\n",
			s.TotalSessions, s.ActiveSessions, s.CompletedSessions, s.EscalatedSessions)
		fmt.Printf("Messages: %d | Errors: %d | Uptime: %s\n\n", s.TotalMessages, s.ErrorCount, s.Uptime.Round(time.Second))
	case "/perf":
		p := orch.GetStrategyPerformance(sess.StrategyName)
		fmt.Printf("\n%s: score %.2f | completion %.0f%% | escalation %.0f%% | avg messages %.1f\n\n",
			p.StrategyName, p.PerformanceScore, p.CompletionRate*100, p.EscalationRate*100, p.AverageMessages)
	case "/analytics":
		an, err := orch.GetSessionAnalytics(sess.SessionID)
		if err != nil {
			fmt.Printf("\n❌ %v\n\n", err)
			return false
		}
		fmt.Printf("\nGoal: %s | Stage: %s | Sentiment: %s | Quality: %s | Decisions: %d\n\n",
			an.CurrentGoal, an.Stage, an.Sentiment, an.Quality, an.DecisionCount)
	case "/end":
		if orch.EndSession(ctx, sess.SessionID) {
			fmt.Println("✓ Session completed")
		}
		return true
	case "/exit", "/quit":
		return true
	default:
		fmt.Println("Unknown command, try /help")
	}
	return false
}

func runStrategies(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	strategies, err := config.LoadStrategies(cfg.StrategyDir)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDOMAIN\tPRIMARY GOAL\tLLM")
	for _, s := range strategies {
		llm := s.LLM.Provider
		if s.LLM.Model != "" {
			llm += "/" + s.LLM.Model
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.Name, s.Domain, truncate(s.Goals.Primary, 40), llm)
	}
	return w.Flush()
}

func printBanner(strategy string) {
	fmt.Printf(`
╔═════════════════════════════════════════════════════════╗
║                 agentflow %-8s                      ║
╚═════════════════════════════════════════════════════════╝
Strategy: %s  (type /help for commands)

`, version, strategy)
}

func sessionClosed(err error) bool {
	return errors.Is(err, agent.ErrSessionNotActive) || errors.Is(err, agent.ErrSessionNotFound)
}

func truncate(s string, maxLen int) string {
	if len([]rune(s)) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen-3]) + "..."
}
