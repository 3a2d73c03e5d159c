package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/shopagent/internal/agent"
	"github.com/ziadkadry99/shopagent/internal/task"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the shop assistant a question",
	Long: `Runs one task through the agent: cached answers, product search, shop
information and web search as needed. Progress is printed as it happens,
followed by the answer and its confidence, sources and timing.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().String("session", "", "session id used to scope cached answers")
	askCmd.Flags().String("context", "", "thread id; reuse it to continue a conversation")
	askCmd.Flags().Bool("json", false, "print the final answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	session, _ := cmd.Flags().GetString("session")
	contextID, _ := cmd.Flags().GetString("context")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if contextID == "" {
		contextID = uuid.NewString()
	}
	req := agent.QueryRequest{
		Text:      strings.Join(args, " "),
		SessionID: session,
		ContextID: contextID,
	}

	t, err := a.executor.Submit(ctx, req)
	if err != nil {
		return err
	}
	return printEvents(cmd.OutOrStdout(), t.Events(), jsonOutput)
}

// printEvents writes progress lines and then the terminal answer. A task
// that ended in a fault is reported as an error after the answer.
func printEvents(w io.Writer, events <-chan task.Event, jsonOutput bool) error {
	for e := range events {
		if !e.Terminal() {
			if !jsonOutput {
				fmt.Fprintf(w, "> %s\n", e.Content)
			}
			continue
		}
		if e.Answer != nil {
			if jsonOutput {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				if err := enc.Encode(e.Answer); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(w, "\n%s\n", e.Answer.Render())
			}
		}
		if e.Err != nil {
			return e.Err
		}
	}
	return nil
}
