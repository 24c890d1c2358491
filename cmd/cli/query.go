// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"workspace-assistant/cmd/common"
	"workspace-assistant/internal/config"
	"workspace-assistant/internal/orchestrator"
)

func newQueryCmd() *cobra.Command {
	var (
		workspaceID   string
		userID        string
		sessionID     string
		interactive   bool
		verbose       bool
		historyLength int
	)

	cmd := &cobra.Command{
		Use:   "query [question]",
		Short: "Ask the assistant a question over your workspace",
		Long: `Execute a query against the orchestrator: intent detection, planning,
execution across the document, task, and board agents, and synthesis of a
final answer.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromFile(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			sys, err := common.InitializeSystem(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize system: %w", err)
			}
			defer sys.Close()

			if interactive {
				return runInteractiveQuery(sys, workspaceID, userID, sessionID, verbose, historyLength)
			}

			if len(args) < 1 {
				return fmt.Errorf("question is required (or pass --interactive)")
			}

			question := strings.Join(args, " ")
			return executeQuery(sys, workspaceID, userID, sessionID, question, verbose, historyLength)
		},
	}

	cmd.Flags().StringVar(&workspaceID, "workspace", "default", "Workspace ID to scope the query to")
	cmd.Flags().StringVar(&userID, "user", "cli", "User ID issuing the query")
	cmd.Flags().StringVar(&sessionID, "session", "cli-session", "Conversation session ID")
	cmd.Flags().BoolVar(&interactive, "interactive", false, "Run in interactive mode for multiple queries")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Show detailed execution information")
	cmd.Flags().IntVar(&historyLength, "history", 10, "Number of recent conversation turns to include as context")

	return cmd
}

func runInteractiveQuery(sys *common.System, workspaceID, userID, sessionID string, verbose bool, historyLength int) error {
	fmt.Println("Workspace Assistant - Interactive Mode")
	fmt.Println("Type 'exit' or 'quit' to exit")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("Query> ")
		if !scanner.Scan() {
			break
		}

		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if question == "exit" || question == "quit" {
			fmt.Println("Goodbye!")
			break
		}

		if err := executeQuery(sys, workspaceID, userID, sessionID, question, verbose, historyLength); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		fmt.Println()
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}

func executeQuery(sys *common.System, workspaceID, userID, sessionID, question string, verbose bool, historyLength int) error {
	ctx := context.Background()

	fmt.Printf("Question: %s\n\n", question)

	history, err := sys.Memory.RecentTurns(ctx, workspaceID, sessionID, historyLength)
	if err != nil {
		return fmt.Errorf("failed to load conversation history: %w", err)
	}
	messages := make([]orchestrator.ConversationMessage, len(history))
	for i, turn := range history {
		messages[i] = orchestrator.ConversationMessage{Role: turn.Role, Content: turn.Content}
	}

	resp, err := sys.Orchestrator.Query(ctx, workspaceID, userID, sessionID, question, messages, nil)
	if err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}

	if verbose {
		displayVerboseResult(resp)
	} else {
		fmt.Println("Answer:")
		fmt.Println(resp.Answer)
	}

	return nil
}

func displayVerboseResult(resp *orchestrator.Response) {
	if plan, ok := resp.Metadata["execution_plan"]; ok {
		fmt.Println("=== Execution Plan ===")
		data, _ := json.MarshalIndent(plan, "", "  ")
		fmt.Println(string(data))
		fmt.Println()
	}

	if steps, ok := resp.Metadata["step_results"]; ok {
		fmt.Println("=== Step Results ===")
		data, _ := json.MarshalIndent(steps, "", "  ")
		fmt.Println(string(data))
		fmt.Println()
	}

	fmt.Println("=== Final Answer ===")
	fmt.Println(resp.Answer)
}
