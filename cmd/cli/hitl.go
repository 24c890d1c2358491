// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"workspace-assistant/cmd/common"
	"workspace-assistant/internal/config"
)

func newHITLCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hitl",
		Short: "Inspect and respond to pending human-in-the-loop confirmation requests",
	}

	cmd.AddCommand(newHITLShowCmd())
	cmd.AddCommand(newHITLApproveCmd())
	cmd.AddCommand(newHITLRejectCmd())
	cmd.AddCommand(newHITLFeedbackCmd())

	return cmd
}

func withSystem(fn func(ctx context.Context, sys *common.System) error) error {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	sys, err := common.InitializeSystem(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize system: %w", err)
	}
	defer sys.Close()

	return fn(context.Background(), sys)
}

func newHITLShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <request-id>",
		Short: "Show a confirmation request and its options",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSystem(func(ctx context.Context, sys *common.System) error {
				req, err := sys.HITL.GetRequest(ctx, args[0])
				if err != nil {
					return err
				}
				data, err := json.MarshalIndent(req, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			})
		},
	}
}

func newHITLApproveCmd() *cobra.Command {
	var respondedBy string
	var optionID string

	cmd := &cobra.Command{
		Use:   "approve <request-id>",
		Short: "Approve a pending confirmation request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSystem(func(ctx context.Context, sys *common.System) error {
				chosen := optionID
				if chosen == "" {
					req, err := sys.HITL.GetRequest(ctx, args[0])
					if err != nil {
						return err
					}
					chosen = req.DefaultOption
				}
				resp, err := sys.HITL.Respond(ctx, args[0], chosen, respondedBy)
				if err != nil {
					return err
				}
				fmt.Printf("Request %s: %s\n", resp.RequestID, resp.Status)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&optionID, "option", "", "Option ID to select (defaults to the request's default option)")
	cmd.Flags().StringVar(&respondedBy, "by", "cli", "Identity recorded as having responded")

	return cmd
}

func newHITLRejectCmd() *cobra.Command {
	var respondedBy string

	cmd := &cobra.Command{
		Use:   "reject <request-id>",
		Short: "Reject a pending confirmation request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSystem(func(ctx context.Context, sys *common.System) error {
				resp, err := sys.HITL.Respond(ctx, args[0], "cancel", respondedBy)
				if err != nil {
					return err
				}
				fmt.Printf("Request %s: %s\n", resp.RequestID, resp.Status)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&respondedBy, "by", "cli", "Identity recorded as having responded")

	return cmd
}

func newHITLFeedbackCmd() *cobra.Command {
	var rating int
	var sentiment string
	var comment string

	cmd := &cobra.Command{
		Use:   "feedback <request-id>",
		Short: "Record user feedback on a resolved confirmation request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSystem(func(ctx context.Context, sys *common.System) error {
				if err := sys.HITL.CollectFeedback(ctx, args[0], rating, sentiment, comment); err != nil {
					return err
				}
				fmt.Println("Feedback recorded.")
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&rating, "rating", 0, "Rating from 1 (worst) to 5 (best)")
	cmd.Flags().StringVar(&sentiment, "sentiment", "", "Freeform sentiment label")
	cmd.Flags().StringVar(&comment, "comment", "", "Freeform comment")

	return cmd
}
