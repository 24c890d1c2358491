// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"workspace-assistant/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigValidateCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display the current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromFile(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			data, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}

			fmt.Println(string(data))
			return nil
		},
	}
}

func newConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [output-path]",
		Short: "Create a default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputPath := configPath
			if len(args) > 0 {
				outputPath = args[0]
			}

			if _, err := os.Stat(outputPath); err == nil {
				return fmt.Errorf("config file already exists: %s (delete it first or specify a different path)", outputPath)
			}

			cfg := config.LoadFromEnv()
			if err := cfg.SaveToFile(outputPath); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}

			fmt.Printf("Created default configuration: %s\n", outputPath)
			fmt.Println("\nNext steps:")
			fmt.Println("1. Edit the config file to add your API keys")
			fmt.Println("2. Configure your vector store connection")
			fmt.Printf("3. Run 'workspace-assistant config validate %s' to verify\n", outputPath)

			return nil
		},
	}
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-path>",
		Short: "Validate a configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromFile(args[0])
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}

			var errs []string

			if cfg.LLM.ReasoningLLM.Provider == "" {
				errs = append(errs, "llm.reasoning_llm.provider is required")
			}
			if cfg.LLM.ReasoningLLM.Model == "" {
				errs = append(errs, "llm.reasoning_llm.model is required")
			}
			if cfg.LLM.FastLLM.Provider == "" {
				errs = append(errs, "llm.fast_llm.provider is required")
			}
			if cfg.LLM.FastLLM.Model == "" {
				errs = append(errs, "llm.fast_llm.model is required")
			}
			if cfg.Embedding.Provider == "" {
				errs = append(errs, "embedding.provider is required")
			}
			if cfg.Embedding.Model == "" {
				errs = append(errs, "embedding.model is required")
			}
			if cfg.VectorStore.Type == "" {
				errs = append(errs, "vector_store.type is required")
			}
			if cfg.VectorStore.Address == "" {
				errs = append(errs, "vector_store.address is required")
			}
			if cfg.Database.Path == "" {
				errs = append(errs, "database.path is required")
			}

			if len(errs) > 0 {
				fmt.Println("Validation errors:")
				for _, e := range errs {
					fmt.Printf("  - %s\n", e)
				}
				return fmt.Errorf("configuration is invalid")
			}

			fmt.Printf("Configuration is valid: %s\n", args[0])
			return nil
		},
	}
}
