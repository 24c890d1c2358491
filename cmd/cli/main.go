// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"workspace-assistant/internal/logging"
)

var (
	configPath string
	logLevel   string
	logPretty  bool
)

func main() {
	root := &cobra.Command{
		Use:     "workspace-assistant",
		Short:   "A workspace-scoped AI assistant over your documents and tasks",
		Version: "0.1.0",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup(logLevel, logPretty)
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "config.json", "Path to configuration file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&logPretty, "log-pretty", false, "Use human-readable console logging")

	root.AddCommand(newQueryCmd())
	root.AddCommand(newIngestCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newHITLCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
