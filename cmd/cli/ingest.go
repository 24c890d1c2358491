// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"workspace-assistant/cmd/common"
	"workspace-assistant/internal/config"
)

func newIngestCmd() *cobra.Command {
	var (
		workspaceID  string
		recursive    bool
		deriveSchema bool
		verbose      bool
	)

	cmd := &cobra.Command{
		Use:   "ingest [file-or-directory]...",
		Short: "Ingest documents into the vector store and keyword index",
		Args:  cobra.MinimumNArgs(1),
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

			ctx := context.Background()

			var totalFiles, totalChunks int
			for _, path := range args {
				files, chunks, err := processPath(ctx, sys, workspaceID, path, recursive, deriveSchema, verbose)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to process %s: %v\n", path, err)
					continue
				}
				totalFiles += files
				totalChunks += chunks
			}

			fmt.Printf("\nIngestion complete:\n")
			fmt.Printf("  Workspace: %s\n", workspaceID)
			fmt.Printf("  Files processed: %d\n", totalFiles)
			fmt.Printf("  Chunks created: %d\n", totalChunks)

			return nil
		},
	}

	cmd.Flags().StringVar(&workspaceID, "workspace", "default", "Workspace ID to scope ingested documents to")
	cmd.Flags().BoolVar(&recursive, "recursive", false, "Recursively process directories")
	cmd.Flags().BoolVar(&deriveSchema, "derive-schema", true, "Derive document schema using the schema resolver")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Show detailed processing information")

	return cmd
}

func processPath(ctx context.Context, sys *common.System, workspaceID, path string, recursive, deriveSchema, verbose bool) (int, int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, 0, err
	}

	if info.IsDir() {
		return processDirectory(ctx, sys, workspaceID, path, recursive, deriveSchema, verbose)
	}

	return processFile(ctx, sys, workspaceID, path, deriveSchema, verbose)
}

func processDirectory(ctx context.Context, sys *common.System, workspaceID, dirPath string, recursive, deriveSchema, verbose bool) (int, int, error) {
	var totalFiles, totalChunks int

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return 0, 0, err
	}

	for _, entry := range entries {
		fullPath := filepath.Join(dirPath, entry.Name())

		if entry.IsDir() {
			if recursive {
				files, chunks, err := processDirectory(ctx, sys, workspaceID, fullPath, recursive, deriveSchema, verbose)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to process directory %s: %v\n", fullPath, err)
					continue
				}
				totalFiles += files
				totalChunks += chunks
			}
			continue
		}

		files, chunks, err := processFile(ctx, sys, workspaceID, fullPath, deriveSchema, verbose)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to process file %s: %v\n", fullPath, err)
			continue
		}
		totalFiles += files
		totalChunks += chunks
	}

	return totalFiles, totalChunks, nil
}

func processFile(ctx context.Context, sys *common.System, workspaceID, filePath string, deriveSchema, verbose bool) (int, int, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	supportedExts := []string{".txt", ".md", ".markdown"}
	supported := false
	for _, supportedExt := range supportedExts {
		if ext == supportedExt {
			supported = true
			break
		}
	}

	if !supported {
		if verbose {
			fmt.Printf("Skipping unsupported file: %s\n", filePath)
		}
		return 0, 0, nil
	}

	if verbose {
		fmt.Printf("Processing: %s\n", filePath)
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read file: %w", err)
	}

	chunks, err := sys.IngestDocument(ctx, workspaceID, filePath, string(content), deriveSchema)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to ingest: %w", err)
	}

	if verbose {
		fmt.Printf("  Created %d chunks\n", chunks)
	}

	return 1, chunks, nil
}
