// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TallyBot Contributors

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tallybot/tallybot/internal/plugin"
)

// NewSchemaCmd creates the schema subcommand.
func NewSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the plugin manifest JSON schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := plugin.GenerateSchema()
			if err != nil {
				return fmt.Errorf("failed to generate schema: %w", err)
			}
			cmd.Println(string(data))
			return nil
		},
	}
}

// NewValidateCmd creates the validate subcommand.
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <manifest>",
		Short: "Validate a plugin manifest file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read manifest: %w", err)
			}
			if err := plugin.ValidateSchema(data); err != nil {
				return fmt.Errorf("%s: %s", args[0], plugin.FormatSchemaError(err))
			}
			if _, err := plugin.ParseManifest(data); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			cmd.Printf("%s: ok\n", args[0])
			return nil
		},
	}
}
