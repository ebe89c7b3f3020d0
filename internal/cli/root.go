// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cli implements the mailsheet command line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/matta/mailsheet/internal/config"
)

// NewRootCmd assembles the command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "mailsheet",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Short:             "Copy unread Gmail messages into a Google Sheet",
		Long: `mailsheet copies unread Gmail inbox messages into a Google
spreadsheet.  Delivered message ids are remembered, so interrupted or
repeated runs never write duplicate rows and never lose a message.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().String("config", "",
		"path to config file (default config.yaml in the user config dir)")
	cmd.PersistentFlags().String("log-level", "info",
		"log level (debug, info, warn, error)")
	cmd.PersistentFlags().Bool("trace", false,
		"dump HTTP traffic to stderr")

	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newAuthCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// Execute runs the command tree.
func Execute() error {
	return NewRootCmd().Execute()
}

// loadConfig resolves the configuration for a command, letting its
// set flags override file and environment values.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfgFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	return config.Load(cfgFile, cmd.Flags())
}
