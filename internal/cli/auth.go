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

package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/matta/mailsheet/internal/gmail"
	"github.com/matta/mailsheet/internal/googleauth"
	"github.com/matta/mailsheet/internal/sheets"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize access to Gmail and Google Sheets",
		Long: `auth walks through the OAuth consent flow and saves the resulting
token for later runs.  It needs the OAuth client secrets file
downloaded from the Google Cloud console.`,
		RunE: runAuth,
	}

	cmd.Flags().String("credentials", "", "path to the OAuth client secrets file")
	cmd.Flags().String("token", "", "where to save the OAuth token")
	return cmd
}

func runAuth(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = googleauth.Authorize(ctx, cmd.InOrStdin(), cmd.OutOrStdout(),
		cfg.CredentialsFile, cfg.TokenFile, gmail.ModifyScope, sheets.Scope)
	if err != nil {
		return err
	}

	client, err := googleauth.Client(ctx, cfg.CredentialsFile, cfg.TokenFile,
		gmail.ModifyScope, sheets.Scope)
	if err != nil {
		return err
	}
	mailbox, err := gmail.New(ctx, client, nil)
	if err != nil {
		return err
	}
	addr, err := mailbox.Profile(ctx)
	if err != nil {
		return errors.Wrap(err, "token saved, but verifying it failed")
	}
	cmd.Printf("authorized %s\n", addr)
	return nil
}
