// Copyright 2025 The Clientbook Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/bufalari/clientbook/clients"
	"github.com/bufalari/clientbook/geocoding"
	"github.com/bufalari/clientbook/utils/textutils"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var clientsOptions struct {
	Fold bool
}

var clientsCmd = &cobra.Command{
	Use:   "clients",
	Short: "Manage client records from the command line",
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid client ID: %s", raw)
	}

	return id, nil
}

var clientsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the active clients sorted by name",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, repo, err := openRepository(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()

		list, err := newManager(repo, nil).ListActive(cmd.Context())
		if err != nil {
			return err
		}

		return printJSON(os.Stdout, list)
	},
}

var clientsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print an active client",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		db, repo, err := openRepository(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()

		c, err := newManager(repo, nil).GetByID(cmd.Context(), id)
		if err != nil {
			return err
		}

		return printJSON(os.Stdout, c)
	},
}

var clientsSearchCmd = &cobra.Command{
	Use:   "search <fragment>",
	Short: "Print the active clients whose name contains fragment",
	Long: `Matches ignore case. With --fold accents are ignored too, so "montreal"
finds "Montréal".`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, repo, err := openRepository(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()

		m := newManager(repo, nil)

		if !clientsOptions.Fold {
			list, err := m.SearchByName(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return printJSON(os.Stdout, list)
		}

		all, err := m.ListActive(cmd.Context())
		if err != nil {
			return err
		}

		needle := textutils.LowerASCIIFolding(args[0])
		list := make([]*clients.ClientResponse, 0, len(all))

		for _, c := range all {
			if strings.Contains(textutils.LowerASCIIFolding(c.Name), needle) {
				list = append(list, c)
			}
		}

		return printJSON(os.Stdout, list)
	},
}

var clientsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Soft delete a client",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		db, repo, err := openRepository(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()

		if err := newManager(repo, nil).SoftDelete(cmd.Context(), id); err != nil {
			return err
		}

		fmt.Printf("Client %d deleted\n", id)

		return nil
	},
}

var clientsActivateCmd = &cobra.Command{
	Use:   "activate <id>",
	Short: "Restore a soft deleted client",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		db, repo, err := openRepository(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()

		if err := newManager(repo, nil).Activate(cmd.Context(), id); err != nil {
			return err
		}

		fmt.Printf("Client %d activated\n", id)

		return nil
	},
}

var clientsImportCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Create clients from a JSON array of client inputs",
	Long: `Each record goes through the same validation, uniqueness check and
geocoding as a POST /clients request. Failed records are reported and the
import continues. Use "-" to read from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var input io.Reader = os.Stdin

		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening import file: %w", err)
			}
			defer f.Close()

			input = f
		}

		inputs, err := clients.DecodeImport(input)
		if err != nil {
			return err
		}

		db, repo, err := openRepository(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		geocoder, err := newGeocoder(ctx)
		if err != nil {
			return err
		}

		var bar *progressbar.ProgressBar
		if isTerminal(os.Stderr) {
			bar = progressbar.NewOptions(len(inputs),
				progressbar.OptionSetDescription("Importing clients"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		summary := newManager(repo, geocoder).Import(ctx, inputs, func(r clients.ImportResult) {
			if bar != nil {
				_ = bar.Add(1)
			}

			if r.Err == nil || r.Skipped {
				return
			}

			logger.Warn("record not imported",
				zap.Int("index", r.Index),
				zap.Stringer("kind", clients.KindOf(r.Err)),
				zap.Error(r.Err),
			)

			// every remaining record would fail the same way
			if geocoding.IsQuotaExceededError(r.Err) {
				logger.Error("geocoding quota exhausted, stopping import", zap.Int("index", r.Index))
				cancel()
			}
		})

		if bar != nil {
			_ = bar.Finish()
		}

		fmt.Printf("✅ Imported %s clients (%s failed, %s skipped)\n",
			textutils.FormatInt(int64(summary.Created)),
			textutils.FormatInt(int64(summary.Failed)),
			textutils.FormatInt(int64(summary.Skipped)))

		if summary.Failed > 0 || summary.Skipped > 0 {
			return fmt.Errorf("%d of %d records were not imported", summary.Failed+summary.Skipped, len(inputs))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(clientsCmd)
	clientsCmd.AddCommand(clientsListCmd)
	clientsCmd.AddCommand(clientsGetCmd)
	clientsCmd.AddCommand(clientsSearchCmd)
	clientsCmd.AddCommand(clientsDeleteCmd)
	clientsCmd.AddCommand(clientsActivateCmd)
	clientsCmd.AddCommand(clientsImportCmd)

	clientsSearchCmd.Flags().BoolVar(&clientsOptions.Fold, "fold", false, "ignore accents when matching")
}
