package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/raoulx24/album-mirror/internal/asset"
	"github.com/raoulx24/album-mirror/internal/selector"
)

func selectCmd(opts *options) *cobra.Command {
	var explain bool

	cmd := &cobra.Command{
		Use:   "select [descriptor.json]",
		Short: "Print the rendition URL chosen for one asset descriptor",
		Long: `Read one asset descriptor as JSON (from the file argument or stdin)
and print the URL the selector would download. Useful when tuning
thresholds against a captured webasseturls item.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}

			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			data, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("reading descriptor: %w", err)
			}
			var d asset.Descriptor
			if err := json.Unmarshal(data, &d); err != nil {
				return fmt.Errorf("decoding descriptor: %w", err)
			}

			sel := selector.New(cfg.Thresholds.Rules(), newLogger(cfg, cmd.ErrOrStderr())).Explain(d)

			out := cmd.OutOrStdout()
			if explain {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(sel)
			}
			if sel.Reason == selector.ReasonNone {
				return errors.New("no full-size rendition")
			}
			fmt.Fprintln(out, sel.URL)
			return nil
		},
	}

	cmd.Flags().BoolVar(&explain, "explain", false, "Print the chosen key and rule as JSON")
	return cmd
}
