package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/pkgdex/internal/domain/search/filter"
	"github.com/kailas-cloud/pkgdex/internal/domain/search/mode"
	"github.com/kailas-cloud/pkgdex/internal/domain/search/request"
	chiTransport "github.com/kailas-cloud/pkgdex/internal/transport/chi"
)

type searchOptions struct {
	limit         int
	offset        int
	mode          string
	license       string
	category      string
	includeBroken bool
	includeUnfree bool
	compact       bool
}

func newSearchCmd(rt *runtimeEnv) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run one search and print the JSON envelope",
		Long: `Run one search against the configured backends and print the same
JSON envelope the HTTP API returns.

Examples:
  pkgdex search nodejs
  pkgdex search "terminal file manager" --mode hybrid --limit 5
  pkgdex search editor --license mit --include-unfree`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			req, err := request.New(
				strings.Join(args, " "), opts.limit, opts.offset,
				filter.New(opts.license, opts.category, opts.includeBroken, opts.includeUnfree),
				mode.Parse(opts.mode),
			)
			if err != nil {
				return err
			}

			a, err := buildApp(ctx, &rt.cfg, rt.logger)
			if err != nil {
				return fmt.Errorf("build app: %w", err)
			}
			defer a.Close()

			res, err := a.search.Search(ctx, req)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			if !opts.compact {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(chiTransport.NewSearchResponse(&res))
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", request.DefaultLimit, "Maximum number of packages")
	cmd.Flags().IntVar(&opts.offset, "offset", 0, "Number of leading packages to skip")
	cmd.Flags().StringVarP(&opts.mode, "mode", "m", "", "Force a mode: fts, vector, hybrid")
	cmd.Flags().StringVar(&opts.license, "license", "", "License substring filter")
	cmd.Flags().StringVar(&opts.category, "category", "", "Category substring filter")
	cmd.Flags().BoolVar(&opts.includeBroken, "include-broken", false, "Include broken packages")
	cmd.Flags().BoolVar(&opts.includeUnfree, "include-unfree", false, "Include unfree packages")
	cmd.Flags().BoolVar(&opts.compact, "compact", false, "Print single-line JSON")
	return cmd
}
