package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sourcebot-dev/sourcebot-sub003/internal/config"
	"github.com/sourcebot-dev/sourcebot-sub003/internal/logging"
	"github.com/sourcebot-dev/sourcebot-sub003/internal/repostore"
	"github.com/sourcebot-dev/sourcebot-sub003/internal/search"
	"github.com/sourcebot-dev/sourcebot-sub003/internal/zoekt"
)

// searchOptions holds CLI flags for the one-shot search command.
type searchOptions struct {
	matches       int
	contextLines  int
	format        string // "text", "json"
	caseSensitive bool
	regex         bool
	noArchived    bool
	noForks       bool
	revision      string
	since         string
	until         string
	userID        string
}

func newSearchCmd(configPath *string) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a one-shot search against the engine",
		Long: `Run a single search from the command line.

The query uses the same language as the HTTP API:

  searchd search "error handler repo:myorg/api lang:Go"
  searchd search "sym:ParseConfig" --regexp
  searchd search "TODO" --no-archived --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runOneShotSearch(cmd.Context(), cmd.OutOrStdout(), *configPath, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.matches, "matches", "n", 0, "Maximum number of matches (0 uses the configured default)")
	cmd.Flags().IntVar(&opts.contextLines, "context-lines", 0, "Lines of context around each match")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&opts.caseSensitive, "case-sensitive", false, "Match case sensitively")
	cmd.Flags().BoolVar(&opts.regex, "regexp", false, "Treat bare terms as regular expressions")
	cmd.Flags().BoolVar(&opts.noArchived, "no-archived", false, "Exclude archived repositories")
	cmd.Flags().BoolVar(&opts.noForks, "no-forks", false, "Exclude forked repositories")
	cmd.Flags().StringVar(&opts.revision, "revision", "", "Pin the search to a git revision")
	cmd.Flags().StringVar(&opts.since, "since", "", "Only repositories indexed since this date (e.g. '2 weeks ago')")
	cmd.Flags().StringVar(&opts.until, "until", "", "Only repositories indexed until this date")
	cmd.Flags().StringVar(&opts.userID, "user", "", "User ID for permission-filtered scoping")

	return cmd
}

func runOneShotSearch(ctx context.Context, out io.Writer, configPath, query string, opts searchOptions) error {
	// File-only logging keeps stdout/stderr clean for the results.
	logCfg := logging.DefaultConfig()
	logCfg.WriteToStderr = false
	if cleanup, err := logging.SetupDefault(logCfg); err == nil {
		defer cleanup()
	}
	slog.Info("search_started", slog.String("query", query))

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	store, err := repostore.Open(repostore.Options{
		Path:                  cfg.Store.DBPath,
		PermissionSyncEnabled: cfg.Store.PermissionSyncEnabled,
	})
	if err != nil {
		return fmt.Errorf("failed to open repository store: %w", err)
	}
	defer store.Close()

	client := zoekt.NewClient(zoekt.Options{
		Network:     cfg.Engine.Network,
		Address:     cfg.Engine.Address,
		DialTimeout: cfg.Engine.DialTimeout,
	})

	service := search.NewService(client, store, slog.Default(), nil, search.Defaults{
		Matches:      cfg.Search.DefaultMatches,
		ContextLines: cfg.Search.DefaultContextLines,
	})

	resp, err := service.Search(ctx, opts.userID, &search.Request{
		Query:                    query,
		Matches:                  opts.matches,
		ContextLines:             opts.contextLines,
		IsRegexEnabled:           opts.regex,
		IsCaseSensitivityEnabled: opts.caseSensitive,
		IsArchivedExcluded:       opts.noArchived,
		IsForkedExcluded:         opts.noForks,
		GitRevision:              opts.revision,
		Since:                    opts.since,
		Until:                    opts.until,
	})
	if err != nil {
		return err
	}

	if opts.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	return printSearchResults(out, resp)
}

func printSearchResults(out io.Writer, resp *search.Response) error {
	if len(resp.Files) == 0 {
		fmt.Fprintln(out, "No results.")
		return nil
	}
	for _, file := range resp.Files {
		fmt.Fprintf(out, "%s %s\n", file.Repository, file.FileName.Text)
		for _, chunk := range file.Chunks {
			line := chunk.ContentStart.LineNumber
			for _, text := range strings.Split(strings.TrimRight(chunk.Content, "\n"), "\n") {
				fmt.Fprintf(out, "  %d: %s\n", line, text)
				line++
			}
		}
		fmt.Fprintln(out)
	}
	exhaustive := ""
	if !resp.IsSearchExhaustive {
		exhaustive = " (truncated)"
	}
	fmt.Fprintf(out, "%d matches in %d files%s\n",
		resp.Stats.ActualMatchCount, len(resp.Files), exhaustive)
	return nil
}
