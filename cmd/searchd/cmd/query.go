package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sourcebot-dev/sourcebot-sub003/internal/config"
	"github.com/sourcebot-dev/sourcebot-sub003/internal/ir"
	"github.com/sourcebot-dev/sourcebot-sub003/internal/query"
	"github.com/sourcebot-dev/sourcebot-sub003/internal/repostore"
)

// newQueryCmd creates the query debug command. It compiles a query string
// and prints the resulting engine query without executing it.
func newQueryCmd(configPath *string) *cobra.Command {
	var caseSensitive bool
	var regex bool

	cmd := &cobra.Command{
		Use:   "query <query>",
		Short: "Compile a query and print the engine form",
		Long: `Parse a query string and print the compiled engine query as JSON.

Useful for debugging filter behavior without a running engine:

  searchd query "error handler repo:myorg/api"
  searchd query "context:backend sym:Parse" --regexp`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := strings.Join(args, " ")
			return runCompileQuery(cmd, cmd.OutOrStdout(), *configPath, input, caseSensitive, regex)
		},
	}

	cmd.Flags().BoolVar(&caseSensitive, "case-sensitive", false, "Match case sensitively")
	cmd.Flags().BoolVar(&regex, "regexp", false, "Treat bare terms as regular expressions")

	return cmd
}

func runCompileQuery(cmd *cobra.Command, out io.Writer, configPath, input string, caseSensitive, regex bool) error {
	tree, err := query.Parse(input)
	if err != nil {
		return err
	}

	// Search contexts resolve against the configured store. The store is
	// opened lazily so queries without context: filters stay side-effect free.
	expander := ir.ContextExpanderFunc(func(ctx context.Context, name string) ([]string, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		store, err := repostore.Open(repostore.Options{Path: cfg.Store.DBPath})
		if err != nil {
			return nil, err
		}
		defer store.Close()
		return store.ExpandSearchContext(ctx, name)
	})

	q, err := ir.Transform(cmd.Context(), tree, ir.TransformOptions{
		CaseSensitive: caseSensitive,
		RegexEnabled:  regex,
		Logger:        slog.New(slog.DiscardHandler),
	}, expander)
	if err != nil {
		return err
	}

	raw, err := ir.MarshalQ(q)
	if err != nil {
		return err
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, pretty.String())
	return err
}
