package ir

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	serrors "github.com/sourcebot-dev/sourcebot-sub003/internal/errors"
	"github.com/sourcebot-dev/sourcebot-sub003/internal/query"
)

// ContextExpander resolves a named search context into the concrete
// repository names it contains. An unknown context name is an error.
type ContextExpander interface {
	ExpandSearchContext(ctx context.Context, name string) ([]string, error)
}

// ContextExpanderFunc adapts a function to the ContextExpander interface.
type ContextExpanderFunc func(ctx context.Context, name string) ([]string, error)

func (f ContextExpanderFunc) ExpandSearchContext(ctx context.Context, name string) ([]string, error) {
	return f(ctx, name)
}

// TransformOptions configure the tree-to-IR transformation.
type TransformOptions struct {
	// CaseSensitive controls pattern case sensitivity.
	CaseSensitive bool
	// RegexEnabled emits regexp nodes for bare terms instead of substrings.
	RegexEnabled bool
	// Logger receives the degrade warning for unrecognized node kinds.
	// Defaults to slog.Default().
	Logger *slog.Logger
}

// Transform walks a syntax tree and produces the query IR. Search context
// references are expanded through the expander, which may perform lookups.
//
// Unrecognized top-level node kinds degrade to a match-everything constant
// with a logged warning (forward compatibility with grammar extensions).
// Unknown prefix kinds and invalid enumerated filter values are hard
// errors. This asymmetry is deliberate.
func Transform(ctx context.Context, tree *query.Tree, opts TransformOptions, expander ContextExpander) (Q, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	t := &transformer{
		input:    tree.Input,
		opts:     opts,
		expander: expander,
	}
	return t.node(ctx, tree.Root)
}

type transformer struct {
	input    string
	opts     TransformOptions
	expander ContextExpander
}

func (t *transformer) node(ctx context.Context, node *query.Node) (Q, error) {
	switch node.Kind {
	case query.KindProgram:
		child := node.FirstChild()
		if child == nil {
			// Empty query matches nothing.
			return &Const{Value: false}, nil
		}
		return t.node(ctx, child)

	case query.KindAndExpr:
		children, err := t.children(ctx, node.Children)
		if err != nil {
			return nil, err
		}
		return &And{Children: children}, nil

	case query.KindOrExpr:
		children, err := t.children(ctx, node.Children)
		if err != nil {
			return nil, err
		}
		return &Or{Children: children}, nil

	case query.KindNegateExpr:
		child := node.FirstChild()
		if child == nil {
			return nil, fmt.Errorf("negation missing operand")
		}
		inner, err := t.node(ctx, child)
		if err != nil {
			return nil, err
		}
		return &Not{Child: inner}, nil

	case query.KindParenExpr:
		child := node.FirstChild()
		if child == nil {
			return &Const{Value: false}, nil
		}
		return t.node(ctx, child)

	case query.KindTerm:
		pattern := stripQuotes(node.Text(t.input))
		if t.opts.RegexEnabled {
			return &Regexp{
				Regexp:        pattern,
				CaseSensitive: t.opts.CaseSensitive,
				FileName:      false,
				Content:       true,
			}, nil
		}
		return &Substring{
			Pattern:       pattern,
			CaseSensitive: t.opts.CaseSensitive,
			FileName:      false,
			Content:       true,
		}, nil

	case query.KindPrefixExpr:
		return t.prefix(ctx, node)

	default:
		// Fail open: an unrecognized node kind matches everything rather
		// than failing the whole query.
		t.opts.Logger.Warn("unhandled syntax node kind, matching everything",
			slog.String("kind", node.Kind.String()))
		return &Const{Value: true}, nil
	}
}

// children transforms sibling nodes concurrently, preserving order.
func (t *transformer) children(ctx context.Context, nodes []*query.Node) ([]Q, error) {
	children := make([]Q, len(nodes))
	g, ctx := errgroup.WithContext(ctx)
	for i, node := range nodes {
		g.Go(func() error {
			q, err := t.node(ctx, node)
			if err != nil {
				return err
			}
			children[i] = q
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return children, nil
}

func (t *transformer) prefix(ctx context.Context, node *query.Node) (Q, error) {
	// The node spans "prefix:value"; take everything after the first colon
	// and strip one layer of surrounding quotes.
	text := node.Text(t.input)
	colon := strings.Index(text, ":")
	if colon == -1 {
		return nil, fmt.Errorf("%s missing colon", node.Prefix)
	}
	value := stripQuotes(text[colon+1:])

	switch node.Prefix {
	case query.PrefixFile:
		return &Regexp{
			Regexp:        value,
			CaseSensitive: t.opts.CaseSensitive,
			FileName:      true,
			Content:       false,
		}, nil

	case query.PrefixRepo:
		return &Repo{Regexp: value}, nil

	case query.PrefixRevision:
		return &Branch{Pattern: value, Exact: false}, nil

	case query.PrefixContent:
		return &Substring{
			Pattern:       value,
			CaseSensitive: t.opts.CaseSensitive,
			FileName:      false,
			Content:       true,
		}, nil

	case query.PrefixLang:
		return &Language{Language: value}, nil

	case query.PrefixSym:
		return &Symbol{Expr: &Regexp{
			Regexp:        value,
			CaseSensitive: t.opts.CaseSensitive,
			FileName:      false,
			Content:       true,
		}}, nil

	case query.PrefixVisibility:
		switch strings.ToLower(value) {
		case "any":
			return &RawConfig{Flags: []RawConfigFlag{}}, nil
		case "public":
			return &RawConfig{Flags: []RawConfigFlag{FlagOnlyPublic}}, nil
		case "private":
			return &RawConfig{Flags: []RawConfigFlag{FlagOnlyPrivate}}, nil
		default:
			return nil, serrors.InvalidFilterValueError(
				fmt.Sprintf("invalid visibility value: %q. Expected 'public', 'private', or 'any'", value))
		}

	case query.PrefixArchived:
		switch strings.ToLower(value) {
		case "yes":
			// Archived repositories are included by default.
			return &RawConfig{Flags: []RawConfigFlag{}}, nil
		case "no":
			return &RawConfig{Flags: []RawConfigFlag{FlagNoArchived}}, nil
		case "only":
			return &RawConfig{Flags: []RawConfigFlag{FlagOnlyArchived}}, nil
		default:
			return nil, serrors.InvalidFilterValueError(
				fmt.Sprintf("invalid archived value: %q. Expected 'yes', 'no', or 'only'", value))
		}

	case query.PrefixFork:
		switch strings.ToLower(value) {
		case "yes":
			// Forks are included by default.
			return &RawConfig{Flags: []RawConfigFlag{}}, nil
		case "no":
			return &RawConfig{Flags: []RawConfigFlag{FlagNoForks}}, nil
		case "only":
			return &RawConfig{Flags: []RawConfigFlag{FlagOnlyForks}}, nil
		default:
			return nil, serrors.InvalidFilterValueError(
				fmt.Sprintf("invalid fork value: %q. Expected 'yes', 'no', or 'only'", value))
		}

	case query.PrefixContext:
		if t.expander == nil {
			return nil, serrors.UnknownContextError(value)
		}
		names, err := t.expander.ExpandSearchContext(ctx, value)
		if err != nil {
			return nil, err
		}
		return NewRepoSet(names...), nil

	case query.PrefixRepoSet:
		return NewRepoSet(strings.Split(value, ",")...), nil

	default:
		return nil, fmt.Errorf("unknown prefix kind: %s", node.Prefix)
	}
}

// stripQuotes removes one layer of surrounding double quotes, if present.
func stripQuotes(s string) string {
	s = strings.TrimPrefix(s, `"`)
	s = strings.TrimSuffix(s, `"`)
	return s
}
