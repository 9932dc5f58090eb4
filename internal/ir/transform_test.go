package ir

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serrors "github.com/sourcebot-dev/sourcebot-sub003/internal/errors"
	"github.com/sourcebot-dev/sourcebot-sub003/internal/query"
)

func mustParse(t *testing.T, input string) *query.Tree {
	t.Helper()
	tree, err := query.Parse(input)
	require.NoError(t, err)
	return tree
}

func transform(t *testing.T, input string, opts TransformOptions, expander ContextExpander) Q {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	q, err := Transform(context.Background(), mustParse(t, input), opts, expander)
	require.NoError(t, err)
	return q
}

func TestTransformTerms(t *testing.T) {
	tests := []struct {
		name  string
		input string
		opts  TransformOptions
		want  Q
	}{
		{
			name:  "bare term becomes substring",
			input: "hello",
			want:  &Substring{Pattern: "hello", Content: true},
		},
		{
			name:  "quoted term keeps spaces",
			input: `"foo bar"`,
			want:  &Substring{Pattern: "foo bar", Content: true},
		},
		{
			name:  "regex mode emits regexp",
			input: "hel+o",
			opts:  TransformOptions{RegexEnabled: true},
			want:  &Regexp{Regexp: "hel+o", Content: true},
		},
		{
			name:  "case sensitivity propagates",
			input: "Hello",
			opts:  TransformOptions{CaseSensitive: true},
			want:  &Substring{Pattern: "Hello", CaseSensitive: true, Content: true},
		},
		{
			name:  "empty query matches nothing",
			input: "",
			want:  &Const{Value: false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := transform(t, tt.input, tt.opts, nil)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTransformComposites(t *testing.T) {
	t.Run("implicit and preserves order", func(t *testing.T) {
		got := transform(t, "foo bar baz", TransformOptions{}, nil)
		and, ok := got.(*And)
		require.True(t, ok)
		require.Len(t, and.Children, 3)
		assert.Equal(t, &Substring{Pattern: "foo", Content: true}, and.Children[0])
		assert.Equal(t, &Substring{Pattern: "bar", Content: true}, and.Children[1])
		assert.Equal(t, &Substring{Pattern: "baz", Content: true}, and.Children[2])
	})

	t.Run("or", func(t *testing.T) {
		got := transform(t, "foo or bar", TransformOptions{}, nil)
		or, ok := got.(*Or)
		require.True(t, ok)
		require.Len(t, or.Children, 2)
	})

	t.Run("negated prefix", func(t *testing.T) {
		got := transform(t, "-repo:vendor", TransformOptions{}, nil)
		assert.Equal(t, &Not{Child: &Repo{Regexp: "vendor"}}, got)
	})

	t.Run("parenthesized group", func(t *testing.T) {
		got := transform(t, "(foo or bar) lang:go", TransformOptions{}, nil)
		and, ok := got.(*And)
		require.True(t, ok)
		require.Len(t, and.Children, 2)
		_, ok = and.Children[0].(*Or)
		assert.True(t, ok)
		assert.Equal(t, &Language{Language: "go"}, and.Children[1])
	})
}

func TestTransformPrefixes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Q
	}{
		{
			name:  "file",
			input: `file:\.go$`,
			want:  &Regexp{Regexp: `\.go$`, FileName: true},
		},
		{
			name:  "repo",
			input: "repo:github\\.com/example",
			want:  &Repo{Regexp: "github\\.com/example"},
		},
		{
			name:  "rev",
			input: "rev:release",
			want:  &Branch{Pattern: "release", Exact: false},
		},
		{
			name:  "revision long form",
			input: "revision:main",
			want:  &Branch{Pattern: "main", Exact: false},
		},
		{
			name:  "content",
			input: "content:TODO",
			want:  &Substring{Pattern: "TODO", Content: true},
		},
		{
			name:  "quoted content value",
			input: `content:"foo bar"`,
			want:  &Substring{Pattern: "foo bar", Content: true},
		},
		{
			name:  "lang",
			input: "lang:typescript",
			want:  &Language{Language: "typescript"},
		},
		{
			name:  "sym wraps a content regexp",
			input: "sym:ParseQuery",
			want:  &Symbol{Expr: &Regexp{Regexp: "ParseQuery", Content: true}},
		},
		{
			name:  "visibility public",
			input: "visibility:public",
			want:  &RawConfig{Flags: []RawConfigFlag{FlagOnlyPublic}},
		},
		{
			name:  "visibility any is a no-op",
			input: "visibility:any",
			want:  &RawConfig{Flags: []RawConfigFlag{}},
		},
		{
			name:  "archived only",
			input: "archived:only",
			want:  &RawConfig{Flags: []RawConfigFlag{FlagOnlyArchived}},
		},
		{
			name:  "fork no",
			input: "fork:no",
			want:  &RawConfig{Flags: []RawConfigFlag{FlagNoForks}},
		},
		{
			name:  "reposet splits and trims",
			input: `reposet:"a/b, c/d ,e/f"`,
			want:  NewRepoSet("a/b", "c/d", "e/f"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := transform(t, tt.input, TransformOptions{}, nil)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTransformInvalidFilterValues(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		message string
	}{
		{
			name:    "visibility",
			input:   "visibility:everyone",
			message: `invalid visibility value: "everyone". Expected 'public', 'private', or 'any'`,
		},
		{
			name:    "archived",
			input:   "archived:maybe",
			message: `invalid archived value: "maybe". Expected 'yes', 'no', or 'only'`,
		},
		{
			name:    "fork",
			input:   "fork:nope",
			message: `invalid fork value: "nope". Expected 'yes', 'no', or 'only'`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Transform(context.Background(), mustParse(t, tt.input), TransformOptions{}, nil)
			require.Error(t, err)
			var serr *serrors.SearchError
			require.ErrorAs(t, err, &serr)
			assert.Equal(t, serrors.ErrCodeInvalidFilterValue, serr.Code)
			assert.Contains(t, serr.Message, tt.message)
			assert.True(t, serrors.IsUserCorrectable(err))
		})
	}
}

type mapExpander map[string][]string

func (m mapExpander) ExpandSearchContext(_ context.Context, name string) ([]string, error) {
	repos, ok := m[name]
	if !ok {
		return nil, serrors.UnknownContextError(name)
	}
	return repos, nil
}

func TestTransformSearchContext(t *testing.T) {
	expander := mapExpander{
		"backend": {"github.com/example/api", "github.com/example/worker"},
	}

	t.Run("known context expands to a repo set", func(t *testing.T) {
		got := transform(t, "context:backend panic", TransformOptions{}, expander)
		and, ok := got.(*And)
		require.True(t, ok)
		require.Len(t, and.Children, 2)
		set, ok := and.Children[0].(*RepoSet)
		require.True(t, ok)
		assert.Equal(t, map[string]bool{
			"github.com/example/api":    true,
			"github.com/example/worker": true,
		}, set.Set)
	})

	t.Run("unknown context fails the transform", func(t *testing.T) {
		_, err := Transform(context.Background(), mustParse(t, "context:frontend"), TransformOptions{}, expander)
		require.Error(t, err)
		var serr *serrors.SearchError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, serrors.ErrCodeUnknownContext, serr.Code)
	})

	t.Run("expander errors propagate through siblings", func(t *testing.T) {
		failing := ContextExpanderFunc(func(context.Context, string) ([]string, error) {
			return nil, errors.New("store offline")
		})
		_, err := Transform(context.Background(), mustParse(t, "foo context:backend bar"), TransformOptions{}, failing)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "store offline")
	})
}

func TestTransformUnhandledNodeKindMatchesEverything(t *testing.T) {
	// An unrecognized node kind degrades to a match-everything constant
	// instead of failing the query.
	tree := &query.Tree{
		Root: &query.Node{Kind: query.NodeKind(99)},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	got, err := Transform(context.Background(), tree, TransformOptions{Logger: logger}, nil)
	require.NoError(t, err)
	assert.Equal(t, &Const{Value: true}, got)
}
