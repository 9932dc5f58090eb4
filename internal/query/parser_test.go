package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parseExpr parses the input and returns the Program's single child.
func parseExpr(t *testing.T, input string) *Node {
	t.Helper()
	tree, err := Parse(input)
	require.NoError(t, err)
	require.Equal(t, KindProgram, tree.Root.Kind)
	require.Len(t, tree.Root.Children, 1)
	return tree.Root.Children[0]
}

func TestParseEmptyQuery(t *testing.T) {
	for _, input := range []string{"", "   ", "\t\n"} {
		tree, err := Parse(input)
		require.NoError(t, err)
		assert.Equal(t, KindProgram, tree.Root.Kind)
		assert.Empty(t, tree.Root.Children)
	}
}

func TestParseBareTerm(t *testing.T) {
	node := parseExpr(t, "foobar")
	assert.Equal(t, KindTerm, node.Kind)
	assert.Equal(t, "foobar", node.Text("foobar"))
}

func TestParseQuotedTerm(t *testing.T) {
	input := `"foo bar"`
	node := parseExpr(t, input)
	assert.Equal(t, KindTerm, node.Kind)
	assert.Equal(t, `"foo bar"`, node.Text(input))
}

func TestParseImplicitAnd(t *testing.T) {
	input := "foo bar baz"
	node := parseExpr(t, input)
	require.Equal(t, KindAndExpr, node.Kind)
	require.Len(t, node.Children, 3)
	assert.Equal(t, "foo", node.Children[0].Text(input))
	assert.Equal(t, "bar", node.Children[1].Text(input))
	assert.Equal(t, "baz", node.Children[2].Text(input))
}

func TestParseExplicitAndKeyword(t *testing.T) {
	input := "foo and bar"
	node := parseExpr(t, input)
	require.Equal(t, KindAndExpr, node.Kind)
	require.Len(t, node.Children, 2)
}

func TestParseOrIsCaseInsensitive(t *testing.T) {
	for _, input := range []string{"foo or bar", "foo OR bar", "foo Or bar"} {
		node := parseExpr(t, input)
		require.Equal(t, KindOrExpr, node.Kind, "input: %s", input)
		require.Len(t, node.Children, 2)
	}
}

func TestParseOrBindsLooserThanAnd(t *testing.T) {
	input := "a b or c d"
	node := parseExpr(t, input)
	require.Equal(t, KindOrExpr, node.Kind)
	require.Len(t, node.Children, 2)
	assert.Equal(t, KindAndExpr, node.Children[0].Kind)
	assert.Equal(t, KindAndExpr, node.Children[1].Kind)
}

func TestParsePrefixFilters(t *testing.T) {
	tests := []struct {
		input  string
		prefix PrefixKind
	}{
		{"file:main.go", PrefixFile},
		{"repo:github.com/org/repo", PrefixRepo},
		{"rev:release/1.0", PrefixRevision},
		{"revision:main", PrefixRevision},
		{"content:TODO", PrefixContent},
		{"lang:go", PrefixLang},
		{"sym:ParseQuery", PrefixSym},
		{"visibility:public", PrefixVisibility},
		{"archived:no", PrefixArchived},
		{"fork:only", PrefixFork},
		{"context:web", PrefixContext},
		{"reposet:a,b,c", PrefixRepoSet},
		{"FILE:main.go", PrefixFile},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			node := parseExpr(t, tt.input)
			require.Equal(t, KindPrefixExpr, node.Kind)
			assert.Equal(t, tt.prefix, node.Prefix)
			assert.Equal(t, tt.input, node.Text(tt.input))
		})
	}
}

func TestParseQuotedPrefixValue(t *testing.T) {
	input := `content:"hello world"`
	node := parseExpr(t, input)
	require.Equal(t, KindPrefixExpr, node.Kind)
	assert.Equal(t, PrefixContent, node.Prefix)
	assert.Equal(t, input, node.Text(input))
}

func TestParseUnknownPrefixIsTerm(t *testing.T) {
	// Words with a colon outside the filter vocabulary are ordinary terms.
	input := "std::vector"
	node := parseExpr(t, input)
	assert.Equal(t, KindTerm, node.Kind)
	assert.Equal(t, "std::vector", node.Text(input))
}

func TestParseNegation(t *testing.T) {
	input := "-repo:vendor foo"
	node := parseExpr(t, input)
	require.Equal(t, KindAndExpr, node.Kind)
	require.Len(t, node.Children, 2)

	negate := node.Children[0]
	require.Equal(t, KindNegateExpr, negate.Kind)
	require.Len(t, negate.Children, 1)
	assert.Equal(t, KindPrefixExpr, negate.Children[0].Kind)
	assert.Equal(t, PrefixRepo, negate.Children[0].Prefix)
}

func TestParseNegatedGroup(t *testing.T) {
	input := "-(lang:go or lang:rust)"
	node := parseExpr(t, input)
	require.Equal(t, KindNegateExpr, node.Kind)
	require.Equal(t, KindParenExpr, node.Children[0].Kind)
	assert.Equal(t, KindOrExpr, node.Children[0].Children[0].Kind)
}

func TestParseDashTermIsNotNegation(t *testing.T) {
	input := "-foo"
	node := parseExpr(t, input)
	assert.Equal(t, KindTerm, node.Kind)
	assert.Equal(t, "-foo", node.Text(input))
}

func TestParseParenGrouping(t *testing.T) {
	input := "(foo or bar) baz"
	node := parseExpr(t, input)
	require.Equal(t, KindAndExpr, node.Kind)
	require.Len(t, node.Children, 2)
	assert.Equal(t, KindParenExpr, node.Children[0].Kind)
	assert.Equal(t, KindTerm, node.Children[1].Kind)
}

func TestParseSpans(t *testing.T) {
	input := `foo repo:bar "baz qux"`
	node := parseExpr(t, input)
	require.Equal(t, KindAndExpr, node.Kind)
	require.Len(t, node.Children, 3)

	assert.Equal(t, 0, node.Children[0].From)
	assert.Equal(t, 3, node.Children[0].To)
	assert.Equal(t, "repo:bar", node.Children[1].Text(input))
	assert.Equal(t, `"baz qux"`, node.Children[2].Text(input))
	// The conjunction spans its first to last child.
	assert.Equal(t, 0, node.From)
	assert.Equal(t, len(input), node.To)
}

func TestParseStrictErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unterminated string", `"foo`},
		{"unterminated prefix value", `content:"foo`},
		{"unbalanced close paren", "foo)"},
		{"unbalanced open paren", "(foo"},
		{"empty group", "()"},
		{"dangling or", "foo or"},
		{"leading or", "or foo"},
		{"leading and", "and foo"},
		{"dangling negation", "- foo"},
		{"lone paren", "("},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			require.Error(t, err)
			var syntaxErr *SyntaxError
			assert.ErrorAs(t, err, &syntaxErr)
		})
	}
}

func TestSyntaxErrorCarriesOffset(t *testing.T) {
	_, err := Parse("foo bar)")
	var syntaxErr *SyntaxError
	require.ErrorAs(t, err, &syntaxErr)
	assert.Equal(t, 7, syntaxErr.Offset)
	assert.Contains(t, syntaxErr.Error(), "offset 7")
}
