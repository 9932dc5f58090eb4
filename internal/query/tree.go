// Package query implements the search query language parser.
//
// The grammar supports bare terms (quoted or unquoted), boolean and/or
// connectives, a fixed vocabulary of prefix filters (file:, repo:, rev:,
// lang:, ...), parenthesized grouping, and prefix negation. Parsing is
// strict: any syntax the grammar does not recognize is a hard failure.
package query

import "fmt"

// NodeKind identifies a syntax tree node type.
type NodeKind int

const (
	KindProgram NodeKind = iota
	KindAndExpr
	KindOrExpr
	KindNegateExpr
	KindParenExpr
	KindPrefixExpr
	KindTerm
)

func (k NodeKind) String() string {
	switch k {
	case KindProgram:
		return "Program"
	case KindAndExpr:
		return "AndExpr"
	case KindOrExpr:
		return "OrExpr"
	case KindNegateExpr:
		return "NegateExpr"
	case KindParenExpr:
		return "ParenExpr"
	case KindPrefixExpr:
		return "PrefixExpr"
	case KindTerm:
		return "Term"
	default:
		return fmt.Sprintf("NodeKind(%d)", int(k))
	}
}

// PrefixKind identifies the specific filter of a PrefixExpr node.
type PrefixKind int

const (
	PrefixNone PrefixKind = iota
	PrefixFile
	PrefixRepo
	PrefixRevision
	PrefixContent
	PrefixLang
	PrefixSym
	PrefixVisibility
	PrefixArchived
	PrefixFork
	PrefixContext
	PrefixRepoSet
)

func (k PrefixKind) String() string {
	switch k {
	case PrefixFile:
		return "FileExpr"
	case PrefixRepo:
		return "RepoExpr"
	case PrefixRevision:
		return "RevisionExpr"
	case PrefixContent:
		return "ContentExpr"
	case PrefixLang:
		return "LangExpr"
	case PrefixSym:
		return "SymExpr"
	case PrefixVisibility:
		return "VisibilityExpr"
	case PrefixArchived:
		return "ArchivedExpr"
	case PrefixFork:
		return "ForkExpr"
	case PrefixContext:
		return "ContextExpr"
	case PrefixRepoSet:
		return "RepoSetExpr"
	default:
		return fmt.Sprintf("PrefixKind(%d)", int(k))
	}
}

// Node is an immutable syntax tree node. From and To are byte offsets
// into the original query string spanning the node's source text.
type Node struct {
	Kind     NodeKind
	Prefix   PrefixKind // set only for KindPrefixExpr
	From, To int
	Children []*Node
}

// Text returns the source text the node spans.
func (n *Node) Text(input string) string {
	return input[n.From:n.To]
}

// FirstChild returns the node's first child, or nil.
func (n *Node) FirstChild() *Node {
	if len(n.Children) == 0 {
		return nil
	}
	return n.Children[0]
}

// Tree is the result of parsing a query string.
type Tree struct {
	// Root is the Program node.
	Root *Node
	// Input is the original query string the tree's spans refer to.
	Input string
}

// SyntaxError is a structured parse failure.
type SyntaxError struct {
	// Message describes what the parser expected.
	Message string
	// Offset is the byte offset into the query where parsing failed.
	Offset int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d: %s", e.Offset, e.Message)
}
