// Package ir defines the query intermediate representation: the structured,
// typed form of a search query consumed by the request builder and sent to
// the search engine.
//
// The IR is a tagged union modeled as a sealed interface: exactly one
// concrete node type per union arm, dispatched with a type switch. IR trees
// are immutable values, constructed bottom-up by the transformer and never
// mutated by consumers.
package ir

import (
	"fmt"
	"sort"
	"strings"
)

// Q is a query IR node. The set of implementations is sealed; consumers
// dispatch with a type switch over the pointer types in this package.
type Q interface {
	irNode()
	String() string
}

// And matches documents that match all children.
type And struct {
	Children []Q
}

// Or matches documents that match any child.
type Or struct {
	Children []Q
}

// Not inverts its child.
type Not struct {
	Child Q
}

// Boost scales the score of matches of its child.
type Boost struct {
	Child Q
	Boost float64
}

// Substring matches a literal pattern against content and/or file names.
type Substring struct {
	Pattern       string
	CaseSensitive bool
	FileName      bool
	Content       bool
}

// Regexp matches a regular expression against content and/or file names.
type Regexp struct {
	Regexp        string
	CaseSensitive bool
	FileName      bool
	Content       bool
}

// Symbol restricts its expression to symbol definitions.
type Symbol struct {
	Expr Q
}

// Repo matches repositories by name regexp.
type Repo struct {
	Regexp string
}

// RepoSet matches repositories by exact name membership.
type RepoSet struct {
	Set map[string]bool
}

// RepoIDs matches repositories by numeric id membership.
type RepoIDs struct {
	IDs []uint32
}

// BranchRepos is one branch paired with the repository ids it applies to.
type BranchRepos struct {
	Branch  string   `json:"branch"`
	RepoIDs []uint32 `json:"repo_ids"`
}

// BranchesRepos matches a set of branches scoped to repository ids.
type BranchesRepos struct {
	List []BranchRepos
}

// Branch matches documents on branches matching the pattern.
// When Exact is set, the pattern must equal the branch name.
type Branch struct {
	Pattern string
	Exact   bool
}

// Language matches documents by detected language.
type Language struct {
	Language string
}

// RawConfigFlag is an engine-side repository config filter flag.
type RawConfigFlag string

const (
	FlagOnlyPublic   RawConfigFlag = "FLAG_ONLY_PUBLIC"
	FlagOnlyPrivate  RawConfigFlag = "FLAG_ONLY_PRIVATE"
	FlagOnlyForks    RawConfigFlag = "FLAG_ONLY_FORKS"
	FlagNoForks      RawConfigFlag = "FLAG_NO_FORKS"
	FlagOnlyArchived RawConfigFlag = "FLAG_ONLY_ARCHIVED"
	FlagNoArchived   RawConfigFlag = "FLAG_NO_ARCHIVED"
)

// RawConfig filters repositories by config flags (visibility, forks,
// archived). An empty flag list matches everything.
type RawConfig struct {
	Flags []RawConfigFlag
}

// Const matches everything (true) or nothing (false).
type Const struct {
	Value bool
}

// SearchType restricts what kind of results a sub-query yields.
type SearchType string

const (
	TypeFileMatch SearchType = "SEARCH_TYPE_FILE_MATCH"
	TypeFileName  SearchType = "SEARCH_TYPE_FILE_NAME"
	TypeRepo      SearchType = "SEARCH_TYPE_REPO"
)

// Type wraps a child query with a result type restriction.
type Type struct {
	Type  SearchType
	Child Q
}

// FileNameSet matches documents by exact file name membership.
type FileNameSet struct {
	Set map[string]bool
}

func (*And) irNode()           {}
func (*Or) irNode()            {}
func (*Not) irNode()           {}
func (*Boost) irNode()         {}
func (*Substring) irNode()     {}
func (*Regexp) irNode()        {}
func (*Symbol) irNode()        {}
func (*Repo) irNode()          {}
func (*RepoSet) irNode()       {}
func (*RepoIDs) irNode()       {}
func (*BranchesRepos) irNode() {}
func (*Branch) irNode()        {}
func (*Language) irNode()      {}
func (*RawConfig) irNode()     {}
func (*Const) irNode()         {}
func (*Type) irNode()          {}
func (*FileNameSet) irNode()   {}

func joinChildren(op string, children []Q) string {
	parts := make([]string, len(children))
	for i, c := range children {
		parts[i] = c.String()
	}
	return "(" + op + " " + strings.Join(parts, " ") + ")"
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (q *And) String() string { return joinChildren("and", q.Children) }
func (q *Or) String() string  { return joinChildren("or", q.Children) }
func (q *Not) String() string { return "(not " + q.Child.String() + ")" }
func (q *Boost) String() string {
	return fmt.Sprintf("(boost %.2f %s)", q.Boost, q.Child.String())
}
func (q *Substring) String() string {
	return fmt.Sprintf("substr:%q", q.Pattern)
}
func (q *Regexp) String() string {
	return fmt.Sprintf("regex:%q", q.Regexp)
}
func (q *Symbol) String() string { return "(sym " + q.Expr.String() + ")" }
func (q *Repo) String() string   { return fmt.Sprintf("repo:%q", q.Regexp) }
func (q *RepoSet) String() string {
	return "(reposet " + strings.Join(sortedKeys(q.Set), " ") + ")"
}
func (q *RepoIDs) String() string {
	return fmt.Sprintf("(repoids %v)", q.IDs)
}
func (q *BranchesRepos) String() string {
	parts := make([]string, len(q.List))
	for i, br := range q.List {
		parts[i] = fmt.Sprintf("%s:%d", br.Branch, len(br.RepoIDs))
	}
	return "(branchesrepos " + strings.Join(parts, " ") + ")"
}
func (q *Branch) String() string {
	if q.Exact {
		return fmt.Sprintf("branch=%q", q.Pattern)
	}
	return fmt.Sprintf("branch:%q", q.Pattern)
}
func (q *Language) String() string { return "lang:" + q.Language }
func (q *RawConfig) String() string {
	parts := make([]string, len(q.Flags))
	for i, f := range q.Flags {
		parts[i] = string(f)
	}
	return "(rawconfig " + strings.Join(parts, " ") + ")"
}
func (q *Const) String() string {
	if q.Value {
		return "TRUE"
	}
	return "FALSE"
}
func (q *Type) String() string { return fmt.Sprintf("(type %s %s)", q.Type, q.Child.String()) }
func (q *FileNameSet) String() string {
	return "(filenameset " + strings.Join(sortedKeys(q.Set), " ") + ")"
}

// NewRepoSet builds a RepoSet from repository names, trimming whitespace.
func NewRepoSet(names ...string) *RepoSet {
	set := make(map[string]bool, len(names))
	for _, name := range names {
		set[strings.TrimSpace(name)] = true
	}
	return &RepoSet{Set: set}
}
