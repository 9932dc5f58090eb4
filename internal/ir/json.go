package ir

import (
	"encoding/json"
	"fmt"
)

// The wire form of a query node is a tagged union: a "query" discriminator
// naming the populated arm, plus exactly one arm field. Example:
//
//	{"query":"substring","substring":{"pattern":"foo","content":true,...}}

type envelope struct {
	Query         string             `json:"query"`
	And           *childrenBody      `json:"and,omitempty"`
	Or            *childrenBody      `json:"or,omitempty"`
	Not           *childBody         `json:"not,omitempty"`
	Boost         *boostBody         `json:"boost,omitempty"`
	Substring     *substringBody     `json:"substring,omitempty"`
	Regexp        *regexpBody        `json:"regexp,omitempty"`
	Symbol        *symbolBody        `json:"symbol,omitempty"`
	Repo          *repoBody          `json:"repo,omitempty"`
	RepoSet       *repoSetBody       `json:"repo_set,omitempty"`
	RepoIDs       *repoIDsBody       `json:"repo_ids,omitempty"`
	BranchesRepos *branchesReposBody `json:"branches_repos,omitempty"`
	Branch        *branchBody        `json:"branch,omitempty"`
	Language      *languageBody      `json:"language,omitempty"`
	RawConfig     *rawConfigBody     `json:"raw_config,omitempty"`
	Const         *bool              `json:"const,omitempty"`
	Type          *typeBody          `json:"type,omitempty"`
	FileNameSet   *setBody           `json:"file_name_set,omitempty"`
}

type childrenBody struct {
	Children []*envelope `json:"children"`
}

type childBody struct {
	Child *envelope `json:"child"`
}

type boostBody struct {
	Child *envelope `json:"child"`
	Boost float64   `json:"boost"`
}

type substringBody struct {
	Pattern       string `json:"pattern"`
	CaseSensitive bool   `json:"case_sensitive"`
	FileName      bool   `json:"file_name"`
	Content       bool   `json:"content"`
}

type regexpBody struct {
	Regexp        string `json:"regexp"`
	CaseSensitive bool   `json:"case_sensitive"`
	FileName      bool   `json:"file_name"`
	Content       bool   `json:"content"`
}

type symbolBody struct {
	Expr *envelope `json:"expr"`
}

type repoBody struct {
	Regexp string `json:"regexp"`
}

type repoSetBody struct {
	Set map[string]bool `json:"set"`
}

type repoIDsBody struct {
	IDs []uint32 `json:"ids"`
}

type branchesReposBody struct {
	List []BranchRepos `json:"list"`
}

type branchBody struct {
	Pattern string `json:"pattern"`
	Exact   bool   `json:"exact"`
}

type languageBody struct {
	Language string `json:"language"`
}

type rawConfigBody struct {
	Flags []RawConfigFlag `json:"flags"`
}

type typeBody struct {
	Type  SearchType `json:"type"`
	Child *envelope  `json:"child"`
}

type setBody struct {
	Set map[string]bool `json:"set"`
}

// MarshalQ encodes a query tree into its tagged wire form.
func MarshalQ(q Q) ([]byte, error) {
	env, err := toEnvelope(q)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

// UnmarshalQ decodes a query tree from its tagged wire form.
func UnmarshalQ(data []byte) (Q, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode query: %w", err)
	}
	return fromEnvelope(&env)
}

func toEnvelope(q Q) (*envelope, error) {
	if q == nil {
		return nil, fmt.Errorf("cannot encode nil query node")
	}

	toEnvelopes := func(children []Q) ([]*envelope, error) {
		out := make([]*envelope, len(children))
		for i, c := range children {
			env, err := toEnvelope(c)
			if err != nil {
				return nil, err
			}
			out[i] = env
		}
		return out, nil
	}

	switch node := q.(type) {
	case *And:
		children, err := toEnvelopes(node.Children)
		if err != nil {
			return nil, err
		}
		return &envelope{Query: "and", And: &childrenBody{Children: children}}, nil

	case *Or:
		children, err := toEnvelopes(node.Children)
		if err != nil {
			return nil, err
		}
		return &envelope{Query: "or", Or: &childrenBody{Children: children}}, nil

	case *Not:
		child, err := toEnvelope(node.Child)
		if err != nil {
			return nil, err
		}
		return &envelope{Query: "not", Not: &childBody{Child: child}}, nil

	case *Boost:
		child, err := toEnvelope(node.Child)
		if err != nil {
			return nil, err
		}
		return &envelope{Query: "boost", Boost: &boostBody{Child: child, Boost: node.Boost}}, nil

	case *Substring:
		return &envelope{Query: "substring", Substring: &substringBody{
			Pattern:       node.Pattern,
			CaseSensitive: node.CaseSensitive,
			FileName:      node.FileName,
			Content:       node.Content,
		}}, nil

	case *Regexp:
		return &envelope{Query: "regexp", Regexp: &regexpBody{
			Regexp:        node.Regexp,
			CaseSensitive: node.CaseSensitive,
			FileName:      node.FileName,
			Content:       node.Content,
		}}, nil

	case *Symbol:
		expr, err := toEnvelope(node.Expr)
		if err != nil {
			return nil, err
		}
		return &envelope{Query: "symbol", Symbol: &symbolBody{Expr: expr}}, nil

	case *Repo:
		return &envelope{Query: "repo", Repo: &repoBody{Regexp: node.Regexp}}, nil

	case *RepoSet:
		return &envelope{Query: "repo_set", RepoSet: &repoSetBody{Set: node.Set}}, nil

	case *RepoIDs:
		return &envelope{Query: "repo_ids", RepoIDs: &repoIDsBody{IDs: node.IDs}}, nil

	case *BranchesRepos:
		return &envelope{Query: "branches_repos", BranchesRepos: &branchesReposBody{List: node.List}}, nil

	case *Branch:
		return &envelope{Query: "branch", Branch: &branchBody{Pattern: node.Pattern, Exact: node.Exact}}, nil

	case *Language:
		return &envelope{Query: "language", Language: &languageBody{Language: node.Language}}, nil

	case *RawConfig:
		flags := node.Flags
		if flags == nil {
			flags = []RawConfigFlag{}
		}
		return &envelope{Query: "raw_config", RawConfig: &rawConfigBody{Flags: flags}}, nil

	case *Const:
		value := node.Value
		return &envelope{Query: "const", Const: &value}, nil

	case *Type:
		child, err := toEnvelope(node.Child)
		if err != nil {
			return nil, err
		}
		return &envelope{Query: "type", Type: &typeBody{Type: node.Type, Child: child}}, nil

	case *FileNameSet:
		return &envelope{Query: "file_name_set", FileNameSet: &setBody{Set: node.Set}}, nil

	default:
		return nil, fmt.Errorf("cannot encode query node %T", q)
	}
}

func fromEnvelope(env *envelope) (Q, error) {
	if env == nil {
		return nil, fmt.Errorf("cannot decode nil query node")
	}

	fromEnvelopes := func(children []*envelope) ([]Q, error) {
		out := make([]Q, len(children))
		for i, c := range children {
			q, err := fromEnvelope(c)
			if err != nil {
				return nil, err
			}
			out[i] = q
		}
		return out, nil
	}

	// The discriminator and populated arm must agree.
	arm := func(name string) error {
		if env.Query != name {
			return fmt.Errorf("query tag %q does not match populated arm %q", env.Query, name)
		}
		return nil
	}

	switch {
	case env.And != nil:
		if err := arm("and"); err != nil {
			return nil, err
		}
		children, err := fromEnvelopes(env.And.Children)
		if err != nil {
			return nil, err
		}
		return &And{Children: children}, nil

	case env.Or != nil:
		if err := arm("or"); err != nil {
			return nil, err
		}
		children, err := fromEnvelopes(env.Or.Children)
		if err != nil {
			return nil, err
		}
		return &Or{Children: children}, nil

	case env.Not != nil:
		if err := arm("not"); err != nil {
			return nil, err
		}
		child, err := fromEnvelope(env.Not.Child)
		if err != nil {
			return nil, err
		}
		return &Not{Child: child}, nil

	case env.Boost != nil:
		if err := arm("boost"); err != nil {
			return nil, err
		}
		child, err := fromEnvelope(env.Boost.Child)
		if err != nil {
			return nil, err
		}
		return &Boost{Child: child, Boost: env.Boost.Boost}, nil

	case env.Substring != nil:
		if err := arm("substring"); err != nil {
			return nil, err
		}
		return &Substring{
			Pattern:       env.Substring.Pattern,
			CaseSensitive: env.Substring.CaseSensitive,
			FileName:      env.Substring.FileName,
			Content:       env.Substring.Content,
		}, nil

	case env.Regexp != nil:
		if err := arm("regexp"); err != nil {
			return nil, err
		}
		return &Regexp{
			Regexp:        env.Regexp.Regexp,
			CaseSensitive: env.Regexp.CaseSensitive,
			FileName:      env.Regexp.FileName,
			Content:       env.Regexp.Content,
		}, nil

	case env.Symbol != nil:
		if err := arm("symbol"); err != nil {
			return nil, err
		}
		expr, err := fromEnvelope(env.Symbol.Expr)
		if err != nil {
			return nil, err
		}
		return &Symbol{Expr: expr}, nil

	case env.Repo != nil:
		if err := arm("repo"); err != nil {
			return nil, err
		}
		return &Repo{Regexp: env.Repo.Regexp}, nil

	case env.RepoSet != nil:
		if err := arm("repo_set"); err != nil {
			return nil, err
		}
		return &RepoSet{Set: env.RepoSet.Set}, nil

	case env.RepoIDs != nil:
		if err := arm("repo_ids"); err != nil {
			return nil, err
		}
		return &RepoIDs{IDs: env.RepoIDs.IDs}, nil

	case env.BranchesRepos != nil:
		if err := arm("branches_repos"); err != nil {
			return nil, err
		}
		return &BranchesRepos{List: env.BranchesRepos.List}, nil

	case env.Branch != nil:
		if err := arm("branch"); err != nil {
			return nil, err
		}
		return &Branch{Pattern: env.Branch.Pattern, Exact: env.Branch.Exact}, nil

	case env.Language != nil:
		if err := arm("language"); err != nil {
			return nil, err
		}
		return &Language{Language: env.Language.Language}, nil

	case env.RawConfig != nil:
		if err := arm("raw_config"); err != nil {
			return nil, err
		}
		return &RawConfig{Flags: env.RawConfig.Flags}, nil

	case env.Const != nil:
		if err := arm("const"); err != nil {
			return nil, err
		}
		return &Const{Value: *env.Const}, nil

	case env.Type != nil:
		if err := arm("type"); err != nil {
			return nil, err
		}
		child, err := fromEnvelope(env.Type.Child)
		if err != nil {
			return nil, err
		}
		return &Type{Type: env.Type.Type, Child: child}, nil

	case env.FileNameSet != nil:
		if err := arm("file_name_set"); err != nil {
			return nil, err
		}
		return &FileNameSet{Set: env.FileNameSet.Set}, nil

	default:
		return nil, fmt.Errorf("query node has no populated arm (tag %q)", env.Query)
	}
}
