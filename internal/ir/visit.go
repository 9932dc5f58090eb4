package ir

// Action is the tri-state signal a visitor callback returns.
type Action int

const (
	// Continue proceeds with the traversal, descending into children.
	Continue Action = iota
	// Stop halts the whole traversal immediately.
	Stop
	// SkipChildren proceeds with the traversal without descending into
	// this node's children.
	SkipChildren
)

// Visitor holds optional per-kind callbacks for traversing a query tree.
// A nil callback is treated as Continue.
type Visitor struct {
	OnAnd           func(*And) Action
	OnOr            func(*Or) Action
	OnNot           func(*Not) Action
	OnBoost         func(*Boost) Action
	OnSubstring     func(*Substring) Action
	OnRegexp        func(*Regexp) Action
	OnSymbol        func(*Symbol) Action
	OnRepo          func(*Repo) Action
	OnRepoSet       func(*RepoSet) Action
	OnRepoIDs       func(*RepoIDs) Action
	OnBranchesRepos func(*BranchesRepos) Action
	OnBranch        func(*Branch) Action
	OnLanguage      func(*Language) Action
	OnRawConfig     func(*RawConfig) Action
	OnConst         func(*Const) Action
	OnType          func(*Type) Action
	OnFileNameSet   func(*FileNameSet) Action
}

// Walk traverses q in pre-order, children left to right, invoking the
// visitor callback matching each node's kind. Composite nodes (and, or,
// not, boost, symbol) recurse into their children after their own
// callback unless it returned Stop or SkipChildren. Walk reports whether
// the traversal ran to completion (false means a callback returned Stop).
//
// Traversal order is deterministic for a given tree.
func Walk(q Q, v Visitor) bool {
	if q == nil {
		return true
	}

	call := func(action Action) (recurse bool, halted bool) {
		switch action {
		case Stop:
			return false, true
		case SkipChildren:
			return false, false
		default:
			return true, false
		}
	}

	switch node := q.(type) {
	case *And:
		recurse, halted := call(invoke(v.OnAnd, node))
		if halted {
			return false
		}
		if recurse {
			for _, child := range node.Children {
				if !Walk(child, v) {
					return false
				}
			}
		}

	case *Or:
		recurse, halted := call(invoke(v.OnOr, node))
		if halted {
			return false
		}
		if recurse {
			for _, child := range node.Children {
				if !Walk(child, v) {
					return false
				}
			}
		}

	case *Not:
		recurse, halted := call(invoke(v.OnNot, node))
		if halted {
			return false
		}
		if recurse {
			return Walk(node.Child, v)
		}

	case *Boost:
		recurse, halted := call(invoke(v.OnBoost, node))
		if halted {
			return false
		}
		if recurse {
			return Walk(node.Child, v)
		}

	case *Symbol:
		recurse, halted := call(invoke(v.OnSymbol, node))
		if halted {
			return false
		}
		if recurse {
			return Walk(node.Expr, v)
		}

	case *Substring:
		if _, halted := call(invoke(v.OnSubstring, node)); halted {
			return false
		}
	case *Regexp:
		if _, halted := call(invoke(v.OnRegexp, node)); halted {
			return false
		}
	case *Repo:
		if _, halted := call(invoke(v.OnRepo, node)); halted {
			return false
		}
	case *RepoSet:
		if _, halted := call(invoke(v.OnRepoSet, node)); halted {
			return false
		}
	case *RepoIDs:
		if _, halted := call(invoke(v.OnRepoIDs, node)); halted {
			return false
		}
	case *BranchesRepos:
		if _, halted := call(invoke(v.OnBranchesRepos, node)); halted {
			return false
		}
	case *Branch:
		if _, halted := call(invoke(v.OnBranch, node)); halted {
			return false
		}
	case *Language:
		if _, halted := call(invoke(v.OnLanguage, node)); halted {
			return false
		}
	case *RawConfig:
		if _, halted := call(invoke(v.OnRawConfig, node)); halted {
			return false
		}
	case *Const:
		if _, halted := call(invoke(v.OnConst, node)); halted {
			return false
		}
	case *Type:
		if _, halted := call(invoke(v.OnType, node)); halted {
			return false
		}
	case *FileNameSet:
		if _, halted := call(invoke(v.OnFileNameSet, node)); halted {
			return false
		}
	}

	return true
}

func invoke[T Q](fn func(T) Action, node T) Action {
	if fn == nil {
		return Continue
	}
	return fn(node)
}

// Find returns the first node in pre-order for which predicate returns
// true, or nil if none matches.
func Find(q Q, predicate func(Q) bool) Q {
	var found Q

	check := func(node Q) Action {
		if predicate(node) {
			found = node
			return Stop
		}
		return Continue
	}

	Walk(q, Visitor{
		OnAnd:           func(n *And) Action { return check(n) },
		OnOr:            func(n *Or) Action { return check(n) },
		OnNot:           func(n *Not) Action { return check(n) },
		OnBoost:         func(n *Boost) Action { return check(n) },
		OnSubstring:     func(n *Substring) Action { return check(n) },
		OnRegexp:        func(n *Regexp) Action { return check(n) },
		OnSymbol:        func(n *Symbol) Action { return check(n) },
		OnRepo:          func(n *Repo) Action { return check(n) },
		OnRepoSet:       func(n *RepoSet) Action { return check(n) },
		OnRepoIDs:       func(n *RepoIDs) Action { return check(n) },
		OnBranchesRepos: func(n *BranchesRepos) Action { return check(n) },
		OnBranch:        func(n *Branch) Action { return check(n) },
		OnLanguage:      func(n *Language) Action { return check(n) },
		OnRawConfig:     func(n *RawConfig) Action { return check(n) },
		OnConst:         func(n *Const) Action { return check(n) },
		OnType:          func(n *Type) Action { return check(n) },
		OnFileNameSet:   func(n *FileNameSet) Action { return check(n) },
	})

	return found
}

// Some reports whether any node in the tree matches the predicate.
func Some(q Q, predicate func(Q) bool) bool {
	return Find(q, predicate) != nil
}

// IsBranch reports whether the node is a branch filter. Used to detect
// queries that already scope by revision.
func IsBranch(q Q) bool {
	_, ok := q.(*Branch)
	return ok
}
