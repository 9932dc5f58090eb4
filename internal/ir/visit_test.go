package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tree used across the traversal tests:
//
//	and( substring(a), or( regexp(b), not( branch(main) ) ), language(go) )
func exampleTree() Q {
	return &And{Children: []Q{
		&Substring{Pattern: "a", Content: true},
		&Or{Children: []Q{
			&Regexp{Regexp: "b", Content: true},
			&Not{Child: &Branch{Pattern: "main"}},
		}},
		&Language{Language: "go"},
	}}
}

func TestWalkPreOrder(t *testing.T) {
	var order []string
	record := func(name string) Action {
		order = append(order, name)
		return Continue
	}

	done := Walk(exampleTree(), Visitor{
		OnAnd:       func(*And) Action { return record("and") },
		OnOr:        func(*Or) Action { return record("or") },
		OnNot:       func(*Not) Action { return record("not") },
		OnSubstring: func(n *Substring) Action { return record("substring:" + n.Pattern) },
		OnRegexp:    func(n *Regexp) Action { return record("regexp:" + n.Regexp) },
		OnBranch:    func(n *Branch) Action { return record("branch:" + n.Pattern) },
		OnLanguage:  func(n *Language) Action { return record("language:" + n.Language) },
	})

	assert.True(t, done)
	assert.Equal(t, []string{
		"and",
		"substring:a",
		"or",
		"regexp:b",
		"not",
		"branch:main",
		"language:go",
	}, order)
}

func TestWalkStop(t *testing.T) {
	var order []string

	done := Walk(exampleTree(), Visitor{
		OnAnd:       func(*And) Action { order = append(order, "and"); return Continue },
		OnSubstring: func(*Substring) Action { order = append(order, "substring"); return Continue },
		OnOr:        func(*Or) Action { order = append(order, "or"); return Stop },
		OnRegexp:    func(*Regexp) Action { order = append(order, "regexp"); return Continue },
		OnLanguage:  func(*Language) Action { order = append(order, "language"); return Continue },
	})

	assert.False(t, done)
	assert.Equal(t, []string{"and", "substring", "or"}, order)
}

func TestWalkSkipChildren(t *testing.T) {
	var order []string

	done := Walk(exampleTree(), Visitor{
		OnOr:       func(*Or) Action { order = append(order, "or"); return SkipChildren },
		OnRegexp:   func(*Regexp) Action { order = append(order, "regexp"); return Continue },
		OnBranch:   func(*Branch) Action { order = append(order, "branch"); return Continue },
		OnLanguage: func(*Language) Action { order = append(order, "language"); return Continue },
	})

	// The or subtree is skipped but siblings after it still run.
	assert.True(t, done)
	assert.Equal(t, []string{"or", "language"}, order)
}

func TestWalkNilCallbacksAndNilTree(t *testing.T) {
	assert.True(t, Walk(exampleTree(), Visitor{}))
	assert.True(t, Walk(nil, Visitor{}))
}

func TestFind(t *testing.T) {
	t.Run("returns the first match in traversal order", func(t *testing.T) {
		tree := &And{Children: []Q{
			&Branch{Pattern: "first"},
			&Branch{Pattern: "second"},
		}}
		got := Find(tree, IsBranch)
		require.NotNil(t, got)
		assert.Equal(t, "first", got.(*Branch).Pattern)
	})

	t.Run("no match returns nil", func(t *testing.T) {
		assert.Nil(t, Find(exampleTree(), func(q Q) bool {
			_, ok := q.(*RepoSet)
			return ok
		}))
	})
}

func TestSome(t *testing.T) {
	assert.True(t, Some(exampleTree(), IsBranch))
	assert.False(t, Some(&Substring{Pattern: "x"}, IsBranch))

	// Branch filters nested under negation still count.
	assert.True(t, Some(&Not{Child: &Branch{Pattern: "dev"}}, IsBranch))
}
