package query

import "strings"

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokTerm
	tokPrefix
	tokAnd
	tokOr
	tokLParen
	tokRParen
	tokMinus
)

type token struct {
	kind     tokenKind
	prefix   PrefixKind // set for tokPrefix
	from, to int
}

// prefixKinds is the fixed filter vocabulary. Words followed by a colon
// that are not in this table lex as ordinary terms.
var prefixKinds = map[string]PrefixKind{
	"file":       PrefixFile,
	"repo":       PrefixRepo,
	"rev":        PrefixRevision,
	"revision":   PrefixRevision,
	"content":    PrefixContent,
	"lang":       PrefixLang,
	"sym":        PrefixSym,
	"visibility": PrefixVisibility,
	"archived":   PrefixArchived,
	"fork":       PrefixFork,
	"context":    PrefixContext,
	"reposet":    PrefixRepoSet,
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// lex tokenizes the input. The only lex-level failure is an unterminated
// string literal.
func lex(input string) ([]token, error) {
	var tokens []token
	pos := 0

	for pos < len(input) {
		c := input[pos]

		switch {
		case isSpace(c):
			pos++

		case c == '(':
			tokens = append(tokens, token{kind: tokLParen, from: pos, to: pos + 1})
			pos++

		case c == ')':
			tokens = append(tokens, token{kind: tokRParen, from: pos, to: pos + 1})
			pos++

		case c == '-' && startsNegatable(input, pos+1):
			tokens = append(tokens, token{kind: tokMinus, from: pos, to: pos + 1})
			pos++

		case c == '"':
			end, err := scanQuoted(input, pos)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokTerm, from: pos, to: end})
			pos = end

		default:
			tok, end, err := scanAtom(input, pos)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
			pos = end
		}
	}

	tokens = append(tokens, token{kind: tokEOF, from: len(input), to: len(input)})
	return tokens, nil
}

// scanQuoted scans a double-quoted string starting at pos and returns the
// offset just past the closing quote.
func scanQuoted(input string, pos int) (int, error) {
	for i := pos + 1; i < len(input); i++ {
		if input[i] == '"' {
			return i + 1, nil
		}
	}
	return 0, &SyntaxError{Message: "unterminated string literal", Offset: pos}
}

// scanAtom scans a bare word, keyword, or prefix filter starting at pos.
func scanAtom(input string, pos int) (token, int, error) {
	// Scan the leading identifier up to a possible colon.
	i := pos
	for i < len(input) && !isSpace(input[i]) && input[i] != '(' && input[i] != ')' && input[i] != ':' && input[i] != '"' {
		i++
	}

	if i < len(input) && input[i] == ':' {
		if kind, ok := prefixKinds[strings.ToLower(input[pos:i])]; ok {
			end, err := scanPrefixValue(input, i+1)
			if err != nil {
				return token{}, 0, err
			}
			return token{kind: tokPrefix, prefix: kind, from: pos, to: end}, end, nil
		}
	}

	// Not a recognized filter: consume the rest of the word as a term.
	for i < len(input) && !isSpace(input[i]) && input[i] != '(' && input[i] != ')' {
		i++
	}

	switch strings.ToLower(input[pos:i]) {
	case "-":
		return token{}, 0, &SyntaxError{Message: "expected filter or group after '-'", Offset: pos}
	case "or":
		return token{kind: tokOr, from: pos, to: i}, i, nil
	case "and":
		return token{kind: tokAnd, from: pos, to: i}, i, nil
	}
	return token{kind: tokTerm, from: pos, to: i}, i, nil
}

// scanPrefixValue scans a filter value starting at pos (just past the
// colon). Quoted values may contain spaces; bare values end at whitespace
// or a paren. An empty value is allowed.
func scanPrefixValue(input string, pos int) (int, error) {
	if pos < len(input) && input[pos] == '"' {
		return scanQuoted(input, pos)
	}
	i := pos
	for i < len(input) && !isSpace(input[i]) && input[i] != '(' && input[i] != ')' {
		i++
	}
	return i, nil
}

// startsNegatable reports whether the input at pos begins a prefix filter
// or a group, the only operands negation applies to. A '-' followed by
// anything else is part of an ordinary term.
func startsNegatable(input string, pos int) bool {
	if pos < len(input) && input[pos] == '(' {
		return true
	}
	i := pos
	for i < len(input) && !isSpace(input[i]) && input[i] != '(' && input[i] != ')' && input[i] != ':' && input[i] != '"' {
		i++
	}
	if i >= len(input) || input[i] != ':' {
		return false
	}
	_, ok := prefixKinds[strings.ToLower(input[pos:i])]
	return ok
}
