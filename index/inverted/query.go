package inverted

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrInvalidQuery is returned for query strings that cannot be parsed.
var ErrInvalidQuery = errors.New("invalid query")

type occur uint8

const (
	occurShould occur = iota
	occurMust
	occurMustNot
)

// clause is one parsed query term.
//
//	+title:"stinky cheese"  -> must, field title, phrase
//	-draft                  -> must not, all tokenized fields
//	title:Tes*              -> should, prefix "Tes"
type clause struct {
	occur  occur
	field  string // empty means every tokenized field
	text   string
	phrase bool
	prefix bool
}

// parseQuery splits a query string into clauses.
//
// Supported syntax: whitespace separated terms, + and - prefixes, field:
// scoping, double-quoted phrases, a trailing * for prefix matching and the
// AND, OR and NOT keywords.
func parseQuery(q string) ([]clause, error) {
	tokens, err := lexQuery(q)
	if err != nil {
		return nil, err
	}

	var (
		clauses []clause
		negNext bool
		andNext bool
	)
	for _, tok := range tokens {
		switch tok {
		case "AND":
			if len(clauses) > 0 && clauses[len(clauses)-1].occur == occurShould {
				clauses[len(clauses)-1].occur = occurMust
			}
			andNext = true
			continue
		case "OR":
			andNext = false
			continue
		case "NOT":
			negNext = true
			continue
		}

		c, ok := parseClause(tok)
		if !ok {
			continue
		}
		switch {
		case negNext:
			c.occur = occurMustNot
		case andNext && c.occur == occurShould:
			c.occur = occurMust
		}
		negNext, andNext = false, false
		clauses = append(clauses, c)
	}
	return clauses, nil
}

// lexQuery splits on whitespace outside of double quotes.
func lexQuery(q string) ([]string, error) {
	var (
		tokens  []string
		cur     strings.Builder
		inQuote bool
	)
	for _, r := range q {
		switch {
		case r == '"':
			inQuote = !inQuote
			cur.WriteRune(r)
		case unicode.IsSpace(r) && !inQuote:
			if cur.Len() > 0 {
				tokens = append(tokens, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if inQuote {
		return nil, fmt.Errorf("%w: unterminated phrase in %q", ErrInvalidQuery, q)
	}
	if cur.Len() > 0 {
		tokens = append(tokens, cur.String())
	}
	return tokens, nil
}

func parseClause(tok string) (clause, bool) {
	var c clause
	switch tok[0] {
	case '+':
		c.occur = occurMust
		tok = tok[1:]
	case '-':
		c.occur = occurMustNot
		tok = tok[1:]
	}

	quote := strings.IndexByte(tok, '"')
	if colon := strings.IndexByte(tok, ':'); colon > 0 && (quote < 0 || colon < quote) {
		c.field = tok[:colon]
		tok = tok[colon+1:]
	}

	switch {
	case len(tok) >= 2 && tok[0] == '"' && tok[len(tok)-1] == '"':
		c.text = tok[1 : len(tok)-1]
		c.phrase = true
	case strings.HasSuffix(tok, "*"):
		c.text = strings.TrimSuffix(tok, "*")
		c.prefix = true
	default:
		c.text = strings.Trim(tok, `"`)
	}

	if c.text == "" && !c.prefix {
		return clause{}, false
	}
	return c, true
}
