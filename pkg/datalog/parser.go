// Package datalog parses conjunctive triple queries and evaluates positive
// rule sets with the Mangle engine.
package datalog

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var ErrSyntax = errors.New("datalog syntax error")

// Term is an argument of an atom: a variable or a constant.
type Term struct {
	Value string
	Var   bool
}

func (t Term) String() string {
	if t.Var {
		return t.Value
	}
	return fmt.Sprintf("%q", t.Value)
}

// Atom is one conjunct of a query, e.g. triple(S, R, O) or neq(A, B).
type Atom struct {
	Predicate string
	Args      []Term
}

func (a Atom) String() string {
	args := make([]string, len(a.Args))
	for i, t := range a.Args {
		args[i] = t.String()
	}
	return a.Predicate + "(" + strings.Join(args, ", ") + ")"
}

// Parse parses a query made of comma separated atoms. "Head :- Body" keeps
// the body, a trailing dot and a leading "?" are ignored, and "A != B" is
// sugar for neq(A, B).
func Parse(query string) ([]Atom, error) {
	query = strings.TrimSpace(query)
	if idx := strings.Index(query, ":-"); idx != -1 {
		query = query[idx+2:]
	}
	query = strings.TrimSpace(query)
	query = strings.TrimSuffix(query, ".")
	query = strings.TrimPrefix(query, "?")

	rawAtoms := SmartSplit(query)
	if len(rawAtoms) == 0 {
		return nil, fmt.Errorf("%w: empty query", ErrSyntax)
	}

	var atoms []Atom
	for _, raw := range rawAtoms {
		if raw == "" {
			continue
		}
		if lhs, rhs, ok := strings.Cut(raw, "!="); ok && !quoted(lhs) {
			atoms = append(atoms, Atom{
				Predicate: "neq",
				Args:      []Term{parseTerm(lhs), parseTerm(rhs)},
			})
			continue
		}
		a, err := parseAtom(raw)
		if err != nil {
			return nil, err
		}
		atoms = append(atoms, a)
	}
	if len(atoms) == 0 {
		return nil, fmt.Errorf("%w: empty query", ErrSyntax)
	}
	return atoms, nil
}

// quoted reports whether s ends inside an open quote.
func quoted(s string) bool {
	open := rune(0)
	for _, r := range s {
		switch {
		case open == 0 && (r == '"' || r == '\''):
			open = r
		case r == open:
			open = 0
		}
	}
	return open != 0
}

// parseAtom parses "predicate(arg1, arg2, ...)".
func parseAtom(s string) (Atom, error) {
	start := strings.Index(s, "(")
	end := strings.LastIndex(s, ")")
	if start <= 0 || end == -1 || start >= end || strings.TrimSpace(s[end+1:]) != "" {
		return Atom{}, fmt.Errorf("%w: expected predicate(args...) but got %q", ErrSyntax, s)
	}
	a := Atom{Predicate: strings.TrimSpace(s[:start])}
	for _, arg := range SmartSplit(s[start+1 : end]) {
		if arg == "" {
			return Atom{}, fmt.Errorf("%w: empty argument in %q", ErrSyntax, s)
		}
		a.Args = append(a.Args, parseTerm(arg))
	}
	return a, nil
}

// parseTerm reads a variable (leading upper case letter, "_" or "?") or a
// constant. One layer of surrounding quotes is removed from constants, so
// '"Paris"@fra' denotes the literal "Paris"@fra.
func parseTerm(s string) Term {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return Term{Value: s[1 : len(s)-1]}
	}
	if s == "" {
		return Term{}
	}
	r := []rune(s)[0]
	if unicode.IsUpper(r) || r == '_' || r == '?' {
		return Term{Value: strings.TrimPrefix(s, "?"), Var: true}
	}
	return Term{Value: s}
}

// SmartSplit splits a string by comma, correctly handling quotes and parentheses.
// e.g. "a, b, 'c,d'" -> ["a", "b", "'c,d'"]
func SmartSplit(s string) []string {
	var results []string
	var current strings.Builder
	depth := 0
	inQuote := false
	var quoteChar rune

	for _, r := range s {
		switch r {
		case '"', '\'':
			if inQuote {
				if r == quoteChar {
					inQuote = false
				}
			} else {
				inQuote = true
				quoteChar = r
			}
			current.WriteRune(r)
		case '(':
			if !inQuote {
				depth++
			}
			current.WriteRune(r)
		case ')':
			if !inQuote {
				depth--
			}
			current.WriteRune(r)
		case ',':
			if !inQuote && depth == 0 {
				results = append(results, strings.TrimSpace(current.String()))
				current.Reset()
				continue
			}
			current.WriteRune(r)
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		results = append(results, strings.TrimSpace(current.String()))
	}
	return results
}
