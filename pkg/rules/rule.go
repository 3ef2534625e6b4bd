package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yago-naga/yago3-sub001/pkg/fact"
)

// Rule derives head facts from a conjunction of body templates.
// Body atoms are resolved strictly left to right. Ref names the body atom
// that will be resolved next, so "#n" denotes the fact matched by atom n.
// Head templates are numbered after the body atoms.
type Rule struct {
	Body     []Template
	Head     []Template
	Ref      int
	Original *Rule
}

// NewRule parses a rule from body and head template lists.
func NewRule(body, head string) (*Rule, error) {
	b, err := ParseTemplates(body)
	if err != nil {
		return nil, fmt.Errorf("%w: body %q: %w", ErrMalformedRule, body, err)
	}
	h, err := parseList(head)
	if err != nil {
		return nil, fmt.Errorf("%w: head %q: %w", ErrMalformedRule, head, err)
	}
	return Compile(b, h)
}

// Compile validates parsed templates and builds a rule from them.
func Compile(body, head []Template) (*Rule, error) {
	if len(head) == 0 {
		return nil, fmt.Errorf("%w: empty head", ErrMalformedRule)
	}
	for i, t := range body {
		if strings.HasPrefix(t.Relation, "-") {
			return nil, fmt.Errorf("%w: negated atom %q, bodies must be positive", ErrMalformedRule, t)
		}
		for _, c := range t.components() {
			if n, ok := Reference(c); IsFactReference(c) && (!ok || n > i) {
				return nil, fmt.Errorf("%w: %s in body atom %d must name an earlier atom", ErrMalformedRule, c, i+1)
			}
		}
	}
	// Head templates continue the numbering of the body.
	for i, t := range head {
		for _, c := range t.components() {
			if n, ok := Reference(c); IsFactReference(c) && (!ok || n > len(body)+i) {
				return nil, fmt.Errorf("%w: %s in head template %d must name a body atom or an earlier head template", ErrMalformedRule, c, len(body)+i+1)
			}
		}
	}
	r := &Rule{Body: body, Head: head, Ref: 1}
	r.Original = r
	return r, nil
}

// FromImplies builds a rule from an implication fact whose subject is the body
// and whose object is the head, both as string literals.
func FromImplies(f fact.Fact) (*Rule, error) {
	if f.Relation != fact.Implies {
		return nil, fmt.Errorf("%w: %s is not an implication", ErrMalformedRule, f.Relation)
	}
	return NewRule(fact.StripQuotes(f.Subject), fact.StripQuotes(f.Object))
}

// MustRule is NewRule for statically known rules; it panics on error.
func MustRule(body, head string) *Rule {
	r, err := NewRule(body, head)
	if err != nil {
		panic(err)
	}
	return r
}

// Ready reports whether the body is exhausted and the head can be emitted.
func (r *Rule) Ready() bool {
	return len(r.Body) == 0
}

// First returns the first body atom. It must not be called on a ready rule.
func (r *Rule) First() Template {
	return r.Body[0]
}

// MapFirstTo matches the first body atom against f.
func (r *Rule) MapFirstTo(f fact.Fact) (Bindings, bool) {
	return r.Body[0].Match(f)
}

// Rest drops the first body atom, instantiates the remainder with b and binds
// the current reference to matchedID.
func (r *Rule) Rest(b Bindings, matchedID string) *Rule {
	if matchedID != "" {
		b = b.With("#"+strconv.Itoa(r.Ref), matchedID)
	}
	body := make([]Template, 0, len(r.Body)-1)
	for _, t := range r.Body[1:] {
		body = append(body, t.Instantiate(b))
	}
	head := make([]Template, 0, len(r.Head))
	for _, t := range r.Head {
		head = append(head, t.Instantiate(b))
	}
	return &Rule{Body: body, Head: head, Ref: r.Ref + 1, Original: r.Original}
}

// HeadFacts instantiates the head of a ready rule. Head template k is fact
// number len(body)+k, and a later head template referring to it gets its
// identifier. Templates that still hold a variable, an unresolved reference or
// a failed formatter are returned separately instead of being turned into facts.
func (r *Rule) HeadFacts() (facts []fact.Fact, unbound []Template) {
	return InstantiateAll(r.Head, r.Ref, nil)
}

// UnboundHeadVariables lists head variables that no body atom binds.
func (r *Rule) UnboundHeadVariables() []string {
	bound := make(map[string]bool)
	for _, t := range r.Body {
		for _, v := range t.Variables() {
			bound[v] = true
		}
	}
	var out []string
	for _, t := range r.Head {
		for _, v := range t.Variables() {
			if !bound[v] && !contains(out, v) {
				out = append(out, v)
			}
		}
	}
	return out
}

// HasReferences reports whether any template uses a "#n" fact reference.
func (r *Rule) HasReferences() bool {
	for _, list := range [][]Template{r.Body, r.Head} {
		for _, t := range list {
			for _, c := range t.components() {
				if IsFactReference(c) {
					return true
				}
			}
		}
	}
	return false
}

func (r *Rule) String() string {
	return joinTemplates(r.Body) + " => " + joinTemplates(r.Head)
}

func joinTemplates(list []Template) string {
	parts := make([]string, len(list))
	for i, t := range list {
		parts[i] = t.String()
	}
	return strings.Join(parts, "; ")
}
