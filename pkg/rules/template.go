package rules

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/yago-naga/yago3-sub001/pkg/fact"
)

var (
	ErrMalformedTemplate = errors.New("malformed fact template")
	ErrMalformedRule     = errors.New("malformed rule")
)

var (
	formatterPattern = regexp.MustCompile(`^@([a-zA-Z]+)\((.*?)\)$`)
	urlPattern       = regexp.MustCompile(`^https?://.+`)
)

// Bindings maps variables ("?x", "$x") and fact references ("#1") to values.
type Bindings map[string]string

// With returns a copy of b extended with key -> value.
func (b Bindings) With(key, value string) Bindings {
	out := make(Bindings, len(b)+1)
	for k, v := range b {
		out[k] = v
	}
	out[key] = value
	return out
}

// IsVariable reports whether a component is a variable.
func IsVariable(c string) bool {
	return strings.HasPrefix(c, "?") || strings.HasPrefix(c, "$")
}

// IsFactReference reports whether a component refers to another fact by position.
func IsFactReference(c string) bool {
	return strings.HasPrefix(c, "#")
}

// IsFormatter reports whether a component is a typed formatter such as @Date($x).
func IsFormatter(c string) bool {
	return strings.HasPrefix(c, "@")
}

// IsConstant reports whether a component needs no substitution.
func IsConstant(c string) bool {
	return !IsVariable(c) && !IsFactReference(c) && !IsFormatter(c)
}

// Reference returns the 1-based position named by a fact reference.
func Reference(c string) (int, bool) {
	if !IsFactReference(c) {
		return 0, false
	}
	n, err := strconv.Atoi(c[1:])
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// Template is a triple pattern whose components are constants, variables,
// fact references or formatters.
type Template struct {
	Subject  string
	Relation string
	Object   string
}

// NewTemplate creates a template from its three components.
func NewTemplate(subject, relation, object string) Template {
	return Template{Subject: subject, Relation: relation, Object: object}
}

func (t Template) components() [3]string {
	return [3]string{t.Subject, t.Relation, t.Object}
}

// Ground reports whether every component is a constant.
func (t Template) Ground() bool {
	return IsConstant(t.Subject) && IsConstant(t.Relation) && IsConstant(t.Object)
}

// Fact converts the template to a fact as is, placeholders included.
func (t Template) Fact() fact.Fact {
	return fact.New(t.Subject, t.Relation, t.Object)
}

// Variables returns the variables of the template in slot order, without repeats.
func (t Template) Variables() []string {
	var out []string
	for _, c := range t.components() {
		v := c
		if IsFormatter(c) {
			if m := formatterPattern.FindStringSubmatch(c); m != nil {
				v = strings.TrimSpace(m[2])
			}
		}
		if IsVariable(v) && !contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

// Match maps the variables of the template to the components of f.
// Constant slots must be equal, and a variable that occurs more than once must
// bind to the same value everywhere.
func (t Template) Match(f fact.Fact) (Bindings, bool) {
	b := make(Bindings, 3)
	values := [3]string{f.Subject, f.Relation, f.Object}
	for i, c := range t.components() {
		if IsVariable(c) {
			if prev, ok := b[c]; ok && prev != values[i] {
				return nil, false
			}
			b[c] = values[i]
			continue
		}
		if c != values[i] {
			return nil, false
		}
	}
	return b, true
}

// Instantiate substitutes the bound variables and fact references and applies
// formatters whose argument became known. Unbound components are kept.
func (t Template) Instantiate(b Bindings) Template {
	return Template{
		Subject:  substitute(t.Subject, b),
		Relation: substitute(t.Relation, b),
		Object:   substitute(t.Object, b),
	}
}

func substitute(c string, b Bindings) string {
	switch {
	case IsVariable(c), IsFactReference(c):
		if v, ok := b[c]; ok {
			return v
		}
		return c
	case IsFormatter(c):
		m := formatterPattern.FindStringSubmatch(c)
		if m == nil {
			return c
		}
		arg := strings.TrimSpace(m[2])
		if v, ok := b[arg]; ok {
			arg = v
		}
		if !IsConstant(arg) {
			return "@" + m[1] + "(" + arg + ")"
		}
		if out, ok := format(m[1], arg); ok {
			return out
		}
		return c
	default:
		return c
	}
}

// format applies a typed formatter to a constant argument.
func format(kind, thing string) (string, bool) {
	thing = strings.TrimSpace(fact.StripQuotes(thing))
	if thing == "" {
		return "", false
	}
	switch kind {
	case "Text", "String":
		return fact.ForString(thing), true
	case "Url":
		if !urlPattern.MatchString(thing) {
			return "", false
		}
		return fact.ForURI(thing), true
	case "Entity":
		return fact.ForEntity(strings.TrimSuffix(strings.TrimPrefix(thing, "<"), ">")), true
	case "Date":
		return fact.ForDate(thing)
	case "Number":
		return fact.ForNumber(thing)
	default:
		return "", false
	}
}

func (t Template) String() string {
	return t.Subject + " " + t.Relation + " " + t.Object
}

// ParseTemplates reads a list of the form "S P O; S P O; ...".
// A component in double quotes keeps its quotes, one in single quotes loses them.
// A fact reference in subject position must name a preceding template.
func ParseTemplates(src string) ([]Template, error) {
	list, err := parseList(src)
	if err != nil {
		return nil, err
	}
	for i, t := range list {
		if err := checkReference(t.Subject, i); err != nil {
			return nil, fmt.Errorf("%w: %s", err, t)
		}
	}
	return list, nil
}

func checkReference(c string, preceding int) error {
	if !IsFactReference(c) {
		return nil
	}
	n, ok := Reference(c)
	if !ok || n > preceding {
		return fmt.Errorf("%w: %s can only refer to a preceding template, 1-based", ErrMalformedTemplate, c)
	}
	return nil
}

func parseList(src string) ([]Template, error) {
	var list []Template
	for _, raw := range strings.Split(src, ";") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		t, err := parseOne(raw)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, nil
}

func parseOne(raw string) (Template, error) {
	s := raw + " "
	var parts [3]string
	pos := 0
	for n := 0; n < 3; n++ {
		for pos < len(s) && s[pos] == ' ' {
			pos++
		}
		if pos >= len(s) {
			return Template{}, fmt.Errorf("%w: template must have 3 components: %q", ErrMalformedTemplate, raw)
		}
		switch s[pos] {
		case '"':
			end := strings.IndexByte(s[pos+1:], '"')
			if end < 0 {
				return Template{}, fmt.Errorf("%w: closing quote is missing in %q", ErrMalformedTemplate, raw)
			}
			parts[n] = s[pos : pos+end+2]
			pos += end + 2
			if s[pos] != ' ' {
				return Template{}, fmt.Errorf("%w: unexpected %q after closing quote in %q", ErrMalformedTemplate, s[pos], raw)
			}
		case '\'':
			end := strings.IndexByte(s[pos+1:], '\'')
			if end < 0 {
				return Template{}, fmt.Errorf("%w: closing quote is missing in %q", ErrMalformedTemplate, raw)
			}
			parts[n] = s[pos+1 : pos+1+end]
			pos += end + 2
			if s[pos] != ' ' {
				return Template{}, fmt.Errorf("%w: unexpected %q after closing quote in %q", ErrMalformedTemplate, s[pos], raw)
			}
		default:
			end := strings.IndexByte(s[pos:], ' ')
			parts[n] = s[pos : pos+end]
			pos += end + 1
		}
	}
	if strings.TrimSpace(s[pos:]) != "" {
		return Template{}, fmt.Errorf("%w: too many components in %q", ErrMalformedTemplate, raw)
	}
	return NewTemplate(parts[0], parts[1], parts[2]), nil
}

// InstantiateAll instantiates a template list whose first template has the
// 1-based number first. A template referenced by a later "#n" receives its
// identifier first, so meta-facts can be attached to it. Templates that remain
// partly unbound are returned separately.
func InstantiateAll(list []Template, first int, b Bindings) (facts []fact.Fact, unbound []Template) {
	refs := make(map[int]bool)
	for _, t := range list {
		for _, c := range []string{t.Subject, t.Object} {
			if n, ok := Reference(c); ok {
				refs[n] = true
			}
		}
	}
	vars := make(Bindings, len(b)+len(refs))
	for k, v := range b {
		vars[k] = v
	}
	for i, t := range list {
		inst := t.Instantiate(vars)
		if !inst.Ground() {
			unbound = append(unbound, inst)
			continue
		}
		f := inst.Fact()
		if n := first + i; refs[n] {
			f = f.WithID()
			vars["#"+strconv.Itoa(n)] = f.ID
		}
		facts = append(facts, f)
	}
	return facts, unbound
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
