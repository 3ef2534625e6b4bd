package fact

import (
	"regexp"
	"strings"
)

// Well-known relations and classes.
const (
	Type             = "rdf:type"
	SubClassOf       = "rdfs:subClassOf"
	SubPropertyOf    = "rdfs:subPropertyOf"
	Domain           = "rdfs:domain"
	Range            = "rdfs:range"
	Label            = "rdfs:label"
	PrefLabel        = "skos:prefLabel"
	Implies          = "<_implies>"
	ExtractionSrc    = "<extractionSource>"
	ExtractionTech   = "<extractionTechnique>"
	Function         = "yago:function"
	FunctionInTime   = "<functionInTime>"
	PreferredMeaning = "<isPreferredMeaningOf>"
	GivenName        = "<hasGivenName>"
	FamilyName       = "<hasFamilyName>"
	Gloss            = "<hasGloss>"
	RedirectedFrom   = "<redirectedFrom>"
)

// Datatypes used by the literal helpers.
const (
	XSDString  = "xsd:string"
	XSDDate    = "xsd:date"
	XSDDecimal = "xsd:decimal"
	XSDAnyURI  = "xsd:anyURI"
)

// IDPrefix starts every reification identifier.
const IDPrefix = "<id_"

var (
	numberPattern = regexp.MustCompile(`^[+-]?[0-9]+(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)
	datePattern   = regexp.MustCompile(`^(-?[0-9#]{1,4})(?:-([0-9#]{2}))?(?:-([0-9#]{2}))?$`)
)

// IsLiteral reports whether a component is a quoted literal.
func IsLiteral(s string) bool {
	return strings.HasPrefix(s, `"`)
}

// IsFactID reports whether a component is a reification identifier.
func IsFactID(s string) bool {
	return strings.HasPrefix(s, IDPrefix) && strings.HasSuffix(s, ">")
}

// IsEntity reports whether a component is an angle-bracketed resource.
func IsEntity(s string) bool {
	return strings.HasPrefix(s, "<") && strings.HasSuffix(s, ">") && !IsFactID(s)
}

// Literal builds a literal with an optional datatype or language tag.
// The datatype wins if both are given.
func Literal(value, datatype, lang string) string {
	q := quote(value)
	switch {
	case datatype != "":
		return q + "^^" + datatype
	case lang != "":
		return q + "@" + lang
	default:
		return q
	}
}

// ForString builds a plain string literal.
func ForString(s string) string {
	return quote(s)
}

// ForStringWithLanguage builds a language-tagged literal; "eng" and "" give an untagged one.
func ForStringWithLanguage(s, lang string) string {
	if lang == "" || lang == "eng" {
		return quote(s)
	}
	return Literal(s, "", lang)
}

// ForURI builds a typed URI literal.
func ForURI(s string) string {
	return Literal(s, XSDAnyURI, "")
}

// ForEntity builds an entity from a title, replacing spaces with underscores.
func ForEntity(title string) string {
	title = strings.TrimSpace(title)
	if IsEntity(title) {
		return title
	}
	return "<" + strings.ReplaceAll(title, " ", "_") + ">"
}

// ForTheme builds the entity naming a theme, used as an extraction source.
func ForTheme(name string) string {
	return "<theme_" + name + ">"
}

// ForNumber builds a decimal literal. The boolean is false if s is not a number.
func ForNumber(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if !numberPattern.MatchString(s) {
		return "", false
	}
	return Literal(s, XSDDecimal, ""), true
}

// ForDate builds a date literal from "YYYY", "YYYY-MM" or "YYYY-MM-DD".
// Missing month and day are filled with "##".
func ForDate(s string) (string, bool) {
	m := datePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", false
	}
	month, day := m[2], m[3]
	if month == "" {
		month = "##"
	}
	if day == "" {
		day = "##"
	}
	return Literal(m[1]+"-"+month+"-"+day, XSDDate, ""), true
}

// StripQuotes returns the value of a literal, or the component unchanged.
func StripQuotes(s string) string {
	v, _, _ := SplitLiteral(s)
	return v
}

// SplitLiteral splits a literal into value, datatype and language.
// Non-literals are returned as the value.
func SplitLiteral(s string) (value, datatype, lang string) {
	if !IsLiteral(s) {
		return s, "", ""
	}
	end := strings.LastIndex(s, `"`)
	if end <= 0 {
		return s, "", ""
	}
	value = unquote(s[1:end])
	rest := s[end+1:]
	switch {
	case strings.HasPrefix(rest, "^^"):
		datatype = rest[2:]
	case strings.HasPrefix(rest, "@"):
		lang = rest[1:]
	}
	return value, datatype, lang
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\t", `\t`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return `"` + s + `"`
}

func unquote(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 't':
			b.WriteByte('\t')
		case 'n':
			b.WriteByte('\n')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
