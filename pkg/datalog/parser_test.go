package datalog

import (
	"reflect"
	"testing"
)

func v(name string) Term { return Term{Value: name, Var: true} }
func c(value string) Term { return Term{Value: value} }

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    []Atom
		wantErr bool
	}{
		{
			name:  "Simple Triple",
			query: `triple(X, "<livesIn>", Y)`,
			want: []Atom{
				{Predicate: "triple", Args: []Term{v("X"), c("<livesIn>"), v("Y")}},
			},
		},
		{
			name:  "Unquoted Constants",
			query: `triple(X, rdf:type, <city>)`,
			want: []Atom{
				{Predicate: "triple", Args: []Term{v("X"), c("rdf:type"), c("<city>")}},
			},
		},
		{
			name:  "Multiple Triples",
			query: `triple(A, "<hasChild>", B), triple(B, "<hasChild>", C)`,
			want: []Atom{
				{Predicate: "triple", Args: []Term{v("A"), c("<hasChild>"), v("B")}},
				{Predicate: "triple", Args: []Term{v("B"), c("<hasChild>"), v("C")}},
			},
		},
		{
			name:  "Inequality Sugar",
			query: `triple(A, "<knows>", B), A != B`,
			want: []Atom{
				{Predicate: "triple", Args: []Term{v("A"), c("<knows>"), v("B")}},
				{Predicate: "neq", Args: []Term{v("A"), v("B")}},
			},
		},
		{
			name:  "Regex Constraint",
			query: `triple(A, rdfs:label, B), regex(B, ".*Paris.*")`,
			want: []Atom{
				{Predicate: "triple", Args: []Term{v("A"), c("rdfs:label"), v("B")}},
				{Predicate: "regex", Args: []Term{v("B"), c(".*Paris.*")}},
			},
		},
		{
			name:  "Literal Constant",
			query: `triple(A, rdfs:label, '"Paris"@fra')`,
			want: []Atom{
				{Predicate: "triple", Args: []Term{v("A"), c("rdfs:label"), c(`"Paris"@fra`)}},
			},
		},
		{
			name:  "Rule Body And Question Mark Variables",
			query: `ans(X) :- triple(?x, "<p>", X).`,
			want: []Atom{
				{Predicate: "triple", Args: []Term{v("x"), c("<p>"), v("X")}},
			},
		},
		{
			name:    "Invalid Syntax",
			query:   `triple(A, B`,
			wantErr: true,
		},
		{
			name:    "Empty Query",
			query:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.query)
			if (err != nil) != tt.wantErr {
				t.Errorf("Parse() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSmartSplit(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{`a, "b,c", d`, []string{"a", "\"b,c\"", "d"}},
		{`fn(a,b), c`, []string{"fn(a,b)", "c"}},
		{`triple(A, "<p>", B), A != B`, []string{`triple(A, "<p>", B)`, `A != B`}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := SmartSplit(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SmartSplit(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
