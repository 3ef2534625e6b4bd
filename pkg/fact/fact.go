package fact

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// idNamespace seeds the deterministic reification identifiers.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("http://yago-knowledge.org/resource/"))

// Fact represents a single subject-relation-object triple.
// Two facts are the same fact when their triples are equal; ID is only carried
// so that the fact can be referenced as the subject of a meta-fact.
type Fact struct {
	ID       string `json:"id,omitempty"` // Reification identifier, optional
	Subject  string `json:"subject"`
	Relation string `json:"relation"`
	Object   string `json:"object"`
}

// New creates a fact without an identifier.
func New(subject, relation, object string) Fact {
	return Fact{Subject: subject, Relation: relation, Object: object}
}

// Meta creates a meta-fact about the fact with the given identifier.
func Meta(id, relation, object string) Fact {
	return Fact{Subject: id, Relation: relation, Object: object}
}

// MakeID returns the deterministic identifier of a triple.
func MakeID(subject, relation, object string) string {
	var b strings.Builder
	b.Grow(len(subject) + len(relation) + len(object) + 2)
	b.WriteString(subject)
	b.WriteByte('\t')
	b.WriteString(relation)
	b.WriteByte('\t')
	b.WriteString(object)
	u := uuid.NewSHA1(idNamespace, []byte(b.String()))
	return IDPrefix + hex.EncodeToString(u[:]) + ">"
}

// Reified returns the carried identifier, or the deterministic one if none is set.
func (f Fact) Reified() string {
	if f.ID != "" {
		return f.ID
	}
	return MakeID(f.Subject, f.Relation, f.Object)
}

// WithID returns a copy of the fact carrying its identifier.
func (f Fact) WithID() Fact {
	f.ID = f.Reified()
	return f
}

// Triple returns the fact without its identifier.
func (f Fact) Triple() Fact {
	f.ID = ""
	return f
}

// Equal compares the triples of two facts, ignoring identifiers.
func (f Fact) Equal(o Fact) bool {
	return f.Subject == o.Subject && f.Relation == o.Relation && f.Object == o.Object
}

// IsValid checks that all three components are present.
func (f Fact) IsValid() bool {
	return f.Subject != "" && f.Relation != "" && f.Object != ""
}

// String returns the TSV rendering of the fact.
func (f Fact) String() string {
	if f.ID != "" {
		return fmt.Sprintf("%s %s %s %s", f.ID, f.Subject, f.Relation, f.Object)
	}
	return fmt.Sprintf("%s %s %s", f.Subject, f.Relation, f.Object)
}

// Less orders facts by subject, relation, object.
func Less(a, b Fact) bool {
	if a.Subject != b.Subject {
		return a.Subject < b.Subject
	}
	if a.Relation != b.Relation {
		return a.Relation < b.Relation
	}
	return a.Object < b.Object
}

// Compare is the three-way form of Less, for slices.SortFunc.
func Compare(a, b Fact) int {
	if c := strings.Compare(a.Subject, b.Subject); c != 0 {
		return c
	}
	if c := strings.Compare(a.Relation, b.Relation); c != 0 {
		return c
	}
	return strings.Compare(a.Object, b.Object)
}
