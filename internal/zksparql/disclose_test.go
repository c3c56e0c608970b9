package zksparql

import (
	"testing"

	"github.com/aleksaelezovic/trigo/internal/sparql/parser"
	"github.com/aleksaelezovic/trigo/internal/store"
	"github.com/aleksaelezovic/trigo/pkg/rdf"
)

func varTOV(name string) parser.TermOrVariable {
	return parser.TermOrVariable{Variable: &parser.Variable{Name: name}}
}

func termTOV(term rdf.Term) parser.TermOrVariable {
	return parser.TermOrVariable{Term: term}
}

func TestBuildDisclosedSubjects_ResolvesBoundAndVariablePositions(t *testing.T) {
	nameIRI := rdf.NewNamedNode("http://xmlns.com/foaf/0.1/name")
	credGraph := rdf.NewNamedNode("http://example.org/cred1")

	pattern := &parser.TriplePattern{
		Subject:   varTOV("s"),
		Predicate: termTOV(nameIRI),
		Object:    varTOV("name"),
	}
	twgv := []TriplePatternWithGraphVar{{Pattern: pattern, GraphVar: "__vc0"}}

	binding := store.NewBinding()
	binding.Vars["s"] = rdf.NewNamedNode("http://example.org/alice")
	binding.Vars["name"] = rdf.NewLiteral("Alice")
	binding.Vars["__vc0"] = credGraph

	quads, graphs, err := BuildDisclosedSubjects([]*store.Binding{binding}, twgv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(quads) != 1 {
		t.Fatalf("expected 1 disclosed quad, got %d", len(quads))
	}

	q := quads[0]
	if q.Subject.(*rdf.NamedNode).IRI != "http://example.org/alice" {
		t.Errorf("unexpected subject: %v", q.Subject)
	}
	if q.Predicate.(*rdf.NamedNode).IRI != nameIRI.IRI {
		t.Errorf("unexpected predicate: %v", q.Predicate)
	}
	if q.Object.(*rdf.Literal).Value != "Alice" {
		t.Errorf("unexpected object: %v", q.Object)
	}
	if q.Graph.(*rdf.NamedNode).IRI != credGraph.IRI {
		t.Errorf("unexpected graph: %v", q.Graph)
	}
	if !graphs[credGraph.IRI] {
		t.Errorf("expected credential graph %s to be tracked", credGraph.IRI)
	}
}

func TestBuildDisclosedSubjects_RejectsLiteralSubject(t *testing.T) {
	pattern := &parser.TriplePattern{
		Subject:   varTOV("s"),
		Predicate: termTOV(rdf.NewNamedNode("http://example.org/p")),
		Object:    varTOV("o"),
	}
	twgv := []TriplePatternWithGraphVar{{Pattern: pattern, GraphVar: "__vc0"}}

	binding := store.NewBinding()
	binding.Vars["s"] = rdf.NewLiteral("not a valid subject")
	binding.Vars["o"] = rdf.NewLiteral("value")
	binding.Vars["__vc0"] = rdf.NewNamedNode("http://example.org/cred1")

	_, _, err := BuildDisclosedSubjects([]*store.Binding{binding}, twgv)
	if err == nil {
		t.Fatalf("expected a literal-typed subject binding to be rejected")
	}
}

func TestBuildDisclosedSubjects_RejectsMissingGraphBinding(t *testing.T) {
	pattern := &parser.TriplePattern{
		Subject:   varTOV("s"),
		Predicate: termTOV(rdf.NewNamedNode("http://example.org/p")),
		Object:    varTOV("o"),
	}
	twgv := []TriplePatternWithGraphVar{{Pattern: pattern, GraphVar: "__vc0"}}

	binding := store.NewBinding()
	binding.Vars["s"] = rdf.NewNamedNode("http://example.org/alice")
	binding.Vars["o"] = rdf.NewLiteral("value")

	_, _, err := BuildDisclosedSubjects([]*store.Binding{binding}, twgv)
	if err == nil {
		t.Fatalf("expected a missing graph variable binding to be rejected")
	}
}

func TestBuildDisclosedSubjects_RejectsBlankNodeBoundToVariableSubject(t *testing.T) {
	pattern := &parser.TriplePattern{
		Subject:   varTOV("s"),
		Predicate: termTOV(rdf.NewNamedNode("http://example.org/p")),
		Object:    varTOV("o"),
	}
	twgv := []TriplePatternWithGraphVar{{Pattern: pattern, GraphVar: "__vc0"}}

	binding := store.NewBinding()
	binding.Vars["s"] = rdf.NewBlankNode("b0")
	binding.Vars["o"] = rdf.NewLiteral("value")
	binding.Vars["__vc0"] = rdf.NewNamedNode("http://example.org/cred1")

	_, _, err := BuildDisclosedSubjects([]*store.Binding{binding}, twgv)
	if err == nil {
		t.Fatalf("expected a variable-resolved blank-node subject to be rejected")
	}
}
