package zksparql

import (
	"strings"
	"testing"

	"github.com/aleksaelezovic/trigo/pkg/rdf"
)

func TestPseudonymizer_IsDeterministicWithinOneRequest(t *testing.T) {
	nymizer := NewPseudonymizer()
	targets := map[string]bool{"http://example.org/alice": true}

	quad := rdf.NewQuad(
		rdf.NewNamedNode("http://example.org/alice"),
		rdf.NewNamedNode("http://xmlns.com/foaf/0.1/knows"),
		rdf.NewNamedNode("http://example.org/alice"),
		rdf.NewNamedNode("http://example.org/g1"),
	)

	out := nymizer.PseudonymizeQuad(quad, targets)

	subj, ok := out.Subject.(*rdf.NamedNode)
	if !ok {
		t.Fatalf("expected subject to remain a named node, got %T", out.Subject)
	}
	obj, ok := out.Object.(*rdf.NamedNode)
	if !ok {
		t.Fatalf("expected object to remain a named node, got %T", out.Object)
	}
	if subj.IRI != obj.IRI {
		t.Fatalf("expected the same source IRI to map to the same pseudonym within a request, got %q and %q", subj.IRI, obj.IRI)
	}
	if !strings.HasPrefix(subj.IRI, PseudonymBaseIRI) {
		t.Fatalf("expected pseudonym to carry the %s prefix, got %q", PseudonymBaseIRI, subj.IRI)
	}
	if subj.IRI == "http://example.org/alice" {
		t.Fatalf("expected the target IRI to be replaced")
	}
}

func TestPseudonymizer_LeavesNonTargetsUntouched(t *testing.T) {
	nymizer := NewPseudonymizer()
	targets := map[string]bool{"http://example.org/alice": true}

	quad := rdf.NewQuad(
		rdf.NewNamedNode("http://example.org/bob"),
		rdf.NewNamedNode("http://xmlns.com/foaf/0.1/knows"),
		rdf.NewNamedNode("http://example.org/alice"),
		rdf.NewNamedNode("http://example.org/g1"),
	)

	out := nymizer.PseudonymizeQuad(quad, targets)

	subj := out.Subject.(*rdf.NamedNode)
	if subj.IRI != "http://example.org/bob" {
		t.Fatalf("expected non-target subject to be left alone, got %q", subj.IRI)
	}
	pred := out.Predicate.(*rdf.NamedNode)
	if pred.IRI != "http://xmlns.com/foaf/0.1/knows" {
		t.Fatalf("expected non-target predicate to be left alone, got %q", pred.IRI)
	}
	if out.Graph.(*rdf.NamedNode).IRI != "http://example.org/g1" {
		t.Fatalf("expected graph term to be left untouched")
	}
}

func TestPseudonymizer_DistinctIRIsGetDistinctPseudonyms(t *testing.T) {
	nymizer := NewPseudonymizer()
	targets := map[string]bool{
		"http://example.org/alice": true,
		"http://example.org/bob":   true,
	}

	quad := rdf.NewQuad(
		rdf.NewNamedNode("http://example.org/alice"),
		rdf.NewNamedNode("http://xmlns.com/foaf/0.1/knows"),
		rdf.NewNamedNode("http://example.org/bob"),
		rdf.NewNamedNode("http://example.org/g1"),
	)

	out := nymizer.PseudonymizeQuad(quad, targets)

	subj := out.Subject.(*rdf.NamedNode)
	obj := out.Object.(*rdf.NamedNode)
	if subj.IRI == obj.IRI {
		t.Fatalf("expected distinct source IRIs to receive distinct pseudonyms")
	}
}

func TestPseudonymizer_IgnoresLiteralTerms(t *testing.T) {
	nymizer := NewPseudonymizer()
	targets := map[string]bool{"http://example.org/alice": true}

	quad := rdf.NewQuad(
		rdf.NewNamedNode("http://example.org/alice"),
		rdf.NewNamedNode("http://xmlns.com/foaf/0.1/name"),
		rdf.NewLiteral("Alice"),
		rdf.NewNamedNode("http://example.org/g1"),
	)

	out := nymizer.PseudonymizeQuad(quad, targets)

	lit, ok := out.Object.(*rdf.Literal)
	if !ok {
		t.Fatalf("expected literal object to remain a literal, got %T", out.Object)
	}
	if lit.Value != "Alice" {
		t.Fatalf("expected literal value to be untouched, got %q", lit.Value)
	}
}

func TestPseudonymizer_RewritesBlankNodes(t *testing.T) {
	nymizer := NewPseudonymizer()

	quad := rdf.NewQuad(
		rdf.NewNamedNode("http://example.org/alice"),
		rdf.NewNamedNode("http://xmlns.com/foaf/0.1/knows"),
		rdf.NewBlankNode("b0"),
		rdf.NewNamedNode("http://example.org/g1"),
	)

	out := nymizer.PseudonymizeQuad(quad, map[string]bool{})

	obj, ok := out.Object.(*rdf.NamedNode)
	if !ok {
		t.Fatalf("expected blank-node object to be replaced by a named pseudonym, got %T", out.Object)
	}
	if !strings.HasPrefix(obj.IRI, PseudonymBaseIRI) {
		t.Fatalf("expected pseudonym to carry the %s prefix, got %q", PseudonymBaseIRI, obj.IRI)
	}
}

func TestPseudonymizer_BlankNodePseudonymIsStableWithinOneRequest(t *testing.T) {
	nymizer := NewPseudonymizer()

	first := nymizer.PseudonymizeQuad(rdf.NewQuad(
		rdf.NewBlankNode("b0"),
		rdf.NewNamedNode("http://xmlns.com/foaf/0.1/knows"),
		rdf.NewNamedNode("http://example.org/bob"),
		rdf.NewNamedNode("http://example.org/g1"),
	), map[string]bool{})

	second := nymizer.PseudonymizeQuad(rdf.NewQuad(
		rdf.NewBlankNode("b0"),
		rdf.NewNamedNode("http://xmlns.com/foaf/0.1/worksWith"),
		rdf.NewNamedNode("http://example.org/carol"),
		rdf.NewNamedNode("http://example.org/g2"),
	), map[string]bool{})

	firstSubj := first.Subject.(*rdf.NamedNode)
	secondSubj := second.Subject.(*rdf.NamedNode)
	if firstSubj.IRI != secondSubj.IRI {
		t.Fatalf("expected the same blank node id to receive the same pseudonym across quads, got %q and %q", firstSubj.IRI, secondSubj.IRI)
	}
}
