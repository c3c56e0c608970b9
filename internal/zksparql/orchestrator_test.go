package zksparql

import (
	"testing"

	"github.com/aleksaelezovic/trigo/pkg/rdf"
)

func TestOrchestrator_FetchReturnsBindingsWithoutDisclosing(t *testing.T) {
	st := newTestStore(t)
	subjectGraph := "http://example.org/cred1" + SubjectGraphSuffix

	if err := st.InsertQuadsBatch([]*rdf.Quad{
		rdf.NewQuad(
			rdf.NewNamedNode("http://example.org/alice"),
			rdf.NewNamedNode("http://xmlns.com/foaf/0.1/name"),
			rdf.NewLiteral("Alice"),
			rdf.NewNamedNode(subjectGraph),
		),
	}); err != nil {
		t.Fatalf("failed to seed store: %v", err)
	}

	orch := NewOrchestrator(st)
	result, err := orch.Fetch(`SELECT ?name WHERE { ?s <http://xmlns.com/foaf/0.1/name> ?name }`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsAsk {
		t.Fatalf("expected a SELECT result")
	}
	if len(result.Bindings) != 1 {
		t.Fatalf("expected 1 binding, got %d", len(result.Bindings))
	}
	if result.Bindings[0].Vars["name"].(*rdf.Literal).Value != "Alice" {
		t.Fatalf("unexpected binding: %+v", result.Bindings[0].Vars)
	}
}

func TestOrchestrator_FetchFindsNothingOutsideSubjectGraphs(t *testing.T) {
	st := newTestStore(t)

	// A quad in a graph that does not carry the subject-graph suffix must
	// never surface through the extended query's STRENDS filter.
	if err := st.InsertQuadsBatch([]*rdf.Quad{
		rdf.NewQuad(
			rdf.NewNamedNode("http://example.org/alice"),
			rdf.NewNamedNode("http://xmlns.com/foaf/0.1/name"),
			rdf.NewLiteral("Alice"),
			rdf.NewNamedNode("http://example.org/cred1"),
		),
	}); err != nil {
		t.Fatalf("failed to seed store: %v", err)
	}

	orch := NewOrchestrator(st)
	result, err := orch.Fetch(`SELECT ?name WHERE { ?s <http://xmlns.com/foaf/0.1/name> ?name }`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Bindings) != 0 {
		t.Fatalf("expected 0 bindings outside a subject graph, got %d", len(result.Bindings))
	}
}

func TestOrchestrator_ProveDisclosesSubjectsAndMetadataAndProof(t *testing.T) {
	st := newTestStore(t)
	subjectGraph := "http://example.org/cred1" + SubjectGraphSuffix
	proofGraph := subjectGraph + ProofGraphSuffix

	if err := st.InsertQuadsBatch([]*rdf.Quad{
		rdf.NewQuad(
			rdf.NewNamedNode("http://example.org/alice"),
			rdf.NewNamedNode("http://xmlns.com/foaf/0.1/name"),
			rdf.NewLiteral("Alice"),
			rdf.NewNamedNode(subjectGraph),
		),
		rdf.NewQuad(
			rdf.NewNamedNode("http://example.org/alice"),
			rdf.NewNamedNode(RDFTypeIRI),
			rdf.NewNamedNode(VerifiableCredentialIRI),
			rdf.NewNamedNode(subjectGraph),
		),
		rdf.NewQuad(
			rdf.NewNamedNode(subjectGraph),
			rdf.NewNamedNode(ProofValueIRI),
			rdf.NewLiteral("zPretendMultibaseValue"),
			rdf.NewNamedNode(proofGraph),
		),
		rdf.NewQuad(
			rdf.NewNamedNode(subjectGraph),
			rdf.NewNamedNode(RDFTypeIRI),
			rdf.NewNamedNode("https://w3id.org/security#DataIntegrityProof"),
			rdf.NewNamedNode(proofGraph),
		),
	}); err != nil {
		t.Fatalf("failed to seed store: %v", err)
	}

	orch := NewOrchestrator(st)
	result, err := orch.Prove(`SELECT ?name WHERE { ?s <http://xmlns.com/foaf/0.1/name> ?name }`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsAsk {
		t.Fatalf("expected a SELECT result")
	}

	var foundSubject, foundProofValue bool
	for _, q := range result.Quads {
		if p, ok := q.Predicate.(*rdf.NamedNode); ok {
			if p.IRI == "http://xmlns.com/foaf/0.1/name" {
				foundSubject = true
			}
			if p.IRI == ProofValueIRI {
				foundProofValue = true
			}
		}
	}
	if !foundSubject {
		t.Fatalf("expected the disclosed subject triple to appear in the output, got %+v", result.Quads)
	}
	if foundProofValue {
		t.Fatalf("proof value must never be disclosed as a plain quad")
	}
	if len(result.ProofValues) != 1 {
		t.Fatalf("expected exactly 1 proof value, got %d", len(result.ProofValues))
	}
	if result.ProofValues[proofGraph] != "zPretendMultibaseValue" {
		t.Fatalf("unexpected proof values: %+v", result.ProofValues)
	}
}

func TestOrchestrator_AskReturnsBooleanWithoutDisclosure(t *testing.T) {
	st := newTestStore(t)
	subjectGraph := "http://example.org/cred1" + SubjectGraphSuffix

	if err := st.InsertQuadsBatch([]*rdf.Quad{
		rdf.NewQuad(
			rdf.NewNamedNode("http://example.org/alice"),
			rdf.NewNamedNode("http://xmlns.com/foaf/0.1/name"),
			rdf.NewLiteral("Alice"),
			rdf.NewNamedNode(subjectGraph),
		),
	}); err != nil {
		t.Fatalf("failed to seed store: %v", err)
	}

	orch := NewOrchestrator(st)
	result, err := orch.Prove(`ASK { ?s <http://xmlns.com/foaf/0.1/name> "Alice" }`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsAsk || !result.AskResult {
		t.Fatalf("expected ASK to report true, got %+v", result)
	}
	if result.Quads != nil {
		t.Fatalf("expected no disclosed quads for an ASK prove result")
	}
}
