package zksparql

import (
	"testing"

	"github.com/aleksaelezovic/trigo/internal/storage"
	"github.com/aleksaelezovic/trigo/internal/store"
	"github.com/aleksaelezovic/trigo/pkg/rdf"
)

func newTestStore(t *testing.T) *store.TripleStore {
	t.Helper()
	backing, err := storage.NewBadgerStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}
	t.Cleanup(func() { backing.Close() })
	return store.NewTripleStore(backing)
}

func seedCredential(t *testing.T, st *store.TripleStore, credGraph, proofGraph string) {
	t.Helper()
	quads := []*rdf.Quad{
		rdf.NewQuad(
			rdf.NewNamedNode("http://example.org/alice"),
			rdf.NewNamedNode(RDFTypeIRI),
			rdf.NewNamedNode(VerifiableCredentialIRI),
			rdf.NewNamedNode(credGraph),
		),
		rdf.NewQuad(
			rdf.NewNamedNode("http://example.org/alice"),
			rdf.NewNamedNode("http://xmlns.com/foaf/0.1/name"),
			rdf.NewLiteral("Alice"),
			rdf.NewNamedNode(credGraph),
		),
		rdf.NewQuad(
			rdf.NewNamedNode(credGraph),
			rdf.NewNamedNode(ProofValueIRI),
			rdf.NewLiteral("zPretendMultibaseValue"),
			rdf.NewNamedNode(proofGraph),
		),
		rdf.NewQuad(
			rdf.NewNamedNode(credGraph),
			rdf.NewNamedNode(RDFTypeIRI),
			rdf.NewNamedNode("https://w3id.org/security#DataIntegrityProof"),
			rdf.NewNamedNode(proofGraph),
		),
	}
	if err := st.InsertQuadsBatch(quads); err != nil {
		t.Fatalf("failed to seed store: %v", err)
	}
}

func TestBuildMetadata_PseudonymizesSubjectAndDropsProofValue(t *testing.T) {
	st := newTestStore(t)
	credGraph := "http://example.org/cred1"
	seedCredential(t, st, credGraph, credGraph+ProofGraphSuffix)

	nymizer := NewPseudonymizer()
	quads, err := BuildMetadata(map[string]bool{credGraph: true}, st, nymizer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(quads) != 2 {
		t.Fatalf("expected 2 metadata quads (type + name), got %d", len(quads))
	}

	for _, q := range quads {
		if p, ok := q.Predicate.(*rdf.NamedNode); ok && p.IRI == ProofValueIRI {
			t.Fatalf("proof value predicate must never appear in metadata output")
		}
		subj, ok := q.Subject.(*rdf.NamedNode)
		if !ok {
			t.Fatalf("expected subject to be a named node, got %T", q.Subject)
		}
		if subj.IRI == "http://example.org/alice" {
			t.Fatalf("expected the credential subject to be pseudonymized")
		}
	}
}

func TestBuildProofs_PullsFromCompanionProofGraph(t *testing.T) {
	st := newTestStore(t)
	credGraph := "http://example.org/cred1"
	proofGraph := credGraph + ProofGraphSuffix
	seedCredential(t, st, credGraph, proofGraph)

	nymizer := NewPseudonymizer()
	quads, err := BuildProofs(map[string]bool{credGraph: true}, st, nymizer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, q := range quads {
		if p, ok := q.Predicate.(*rdf.NamedNode); ok && p.IRI == ProofValueIRI {
			t.Fatalf("proof value predicate must never appear in disclosed proof quads")
		}
	}
	if len(quads) != 1 {
		t.Fatalf("expected 1 proof quad (the type statement), got %d", len(quads))
	}
}

func TestGetProofValues_ValidatesMultibaseAndReturnsOneValuePerCredential(t *testing.T) {
	st := newTestStore(t)
	credGraph := "http://example.org/cred1"
	seedCredential(t, st, credGraph, credGraph+ProofGraphSuffix)

	values, err := GetProofValues(map[string]bool{credGraph: true}, st)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if values[credGraph+ProofGraphSuffix] != "zPretendMultibaseValue" {
		t.Fatalf("unexpected proof value: %q", values[credGraph+ProofGraphSuffix])
	}
}

func TestGetProofValues_RejectsMissingProofValue(t *testing.T) {
	st := newTestStore(t)
	credGraph := "http://example.org/cred2"

	if err := st.InsertQuad(rdf.NewQuad(
		rdf.NewNamedNode("http://example.org/bob"),
		rdf.NewNamedNode("http://xmlns.com/foaf/0.1/name"),
		rdf.NewLiteral("Bob"),
		rdf.NewNamedNode(credGraph),
	)); err != nil {
		t.Fatalf("failed to seed store: %v", err)
	}

	_, err := GetProofValues(map[string]bool{credGraph: true}, st)
	if err == nil {
		t.Fatalf("expected an error when no proof value is present")
	}
}
