package zksparql

import (
	"github.com/aleksaelezovic/trigo/internal/store"
	"github.com/aleksaelezovic/trigo/pkg/rdf"
	"github.com/multiformats/go-multibase"
)

// BuildMetadata pulls every quad (other than the proof value itself) out of
// each credential graph, tagged with rdf:type VerifiableCredential so the
// resulting statements are recognizable as credential metadata once
// pseudonymized.
func BuildMetadata(credGraphIDs map[string]bool, st *store.TripleStore, nymizer *Pseudonymizer) ([]*rdf.Quad, error) {
	typeIRI := rdf.NewNamedNode(RDFTypeIRI)
	vcTerm := rdf.Term(rdf.NewNamedNode(VerifiableCredentialIRI))
	return buildMetadataOrProofs(credGraphIDs, st, nymizer, typeIRI, &vcTerm)
}

// BuildProofs pulls every quad out of each credential's companion proof
// graph (named "<credential graph>.proof").
func BuildProofs(credGraphIDs map[string]bool, st *store.TripleStore, nymizer *Pseudonymizer) ([]*rdf.Quad, error) {
	proofGraphIDs, err := genProofGraphIDs(credGraphIDs)
	if err != nil {
		return nil, err
	}
	typeIRI := rdf.NewNamedNode(RDFTypeIRI)
	return buildMetadataOrProofs(proofGraphIDs, st, nymizer, typeIRI, nil)
}

func genProofGraphIDs(credGraphIDs map[string]bool) (map[string]bool, error) {
	proofGraphIDs := make(map[string]bool, len(credGraphIDs))
	for iri := range credGraphIDs {
		proofGraphIDs[iri+ProofGraphSuffix] = true
	}
	return proofGraphIDs, nil
}

// buildMetadataOrProofs pulls every quad from each of graphIDs, computing the
// pseudonymization targets from a narrower (predicate, object) pattern first
// so every subject identifying the same resource nymizes consistently, then
// pulling and pseudonymizing the full graph contents (dropping any
// sec:proofValue statement, which must never be disclosed directly).
func buildMetadataOrProofs(graphIDs map[string]bool, st *store.TripleStore, nymizer *Pseudonymizer, predicate *rdf.NamedNode, object *rdf.Term) ([]*rdf.Quad, error) {
	var result []*rdf.Quad

	for graphIRI := range graphIDs {
		graph := rdf.NewNamedNode(graphIRI)

		targets, err := collectAdditionalTargets(st, graph, predicate, object)
		if err != nil {
			return nil, err
		}

		quads, err := pullAndPseudonymizeGraph(st, graph, nymizer, targets)
		if err != nil {
			return nil, err
		}
		result = append(result, quads...)
	}

	return result, nil
}

func collectAdditionalTargets(st *store.TripleStore, graph *rdf.NamedNode, predicate *rdf.NamedNode, object *rdf.Term) (map[string]bool, error) {
	pattern := &store.Pattern{
		Subject: &store.Variable{Name: "s"},
		Graph:   graph,
	}
	if predicate != nil {
		pattern.Predicate = predicate
	} else {
		pattern.Predicate = &store.Variable{Name: "p"}
	}
	if object != nil {
		pattern.Object = *object
	} else {
		pattern.Object = &store.Variable{Name: "o"}
	}

	it, err := st.Query(pattern)
	if err != nil {
		return nil, wrapError(ErrStoreEvaluation, err, "failed to scan graph %s", graph.IRI)
	}
	defer it.Close()

	targets := map[string]bool{}
	for it.Next() {
		quad, err := it.Quad()
		if err != nil {
			return nil, wrapError(ErrStoreEvaluation, err, "failed to decode quad in graph %s", graph.IRI)
		}
		switch s := quad.Subject.(type) {
		case *rdf.NamedNode:
			targets[s.IRI] = true
		case *rdf.BlankNode:
			return nil, newError(ErrInvariantViolation, "blank node subject %s in graph %s must be skolemized", s.ID, graph.IRI)
		default:
			return nil, newError(ErrInvariantViolation, "unsupported subject kind %T in graph %s", quad.Subject, graph.IRI)
		}
	}
	return targets, nil
}

func pullAndPseudonymizeGraph(st *store.TripleStore, graph *rdf.NamedNode, nymizer *Pseudonymizer, targets map[string]bool) ([]*rdf.Quad, error) {
	pattern := &store.Pattern{
		Subject:   &store.Variable{Name: "s"},
		Predicate: &store.Variable{Name: "p"},
		Object:    &store.Variable{Name: "o"},
		Graph:     graph,
	}

	it, err := st.Query(pattern)
	if err != nil {
		return nil, wrapError(ErrStoreEvaluation, err, "failed to scan graph %s", graph.IRI)
	}
	defer it.Close()

	var out []*rdf.Quad
	for it.Next() {
		quad, err := it.Quad()
		if err != nil {
			return nil, wrapError(ErrStoreEvaluation, err, "failed to decode quad in graph %s", graph.IRI)
		}
		if p, ok := quad.Predicate.(*rdf.NamedNode); ok && p.IRI == ProofValueIRI {
			continue
		}
		out = append(out, nymizer.PseudonymizeQuad(quad, targets))
	}
	return out, nil
}

// GetProofValues reads the single sec:proofValue literal out of each
// credential's proof graph and validates its multibase encoding, returning
// a map keyed by the proof graph IRI.
func GetProofValues(credGraphIDs map[string]bool, st *store.TripleStore) (map[string]string, error) {
	proofValueIRI := rdf.NewNamedNode(ProofValueIRI)
	result := make(map[string]string, len(credGraphIDs))

	for credIRI := range credGraphIDs {
		proofGraph := rdf.NewNamedNode(credIRI + ProofGraphSuffix)

		pattern := &store.Pattern{
			Subject:   &store.Variable{Name: "s"},
			Predicate: proofValueIRI,
			Object:    &store.Variable{Name: "o"},
			Graph:     proofGraph,
		}

		it, err := st.Query(pattern)
		if err != nil {
			return nil, wrapError(ErrStoreEvaluation, err, "failed to scan proof graph %s", proofGraph.IRI)
		}

		var values []rdf.Term
		for it.Next() {
			quad, err := it.Quad()
			if err != nil {
				it.Close()
				return nil, wrapError(ErrStoreEvaluation, err, "failed to decode quad in proof graph %s", proofGraph.IRI)
			}
			values = append(values, quad.Object)
		}
		it.Close()

		if len(values) != 1 {
			return nil, newError(ErrInvariantViolation, "expected exactly one proof value in graph %s, found %d", proofGraph.IRI, len(values))
		}
		lit, ok := values[0].(*rdf.Literal)
		if !ok {
			return nil, newError(ErrInvariantViolation, "proof value in graph %s must be a literal", proofGraph.IRI)
		}
		if _, _, err := multibase.Decode(lit.Value); err != nil {
			return nil, wrapError(ErrInvariantViolation, err, "proof value in graph %s is not valid multibase", proofGraph.IRI)
		}

		result[proofGraph.IRI] = lit.Value
	}

	return result, nil
}
