package zksparql

import (
	"github.com/aleksaelezovic/trigo/pkg/rdf"
	"github.com/google/uuid"
)

// Pseudonymizer replaces every identifier in the "additional targets" set
// with a stable, freshly minted IRI, consistently within the lifetime of a
// single prove request. It must never be reused across requests: mappings
// are meaningless, and actively misleading, once the request they were
// built for has completed.
type Pseudonymizer struct {
	mapping map[string]*rdf.NamedNode
}

// NewPseudonymizer returns an empty pseudonymizer, scoped to one request.
func NewPseudonymizer() *Pseudonymizer {
	return &Pseudonymizer{mapping: make(map[string]*rdf.NamedNode)}
}

// PseudonymizeQuad rewrites every subject, predicate or object term of quad
// that is either a NamedNode whose IRI is a member of targets or a BlankNode
// (blank nodes are never disclosed as-is) with its pseudonym, leaving every
// other term untouched. The graph term is always passed through unchanged.
func (p *Pseudonymizer) PseudonymizeQuad(quad *rdf.Quad, targets map[string]bool) *rdf.Quad {
	return rdf.NewQuad(
		p.pseudonymizeTerm(quad.Subject, targets),
		p.pseudonymizeTerm(quad.Predicate, targets),
		p.pseudonymizeTerm(quad.Object, targets),
		quad.Graph,
	)
}

func (p *Pseudonymizer) pseudonymizeTerm(term rdf.Term, targets map[string]bool) rdf.Term {
	switch t := term.(type) {
	case *rdf.NamedNode:
		if !targets[t.IRI] {
			return term
		}
		return p.pseudonym(t.IRI)
	case *rdf.BlankNode:
		return p.pseudonym("_:" + t.ID)
	default:
		return term
	}
}

// pseudonym returns the pseudonym IRI for iri, minting and caching a new
// random one the first time iri is seen.
func (p *Pseudonymizer) pseudonym(iri string) *rdf.NamedNode {
	if existing, ok := p.mapping[iri]; ok {
		return existing
	}
	pseudonym := rdf.NewNamedNode(PseudonymBaseIRI + uuid.NewString())
	p.mapping[iri] = pseudonym
	return pseudonym
}
