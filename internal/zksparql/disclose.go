package zksparql

import (
	"github.com/aleksaelezovic/trigo/internal/sparql/parser"
	"github.com/aleksaelezovic/trigo/internal/store"
	"github.com/aleksaelezovic/trigo/pkg/rdf"
)

// BuildDisclosedSubjects walks every solution row of an extended prove
// query and reconstructs the original (pre-rewrite) triple for each
// pattern, resolved against its matched credential graph. It also returns
// the set of credential graph IRIs the solution touched, which the
// metadata/proof puller uses to locate companion graphs.
func BuildDisclosedSubjects(bindings []*store.Binding, twgv []TriplePatternWithGraphVar) ([]*rdf.Quad, map[string]bool, error) {
	quads := make([]*rdf.Quad, 0, len(bindings)*len(twgv))
	graphs := make(map[string]bool)

	for _, binding := range bindings {
		for _, pwg := range twgv {
			quad, graphIRI, err := buildDisclosedSubject(binding, pwg)
			if err != nil {
				return nil, nil, err
			}
			quads = append(quads, quad)
			graphs[graphIRI] = true
		}
	}

	return quads, graphs, nil
}

func buildDisclosedSubject(binding *store.Binding, pwg TriplePatternWithGraphVar) (*rdf.Quad, string, error) {
	graphTerm, ok := binding.Vars[pwg.GraphVar]
	if !ok {
		return nil, "", newError(ErrInvariantViolation, "solution row is missing graph variable ?%s", pwg.GraphVar)
	}
	graph, ok := graphTerm.(*rdf.NamedNode)
	if !ok {
		return nil, "", newError(ErrInvariantViolation, "credential graph ?%s must be a named node, got %T", pwg.GraphVar, graphTerm)
	}

	subject, err := resolveDisclosedTerm(pwg.Pattern.Subject, binding)
	if err != nil {
		return nil, "", err
	}
	if err := requireSubjectKind(subject, pwg.Pattern.Subject.IsVariable()); err != nil {
		return nil, "", err
	}

	predicateTerm, err := resolveDisclosedTerm(pwg.Pattern.Predicate, binding)
	if err != nil {
		return nil, "", err
	}
	predicate, ok := predicateTerm.(*rdf.NamedNode)
	if !ok {
		return nil, "", newError(ErrInvariantViolation, "predicate position must be a named node, got %T", predicateTerm)
	}

	object, err := resolveDisclosedTerm(pwg.Pattern.Object, binding)
	if err != nil {
		return nil, "", err
	}
	if _, isQuoted := object.(*rdf.QuotedTriple); isQuoted {
		return nil, "", newError(ErrInvariantViolation, "quoted triples are not supported as disclosed objects")
	}

	return rdf.NewQuad(subject, predicate, object, graph), graph.IRI, nil
}

// resolveDisclosedTerm resolves a triple pattern position against a
// solution row: a bound term is returned as-is, a variable position is
// looked up in the binding.
func resolveDisclosedTerm(tov parser.TermOrVariable, binding *store.Binding) (rdf.Term, error) {
	if !tov.IsVariable() {
		return tov.Term, nil
	}
	term, ok := binding.Vars[tov.Variable.Name]
	if !ok {
		return nil, newError(ErrInvariantViolation, "solution row is missing variable ?%s", tov.Variable.Name)
	}
	return term, nil
}

// requireSubjectKind validates the resolved subject term. A variable
// position must resolve to a named node: a blank node binding there is a
// store-internal identifier that was never meant to be disclosed. Only a
// ground blank-node pattern term is taken literally.
func requireSubjectKind(term rdf.Term, wasVariable bool) error {
	switch term.(type) {
	case *rdf.NamedNode:
		return nil
	case *rdf.BlankNode:
		if wasVariable {
			return newError(ErrInvariantViolation, "subject variable must resolve to a named node, got a blank node")
		}
		return nil
	default:
		return newError(ErrInvariantViolation, "subject position must be a named node or blank node, got %T", term)
	}
}
