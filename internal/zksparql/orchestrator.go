package zksparql

import (
	"github.com/aleksaelezovic/trigo/internal/sparql/executor"
	"github.com/aleksaelezovic/trigo/internal/sparql/optimizer"
	"github.com/aleksaelezovic/trigo/internal/sparql/parser"
	"github.com/aleksaelezovic/trigo/internal/store"
	"github.com/aleksaelezovic/trigo/pkg/rdf"
)

// Orchestrator runs the full zk-SPARQL pipeline: parse, rewrite, evaluate,
// and (for prove) disclose and pseudonymize.
type Orchestrator struct {
	store     *store.TripleStore
	optimizer *optimizer.Optimizer
	executor  *executor.Executor
}

// NewOrchestrator wires a zk-SPARQL orchestrator against a running store.
func NewOrchestrator(st *store.TripleStore) *Orchestrator {
	return &Orchestrator{
		store:     st,
		optimizer: optimizer.NewOptimizer(&optimizer.Statistics{}),
		executor:  executor.NewExecutor(st),
	}
}

// FetchResult is the outcome of evaluating a query's extended form without
// disclosing or pseudonymizing anything, useful for inspecting which
// credential graphs a query would touch.
type FetchResult struct {
	IsAsk     bool
	AskResult bool
	Variables []*parser.Variable
	Bindings  []*store.Binding
}

// Fetch parses and rewrites queryText, evaluates its extended form, and
// returns the raw solutions: no disclosed quads or metadata are produced.
func (o *Orchestrator) Fetch(queryText string) (*FetchResult, error) {
	zq, err := ParseZkQuery(queryText)
	if err != nil {
		return nil, err
	}

	extended, err := BuildExtendedFetchQuery(zq)
	if err != nil {
		return nil, err
	}

	bindings, variables, err := o.evaluateSelect(extended)
	if err != nil {
		return nil, err
	}

	if zq.IsAsk {
		return &FetchResult{IsAsk: true, AskResult: len(bindings) > 0}, nil
	}
	return &FetchResult{Variables: variables, Bindings: bindings}, nil
}

// ProveResult is the outcome of a prove request: the disclosed subject
// quads, pseudonymized metadata and proof quads, and each disclosed
// credential's proof value.
type ProveResult struct {
	IsAsk       bool
	AskResult   bool
	Quads       []*rdf.Quad
	ProofValues map[string]string
}

// Prove parses and rewrites queryText, evaluates its extended form, and
// builds the full disclosed dataset: the matched subject quads plus each
// touched credential's pseudonymized metadata and proof graph, plus each
// credential's raw proof value.
func (o *Orchestrator) Prove(queryText string) (*ProveResult, error) {
	zq, err := ParseZkQuery(queryText)
	if err != nil {
		return nil, err
	}

	extended, twgv, err := BuildExtendedProveQuery(zq)
	if err != nil {
		return nil, err
	}

	bindings, _, err := o.evaluateSelect(extended)
	if err != nil {
		return nil, err
	}

	if zq.IsAsk {
		return &ProveResult{IsAsk: true, AskResult: len(bindings) > 0}, nil
	}

	disclosedQuads, credGraphIDs, err := BuildDisclosedSubjects(bindings, twgv)
	if err != nil {
		return nil, err
	}

	nymizer := NewPseudonymizer()

	metadataQuads, err := BuildMetadata(credGraphIDs, o.store, nymizer)
	if err != nil {
		return nil, err
	}

	proofQuads, err := BuildProofs(credGraphIDs, o.store, nymizer)
	if err != nil {
		return nil, err
	}

	proofValues, err := GetProofValues(credGraphIDs, o.store)
	if err != nil {
		return nil, err
	}

	allQuads := make([]*rdf.Quad, 0, len(disclosedQuads)+len(metadataQuads)+len(proofQuads))
	allQuads = append(allQuads, disclosedQuads...)
	allQuads = append(allQuads, metadataQuads...)
	allQuads = append(allQuads, proofQuads...)

	return &ProveResult{Quads: allQuads, ProofValues: proofValues}, nil
}

// evaluateSelect optimizes and executes a SELECT query built by this
// package, returning its bindings and projected variable list.
func (o *Orchestrator) evaluateSelect(query *parser.Query) ([]*store.Binding, []*parser.Variable, error) {
	optimized, err := o.optimizer.Optimize(query)
	if err != nil {
		return nil, nil, wrapError(ErrStoreEvaluation, err, "failed to optimize extended query")
	}

	result, err := o.executor.Execute(optimized)
	if err != nil {
		return nil, nil, wrapError(ErrStoreEvaluation, err, "failed to execute extended query")
	}

	selectResult, ok := result.(*executor.SelectResult)
	if !ok {
		return nil, nil, newError(ErrStoreEvaluation, "extended query did not produce a SELECT result")
	}

	return selectResult.Bindings, selectResult.Variables, nil
}
