// Package zksparql implements selective-disclosure SPARQL queries over
// verifiable-credential graphs: a user query is rewritten into an extended
// query that locates the credential graphs involved, the matching quads are
// pulled back out of the store, and every identifier not explicitly
// disclosed is replaced by a stable pseudonym before the result is returned.
package zksparql

import "github.com/aleksaelezovic/trigo/internal/sparql/parser"

// Reserved identifiers. SubjectGraphSuffix marks a credential's payload
// graph; ProofGraphSuffix marks its companion proof graph. The graph
// variable prefix must never collide with a variable name a user query
// could legally bind.
const (
	SubjectGraphSuffix = ".subject"
	ProofGraphSuffix   = ".proof"
	VCVariablePrefix   = "__vc"
)

// Vocabulary IRIs referenced by the metadata/proof puller.
const (
	RDFTypeIRI              = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"
	VerifiableCredentialIRI = "https://www.w3.org/2018/credentials#VerifiableCredential"
	ProofValueIRI           = "https://w3id.org/security#proofValue"
)

// PseudonymBaseIRI prefixes every pseudonym this package mints.
const PseudonymBaseIRI = "urn:zksparql:pseudonym:"

// Limit carries a SPARQL LIMIT/OFFSET pair. Length is nil when no LIMIT
// was given (OFFSET alone is still representable).
type Limit struct {
	Start  int
	Length *int
}

// ZkQuery is the normalized form a zk-SPARQL request is parsed into.
type ZkQuery struct {
	IsAsk              bool
	DisclosedVariables []*parser.Variable
	InScopeVariables   map[string]bool
	Patterns           []*parser.TriplePattern
	Filter             parser.Expression
	Values             *parser.ValuesClause
	Limit              *Limit
}

// TriplePatternWithGraphVar pairs an original triple pattern with the
// synthetic graph variable the extended-query builder assigned to it.
type TriplePatternWithGraphVar struct {
	Pattern  *parser.TriplePattern
	GraphVar string
}
