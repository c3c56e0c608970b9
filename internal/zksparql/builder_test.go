package zksparql

import (
	"testing"

	"github.com/aleksaelezovic/trigo/internal/sparql/parser"
)

func TestBuildExtendedFetchQuery_WrapsEachPatternInGraph(t *testing.T) {
	zq, err := ParseZkQuery(`SELECT ?name WHERE { ?s <http://xmlns.com/foaf/0.1/name> ?name }`)
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}

	query, err := BuildExtendedFetchQuery(zq)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if query.QueryType != parser.QueryTypeSelect {
		t.Fatalf("expected a SELECT query")
	}
	if !query.Select.Distinct {
		t.Fatalf("expected extended query to be DISTINCT")
	}

	// Expect ?name and the synthetic graph variable __vc0 to be projected.
	names := map[string]bool{}
	for _, v := range query.Select.Variables {
		names[v.Name] = true
	}
	if !names["name"] || !names["__vc0"] {
		t.Fatalf("expected projection to include ?name and ?__vc0, got %+v", query.Select.Variables)
	}

	where := query.Select.Where
	if where.Type != parser.GraphPatternTypeBasic {
		t.Fatalf("expected top-level pattern to be basic")
	}
	if len(where.Children) != 1 {
		t.Fatalf("expected 1 child graph clause, got %d", len(where.Children))
	}
	if where.Children[0].Type != parser.GraphPatternTypeGraph {
		t.Fatalf("expected child to be a GRAPH pattern")
	}
	if where.Children[0].Graph.Variable == nil || where.Children[0].Graph.Variable.Name != "__vc0" {
		t.Fatalf("expected graph variable __vc0, got %+v", where.Children[0].Graph)
	}
}

func TestBuildExtendedFetchQuery_IncludesValuesAsFirstChild(t *testing.T) {
	zq, err := ParseZkQuery(`SELECT ?name WHERE { VALUES ?s { <http://example.org/alice> } ?s <http://xmlns.com/foaf/0.1/name> ?name }`)
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}

	query, err := BuildExtendedFetchQuery(zq)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	where := query.Select.Where
	if len(where.Children) != 2 {
		t.Fatalf("expected VALUES plus 1 graph clause, got %d children", len(where.Children))
	}
	if where.Children[0].Type != parser.GraphPatternTypeValues {
		t.Fatalf("expected VALUES to be the first child")
	}
}

func TestBuildExtendedFetchQuery_PreservesLimitAndOffset(t *testing.T) {
	zq, err := ParseZkQuery(`SELECT ?name WHERE { ?s <http://xmlns.com/foaf/0.1/name> ?name } LIMIT 5 OFFSET 2`)
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}

	query, err := BuildExtendedFetchQuery(zq)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if query.Select.Limit == nil || *query.Select.Limit != 5 {
		t.Fatalf("expected extended query LIMIT 5, got %+v", query.Select.Limit)
	}
	if query.Select.Offset == nil || *query.Select.Offset != 2 {
		t.Fatalf("expected extended query OFFSET 2, got %+v", query.Select.Offset)
	}
}

func TestBuildExtendedProveQuery_LiftsBlankNodes(t *testing.T) {
	zq, err := ParseZkQuery(`SELECT ?name WHERE { _:cred <http://xmlns.com/foaf/0.1/name> ?name }`)
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}

	query, twgv, err := BuildExtendedProveQuery(zq)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(twgv) != 1 {
		t.Fatalf("expected 1 triple pattern with graph var, got %d", len(twgv))
	}

	names := map[string]bool{}
	for _, v := range query.Select.Variables {
		names[v.Name] = true
	}
	if !names["cred"] {
		t.Fatalf("expected the lifted blank node variable ?cred to be projected, got %+v", query.Select.Variables)
	}
}

func TestBuildSubjectGraphFilter_ConjoinsAllGraphVariables(t *testing.T) {
	expr := buildSubjectGraphFilter([]string{"__vc0", "__vc1"})

	bin, ok := expr.(*parser.BinaryExpression)
	if !ok {
		t.Fatalf("expected a conjunction for more than one graph variable, got %T", expr)
	}
	if bin.Operator != parser.OpAnd {
		t.Fatalf("expected AND operator")
	}
}

func TestFreshGraphVariables_AvoidsCollisions(t *testing.T) {
	inScope := map[string]bool{"__vc0": true}
	vars := freshGraphVariables(2, inScope)

	if vars[0] == "__vc0" {
		t.Fatalf("expected the first generated name to avoid the in-scope collision, got %q", vars[0])
	}
	if vars[0] == vars[1] {
		t.Fatalf("expected distinct graph variable names, got %q twice", vars[0])
	}
}
