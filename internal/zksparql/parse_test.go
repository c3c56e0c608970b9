package zksparql

import "testing"

func TestParseZkQuery_SimpleSelect(t *testing.T) {
	query := `SELECT ?name WHERE { ?s <http://xmlns.com/foaf/0.1/name> ?name }`

	zq, err := ParseZkQuery(query)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(zq.DisclosedVariables) != 1 || zq.DisclosedVariables[0].Name != "name" {
		t.Fatalf("unexpected disclosed variables: %+v", zq.DisclosedVariables)
	}
	if !zq.InScopeVariables["s"] || !zq.InScopeVariables["name"] {
		t.Fatalf("expected ?s and ?name in scope, got %+v", zq.InScopeVariables)
	}
	if len(zq.Patterns) != 1 {
		t.Fatalf("expected 1 pattern, got %d", len(zq.Patterns))
	}
}

func TestParseZkQuery_Ask(t *testing.T) {
	query := `ASK { ?s <http://xmlns.com/foaf/0.1/name> "Alice" }`

	zq, err := ParseZkQuery(query)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !zq.IsAsk {
		t.Fatalf("expected IsAsk to be true")
	}
}

func TestParseZkQuery_RejectsSelectStar(t *testing.T) {
	query := `SELECT * WHERE { ?s ?p ?o }`

	_, err := ParseZkQuery(query)
	if err == nil {
		t.Fatalf("expected SELECT * to be rejected")
	}
}

func TestParseZkQuery_RejectsConstruct(t *testing.T) {
	query := `CONSTRUCT { ?s ?p ?o } WHERE { ?s ?p ?o }`

	_, err := ParseZkQuery(query)
	if err == nil {
		t.Fatalf("expected CONSTRUCT to be rejected")
	}
}

func TestParseZkQuery_RejectsUndisclosedDisclosedVariable(t *testing.T) {
	query := `SELECT ?missing WHERE { ?s ?p ?o }`

	_, err := ParseZkQuery(query)
	if err == nil {
		t.Fatalf("expected a disclosed variable absent from the pattern to be rejected")
	}
}

func TestParseZkQuery_WithLimitAndOffset(t *testing.T) {
	query := `SELECT ?name WHERE { ?s <http://xmlns.com/foaf/0.1/name> ?name } LIMIT 10 OFFSET 5`

	zq, err := ParseZkQuery(query)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if zq.Limit == nil {
		t.Fatalf("expected a limit to be parsed")
	}
	if zq.Limit.Start != 5 {
		t.Errorf("expected offset 5, got %d", zq.Limit.Start)
	}
	if zq.Limit.Length == nil || *zq.Limit.Length != 10 {
		t.Errorf("expected limit 10, got %+v", zq.Limit.Length)
	}
}

func TestParseZkQuery_RejectsUnion(t *testing.T) {
	query := `SELECT ?s WHERE { { ?s ?p ?o } UNION { ?s ?p2 ?o2 } }`

	_, err := ParseZkQuery(query)
	if err == nil {
		t.Fatalf("expected UNION to be rejected")
	}
}
