package zksparql

import (
	"fmt"

	"github.com/aleksaelezovic/trigo/internal/sparql/parser"
	"github.com/aleksaelezovic/trigo/pkg/rdf"
)

// BuildExtendedFetchQuery rewrites a ZkQuery into the fetch-variant
// extended query: it projects only the disclosed variables plus the
// synthetic graph variables, for inspection/debugging.
func BuildExtendedFetchQuery(zq *ZkQuery) (*parser.Query, error) {
	graphVars := freshGraphVariables(len(zq.Patterns), zq.InScopeVariables)
	twgv := buildExtendedTriplePatterns(zq.Patterns, graphVars)

	projected := append([]*parser.Variable{}, zq.DisclosedVariables...)
	for _, gv := range graphVars {
		projected = append(projected, &parser.Variable{Name: gv})
	}

	where, err := buildExtendedWhere(zq, graphVars, twgv)
	if err != nil {
		return nil, err
	}

	sq := &parser.SelectQuery{
		Variables: projected,
		Distinct:  true,
		Where:     where,
	}
	applyLimit(sq, zq.Limit)

	return &parser.Query{
		QueryType: parser.QueryTypeSelect,
		Select:    sq,
	}, nil
}

// BuildExtendedProveQuery rewrites a ZkQuery into the prove-variant
// extended query: every in-scope variable (including blank nodes lifted
// to variables) plus the synthetic graph variables are projected, so the
// disclosed-subject builder can reconstruct the original triple patterns
// from each solution row.
func BuildExtendedProveQuery(zq *ZkQuery) (*parser.Query, []TriplePatternWithGraphVar, error) {
	lifted := replaceBlankNodesWithVariables(zq)

	graphVars := freshGraphVariables(len(lifted.Patterns), lifted.InScopeVariables)
	twgv := buildExtendedTriplePatterns(lifted.Patterns, graphVars)

	projected := make([]*parser.Variable, 0, len(lifted.InScopeVariables)+len(graphVars))
	for name := range lifted.InScopeVariables {
		projected = append(projected, &parser.Variable{Name: name})
	}
	for _, gv := range graphVars {
		projected = append(projected, &parser.Variable{Name: gv})
	}

	where, err := buildExtendedWhere(lifted, graphVars, twgv)
	if err != nil {
		return nil, nil, err
	}

	sq := &parser.SelectQuery{
		Variables: projected,
		Distinct:  true,
		Where:     where,
	}
	applyLimit(sq, lifted.Limit)

	query := &parser.Query{
		QueryType: parser.QueryTypeSelect,
		Select:    sq,
	}
	return query, twgv, nil
}

// applyLimit sets Limit/Offset on sq from limit, per the Slice(inner,
// start, length?) wrapping the user's LIMIT/OFFSET requires.
func applyLimit(sq *parser.SelectQuery, limit *Limit) {
	if limit == nil {
		return
	}
	if limit.Length != nil {
		length := *limit.Length
		sq.Limit = &length
	}
	if limit.Start != 0 {
		start := limit.Start
		sq.Offset = &start
	}
}

// buildExtendedWhere assembles Join(Values?, Graph(G0,P0) Join Graph(G1,P1) ...)
// under Filter(userFilter AND subjectFilter).
func buildExtendedWhere(zq *ZkQuery, graphVars []string, twgv []TriplePatternWithGraphVar) (*parser.GraphPattern, error) {
	children := make([]*parser.GraphPattern, 0, len(twgv)+1)

	if zq.Values != nil {
		children = append(children, &parser.GraphPattern{
			Type:   parser.GraphPatternTypeValues,
			Values: zq.Values,
		})
	}

	for _, pwg := range twgv {
		children = append(children, &parser.GraphPattern{
			Type:     parser.GraphPatternTypeGraph,
			Graph:    &parser.GraphTerm{Variable: &parser.Variable{Name: pwg.GraphVar}},
			Patterns: []*parser.TriplePattern{pwg.Pattern},
		})
	}

	subjectFilter := buildSubjectGraphFilter(graphVars)
	finalFilter := subjectFilter
	if zq.Filter != nil && subjectFilter != nil {
		finalFilter = &parser.BinaryExpression{Left: zq.Filter, Operator: parser.OpAnd, Right: subjectFilter}
	} else if zq.Filter != nil {
		finalFilter = zq.Filter
	}

	pattern := &parser.GraphPattern{
		Type:     parser.GraphPatternTypeBasic,
		Children: children,
	}
	if finalFilter != nil {
		pattern.Filters = []*parser.Filter{{Expression: finalFilter}}
	}

	return pattern, nil
}

// buildSubjectGraphFilter builds STRENDS(STR(?G0),".subject") && STRENDS(STR(?G1),".subject") && ...
func buildSubjectGraphFilter(graphVars []string) parser.Expression {
	var result parser.Expression
	for _, gv := range graphVars {
		cond := &parser.FunctionCallExpression{
			Function: "STRENDS",
			Arguments: []parser.Expression{
				&parser.FunctionCallExpression{
					Function:  "STR",
					Arguments: []parser.Expression{&parser.VariableExpression{Variable: &parser.Variable{Name: gv}}},
				},
				&parser.LiteralExpression{Literal: rdf.NewLiteral(SubjectGraphSuffix)},
			},
		}
		if result == nil {
			result = cond
		} else {
			result = &parser.BinaryExpression{Left: result, Operator: parser.OpAnd, Right: cond}
		}
	}
	return result
}

// freshGraphVariables synthesizes n graph variable names with the reserved
// VCVariablePrefix, skipping any name already used by the query.
func freshGraphVariables(n int, inScope map[string]bool) []string {
	vars := make([]string, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("%s%d", VCVariablePrefix, i)
		for inScope[name] {
			name += "_"
		}
		vars[i] = name
	}
	return vars
}

func buildExtendedTriplePatterns(patterns []*parser.TriplePattern, graphVars []string) []TriplePatternWithGraphVar {
	out := make([]TriplePatternWithGraphVar, len(patterns))
	for i, p := range patterns {
		out[i] = TriplePatternWithGraphVar{Pattern: p, GraphVar: graphVars[i]}
	}
	return out
}

// replaceBlankNodesWithVariables lifts every blank node in the user's
// triple patterns to a fresh projectable variable, per the prove variant.
// SPARQL blank nodes in a BGP behave existentially; the store can only
// report the named node it matched if that position is exposed as a
// variable.
func replaceBlankNodesWithVariables(zq *ZkQuery) *ZkQuery {
	inScope := make(map[string]bool, len(zq.InScopeVariables))
	for k, v := range zq.InScopeVariables {
		inScope[k] = v
	}

	patterns := make([]*parser.TriplePattern, len(zq.Patterns))
	for i, p := range zq.Patterns {
		patterns[i] = &parser.TriplePattern{
			Subject:   liftBlankNode(p.Subject, inScope),
			Predicate: p.Predicate,
			Object:    liftBlankNode(p.Object, inScope),
		}
	}

	return &ZkQuery{
		IsAsk:              zq.IsAsk,
		DisclosedVariables: zq.DisclosedVariables,
		InScopeVariables:   inScope,
		Patterns:           patterns,
		Filter:             zq.Filter,
		Values:             zq.Values,
		Limit:              zq.Limit,
	}
}

func liftBlankNode(tov parser.TermOrVariable, inScope map[string]bool) parser.TermOrVariable {
	if tov.IsVariable() {
		return tov
	}
	bn, ok := tov.Term.(*rdf.BlankNode)
	if !ok {
		return tov
	}
	inScope[bn.ID] = true
	return parser.TermOrVariable{Variable: &parser.Variable{Name: bn.ID}}
}
