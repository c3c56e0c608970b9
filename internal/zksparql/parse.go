package zksparql

import (
	"github.com/aleksaelezovic/trigo/internal/sparql/parser"
)

// ParseZkQuery parses SPARQL text and validates it matches the accepted
// zk-SPARQL shape, returning the normalized ZkQuery.
func ParseZkQuery(queryText string) (*ZkQuery, error) {
	p := parser.NewParser(queryText)
	query, err := p.Parse()
	if err != nil {
		return nil, wrapError(ErrMalformedQuery, err, "failed to parse query")
	}

	switch query.QueryType {
	case parser.QueryTypeConstruct:
		return nil, newError(ErrUnsupportedForm, "CONSTRUCT is not supported in zk-SPARQL")
	case parser.QueryTypeDescribe:
		return nil, newError(ErrUnsupportedForm, "DESCRIBE is not supported in zk-SPARQL")
	case parser.QueryTypeSelect:
		return parseZkSelect(query.Select)
	case parser.QueryTypeAsk:
		return parseZkAsk(query.Ask)
	default:
		return nil, newError(ErrUnsupportedForm, "unrecognized query type")
	}
}

func parseZkSelect(sq *parser.SelectQuery) (*ZkQuery, error) {
	if sq.Variables == nil {
		return nil, newError(ErrUnsupportedForm, "SELECT * is not supported in zk-SPARQL; disclosed variables must be listed explicitly")
	}
	if sq.Distinct || sq.Reduced {
		return nil, newError(ErrUnsupportedForm, "DISTINCT/REDUCED are not part of the accepted zk-SPARQL query shape")
	}
	if len(sq.GroupBy) > 0 || len(sq.Having) > 0 {
		return nil, newError(ErrUnsupportedForm, "GROUP BY/HAVING are not part of the accepted zk-SPARQL query shape")
	}
	if len(sq.OrderBy) > 0 {
		return nil, newError(ErrUnsupportedForm, "ORDER BY is not part of the accepted zk-SPARQL query shape")
	}

	zq, err := parseZkCommon(sq.Where, false)
	if err != nil {
		return nil, err
	}
	zq.DisclosedVariables = sq.Variables

	for _, v := range zq.DisclosedVariables {
		if !zq.InScopeVariables[v.Name] {
			return nil, newError(ErrUnsupportedForm, "disclosed variable ?%s does not appear in the query pattern", v.Name)
		}
	}

	if sq.Limit != nil || sq.Offset != nil {
		limit := &Limit{}
		if sq.Offset != nil {
			limit.Start = *sq.Offset
		}
		if sq.Limit != nil {
			l := *sq.Limit
			limit.Length = &l
		}
		zq.Limit = limit
	}

	return zq, nil
}

func parseZkAsk(aq *parser.AskQuery) (*ZkQuery, error) {
	zq, err := parseZkCommon(aq.Where, true)
	if err != nil {
		return nil, err
	}
	zq.IsAsk = true
	return zq, nil
}

// parseZkCommon validates that a WHERE clause matches the accepted Core
// grammar (Bgp | Join(Values,Bgp) | Filter(E, ...)) and extracts its parts.
func parseZkCommon(where *parser.GraphPattern, isAsk bool) (*ZkQuery, error) {
	if where.Type != parser.GraphPatternTypeBasic {
		return nil, newError(ErrUnsupportedForm, "top-level WHERE clause must be a basic graph pattern")
	}
	if len(where.Binds) > 0 {
		return nil, newError(ErrUnsupportedForm, "BIND is not part of the accepted zk-SPARQL query shape")
	}
	if len(where.Filters) > 1 {
		return nil, newError(ErrUnsupportedForm, "at most one FILTER is accepted in zk-SPARQL")
	}

	var values *parser.ValuesClause
	for _, child := range where.Children {
		if child.Type != parser.GraphPatternTypeValues {
			return nil, newError(ErrUnsupportedForm, "only a single VALUES clause is accepted alongside the triple patterns; UNION/OPTIONAL/GRAPH/MINUS/nested patterns are not")
		}
		if values != nil {
			return nil, newError(ErrUnsupportedForm, "at most one VALUES clause is accepted in zk-SPARQL")
		}
		values = child.Values
	}

	patterns := where.Patterns
	if len(patterns) == 0 && !(isAsk && values != nil) {
		return nil, newError(ErrUnsupportedForm, "the query pattern must contain at least one triple pattern")
	}

	var filter parser.Expression
	if len(where.Filters) == 1 {
		filter = where.Filters[0].Expression
	}

	inScope := map[string]bool{}
	for _, tp := range patterns {
		collectPatternVariables(tp, inScope)
	}
	if values != nil {
		for _, v := range values.Variables {
			inScope[v.Name] = true
		}
	}

	return &ZkQuery{
		InScopeVariables: inScope,
		Patterns:         patterns,
		Filter:           filter,
		Values:           values,
	}, nil
}

func collectPatternVariables(tp *parser.TriplePattern, into map[string]bool) {
	for _, tov := range []parser.TermOrVariable{tp.Subject, tp.Predicate, tp.Object} {
		if tov.IsVariable() {
			into[tov.Variable.Name] = true
		}
	}
}
