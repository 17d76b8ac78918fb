package core

import (
	"fmt"
	"strings"
)

// Assertions describes the integrity checks attached to a dimension definition.
// It is produced on demand and never persisted.
type Assertions struct {
	UniqueKey []string `json:"uniqueKey" yaml:"uniqueKey"`
	NonNull   []string `json:"nonNull" yaml:"nonNull"`
}

// AssertionQuery is the SQL that returns the rows violating one assertion.
// An assertion passes when its query returns no rows.
type AssertionQuery struct {
	Kind string // "unique_key" or "non_null"
	SQL  string
}

// Queries renders the violation queries for these assertions against ref.
// Evaluation happens elsewhere; this only produces the text.
func (a Assertions) Queries(ref TableRef) []AssertionQuery {
	var queries []AssertionQuery

	if len(a.UniqueKey) > 0 {
		cols := strings.Join(a.UniqueKey, ", ")
		queries = append(queries, AssertionQuery{
			Kind: "unique_key",
			SQL: fmt.Sprintf(
				"SELECT %s, COUNT(*) AS row_count FROM %s GROUP BY %s HAVING COUNT(*) > 1",
				cols, ref.SQL(), cols,
			),
		})
	}

	if len(a.NonNull) > 0 {
		conds := make([]string, len(a.NonNull))
		for i, col := range a.NonNull {
			conds[i] = col + " IS NULL"
		}
		queries = append(queries, AssertionQuery{
			Kind: "non_null",
			SQL: fmt.Sprintf(
				"SELECT * FROM %s WHERE %s",
				ref.SQL(), strings.Join(conds, " OR "),
			),
		})
	}

	return queries
}
