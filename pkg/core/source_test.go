package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectConfig_Ref(t *testing.T) {
	cfg := ProjectConfig{SourceProject: "p", SourceDataset: "d"}

	got := cfg.Ref("Foo")

	assert.Equal(t, TableRef{Database: "p", Schema: "d", Name: "Foo"}, got)
}

func TestTableRef_Formatting(t *testing.T) {
	ref := TableRef{Database: "proj", Schema: "ds", Name: "Production_Product"}

	assert.Equal(t, "proj.ds.Production_Product", ref.Key())
	assert.Equal(t, "proj.ds.Production_Product", ref.String())
	assert.Equal(t, "`proj.ds.Production_Product`", ref.SQL())
}

func TestTableRef_SQLStripsBackticks(t *testing.T) {
	ref := TableRef{Database: "pro`j", Schema: "ds", Name: "t"}
	assert.Equal(t, "`proj.ds.t`", ref.SQL())
}

func TestTableRef_WellFormed(t *testing.T) {
	tests := []struct {
		name    string
		ref     TableRef
		ok      bool
		missing []string
	}{
		{"complete", TableRef{"p", "d", "n"}, true, nil},
		{"no database", TableRef{"", "d", "n"}, false, []string{"database"}},
		{"no schema", TableRef{"p", "", "n"}, false, []string{"schema"}},
		{"no name", TableRef{"p", "d", ""}, false, []string{"name"}},
		{"empty", TableRef{}, false, []string{"database", "schema", "name"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.ref.IsWellFormed())
			assert.Equal(t, tt.missing, tt.ref.MissingParts())
		})
	}
}

func TestVariant_IsValid(t *testing.T) {
	for _, v := range Variants() {
		assert.True(t, v.IsValid(), "variant %q", v)
	}
	assert.False(t, Variant("partial").IsValid())
	assert.False(t, Variant("").IsValid())
}

func TestAssertions_Queries(t *testing.T) {
	a := Assertions{
		UniqueKey: []string{"ProductID"},
		NonNull:   []string{"ProductID", "Name"},
	}
	ref := TableRef{Database: "p", Schema: "d", Name: "dim_product"}

	queries := a.Queries(ref)
	require.Len(t, queries, 2)

	assert.Equal(t, "unique_key", queries[0].Kind)
	assert.Equal(t,
		"SELECT ProductID, COUNT(*) AS row_count FROM `p.d.dim_product` GROUP BY ProductID HAVING COUNT(*) > 1",
		queries[0].SQL)

	assert.Equal(t, "non_null", queries[1].Kind)
	assert.Equal(t,
		"SELECT * FROM `p.d.dim_product` WHERE ProductID IS NULL OR Name IS NULL",
		queries[1].SQL)
}

func TestAssertions_QueriesEmpty(t *testing.T) {
	assert.Empty(t, Assertions{}.Queries(TableRef{"p", "d", "t"}))
}
