package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/leapsource/internal/declare"
	"github.com/leapstack-labs/leapsource/internal/testutil"
	"github.com/leapstack-labs/leapsource/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fullNames = []string{
	"Production_Product",
	"Production_ProductCategory",
	"Production_ProductSubcategory",
	"Production_ProductReview",
	"Production_ProductModel",
	"Production_ProductListPriceHistory",
	"Production_ProductCostHistory",
	"Production_UnitMeasure",
	"Production_ProductInventory",
	"Production_Location",
	"Production_WorkOrder",
	"Production_WorkOrderRouting",
	"Production_ScrapReason",
	"Purchasing_Vendor",
	"Purchasing_ProductVendor",
	"Purchasing_PurchaseOrderHeader",
	"Purchasing_PurchaseOrderDetail",
	"Purchasing_ShipMethod",
	"Sales_SalesOrderHeader",
	"Sales_SalesOrderDetail",
	"Sales_Customer",
	"Sales_SalesTerritory",
	"Sales_SalesPerson",
	"Sales_Store",
	"Sales_SpecialOffer",
	"Sales_SpecialOfferProduct",
	"Sales_CurrencyRate",
}

var minimalNames = []string{
	"Production_ProductReview",
	"Production_Product",
	"Production_ProductSubcategory",
	"Production_ProductCategory",
}

var testCfg = core.ProjectConfig{SourceProject: "p", SourceDataset: "d"}

func newTestLoader(t *testing.T) *Loader {
	t.Helper()
	return New(declare.NewBuilder(testCfg), testutil.NewTestLogger(t))
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoad_FullVariant(t *testing.T) {
	res, err := newTestLoader(t).Load(context.Background(), Options{Variant: core.VariantFull})
	require.NoError(t, err)

	reg := res.Registry
	assert.Equal(t, 27, reg.Count())
	assert.Empty(t, reg.Duplicates(), "full variant must not declare a table twice")
	assert.Len(t, res.Files, 3)

	b := declare.NewBuilder(testCfg)
	for _, name := range fullNames {
		got, ok := reg.Resolve(name)
		require.True(t, ok, "%s not declared", name)

		// Round-trip through SourceRef keeps name, database and schema
		assert.Equal(t, b.SourceRef(name), got.Ref, name)
	}
}

func TestLoad_MinimalVariant(t *testing.T) {
	res, err := newTestLoader(t).Load(context.Background(), Options{Variant: core.VariantMinimal})
	require.NoError(t, err)

	refs := res.Registry.Refs()
	require.Len(t, refs, 4)
	for i, name := range minimalNames {
		assert.Equal(t, core.TableRef{Database: "p", Schema: "d", Name: name}, refs[i])
	}
}

func TestLoad_AllDeclarationsWellFormed(t *testing.T) {
	for _, v := range []core.Variant{core.VariantFull, core.VariantMinimal} {
		t.Run(string(v), func(t *testing.T) {
			res, err := newTestLoader(t).Load(context.Background(), Options{Variant: v})
			require.NoError(t, err)

			seen := make(map[core.TableRef]bool)
			for _, d := range res.Registry.All() {
				assert.True(t, d.Ref.IsWellFormed(), "%v", d.Ref)
				assert.False(t, seen[d.Ref], "duplicate %v", d.Ref)
				seen[d.Ref] = true
			}
		})
	}
}

func TestLoad_DefaultVariantIsFull(t *testing.T) {
	res, err := newTestLoader(t).Load(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 27, res.Registry.Count())
}

func TestLoad_UnknownVariant(t *testing.T) {
	_, err := newTestLoader(t).Load(context.Background(), Options{Variant: "huge"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "huge")
}

func TestLoad_ProjectDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "staging/hr.star", `
declare(name = "HumanResources_Employee")
declare(name = "HumanResources_Department")
`)
	writeFile(t, dir, "person.star", `declare(database = "other", schema = "people", name = "Person_Person")`)
	writeFile(t, dir, "README.md", "not a declaration file")
	writeFile(t, dir, ".hidden/skip.star", `declare(name = "Hidden")`)

	res, err := newTestLoader(t).Load(context.Background(), Options{Variant: core.VariantNone, Dir: dir})
	require.NoError(t, err)

	refs := res.Registry.Refs()
	require.Len(t, refs, 3)
	// Sorted by path: person.star before staging/hr.star
	assert.Equal(t, core.TableRef{Database: "other", Schema: "people", Name: "Person_Person"}, refs[0])
	assert.Equal(t, "HumanResources_Employee", refs[1].Name)
	assert.Equal(t, "HumanResources_Department", refs[2].Name)

	_, hidden := res.Registry.Resolve("Hidden")
	assert.False(t, hidden)
}

func TestLoad_ProjectDuplicatesBuiltin(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "extra.star", `
declare(name = "Production_Product")
declare(name = "Production_ProductReview")
`)

	res, err := newTestLoader(t).Load(context.Background(), Options{Variant: core.VariantMinimal, Dir: dir})
	require.NoError(t, err)

	assert.Equal(t, 4, res.Registry.Count())
	dups := res.Registry.Duplicates()
	require.Len(t, dups, 2)
	assert.Equal(t, filepath.Join(dir, "extra.star"), dups[0].File)
}

func TestLoad_MissingDirectoryIsFine(t *testing.T) {
	res, err := newTestLoader(t).Load(context.Background(), Options{
		Variant: core.VariantMinimal,
		Dir:     filepath.Join(t.TempDir(), "nope"),
	})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Registry.Count())
}

func TestLoad_DirIsFile(t *testing.T) {
	p := writeFile(t, t.TempDir(), "file.star", "")
	_, err := newTestLoader(t).Load(context.Background(), Options{Variant: core.VariantNone, Dir: p})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestLoad_EvalError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.star", `declare(name = "Sales_Store")`)
	bad := writeFile(t, dir, "bad.star", `declare(name = "")`)

	_, err := newTestLoader(t).Load(context.Background(), Options{Variant: core.VariantNone, Dir: dir})
	require.Error(t, err)

	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr), "expected *LoadError, got %T", err)
	assert.Equal(t, bad, loadErr.File)
	assert.Contains(t, loadErr.Error(), "empty name")
}

func TestLoad_SyntaxError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.star", `declare(name = `)

	_, err := newTestLoader(t).Load(context.Background(), Options{Variant: core.VariantNone, Dir: dir})

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.NotNil(t, loadErr.Unwrap())
}

func TestLoad_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestLoader(t).Load(ctx, Options{Variant: core.VariantFull})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoad_ConfigDrivesRefs(t *testing.T) {
	l := New(declare.NewBuilder(core.ProjectConfig{SourceProject: "prod", SourceDataset: "oltp"}), nil)

	res, err := l.Load(context.Background(), Options{Variant: core.VariantMinimal})
	require.NoError(t, err)

	for _, ref := range res.Registry.Refs() {
		assert.Equal(t, "prod", ref.Database)
		assert.Equal(t, "oltp", ref.Schema)
	}
}
