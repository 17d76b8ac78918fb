package registry

import (
	"sync"
	"testing"

	"github.com/leapstack-labs/leapsource/internal/testutil"
	"github.com/leapstack-labs/leapsource/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ref(name string) core.TableRef {
	return core.TableRef{Database: "proj", Schema: "oltp", Name: name}
}

func TestSourceRegistry_Declare(t *testing.T) {
	r := NewSourceRegistry(testutil.NewTestLogger(t))

	decl, added := r.Declare(ref("Production_Product"), "sources.star")

	assert.True(t, added)
	assert.Equal(t, 0, decl.Order)
	assert.Equal(t, "sources.star", decl.File)
	assert.Equal(t, 1, r.Count())

	got, ok := r.Resolve("proj.oltp.Production_Product")
	require.True(t, ok)
	assert.Equal(t, decl, got)
}

func TestSourceRegistry_DuplicateIsSilent(t *testing.T) {
	r := NewSourceRegistry(nil)

	r.Declare(ref("Production_Product"), "a.star")
	r.Declare(ref("Production_ProductReview"), "a.star")
	first, added := r.Declare(ref("Production_Product"), "b.star")

	assert.False(t, added)
	assert.Equal(t, "a.star", first.File, "first declaration wins")
	assert.Equal(t, 2, r.Count())

	dups := r.Duplicates()
	require.Len(t, dups, 1)
	assert.Equal(t, "b.star", dups[0].File)
	assert.Equal(t, ref("Production_Product"), dups[0].Ref)
}

func TestSourceRegistry_SameNameDifferentSchema(t *testing.T) {
	r := NewSourceRegistry(nil)

	_, added1 := r.Declare(core.TableRef{Database: "p", Schema: "a", Name: "T"}, "x.star")
	_, added2 := r.Declare(core.TableRef{Database: "p", Schema: "b", Name: "T"}, "x.star")

	assert.True(t, added1)
	assert.True(t, added2)
	assert.Equal(t, 2, r.Count())
	assert.Empty(t, r.Duplicates())
}

func TestSourceRegistry_Resolve(t *testing.T) {
	r := NewSourceRegistry(nil)
	r.Declare(ref("Sales_Customer"), "s.star")
	r.Declare(ref("Sales_Store"), "s.star")

	tests := []struct {
		name      string
		lookup    string
		wantName  string
		wantFound bool
	}{
		{"full key", "proj.oltp.Sales_Customer", "Sales_Customer", true},
		{"schema qualified", "oltp.Sales_Store", "Sales_Store", true},
		{"bare name", "Sales_Customer", "Sales_Customer", true},
		{"unknown prefix", "other.Sales_Store", "Sales_Store", true},
		{"missing", "Sales_Nope", "", false},
		{"missing qualified", "oltp.Sales_Nope", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Resolve(tt.lookup)
			assert.Equal(t, tt.wantFound, ok)
			assert.Equal(t, tt.wantName, got.Ref.Name)
			if ok {
				assert.Equal(t, "s.star", got.File)
			}
		})
	}
}

func TestSourceRegistry_AllKeepsOrder(t *testing.T) {
	r := NewSourceRegistry(nil)
	names := []string{"C", "A", "B"}
	for _, n := range names {
		r.Declare(ref(n), "f.star")
	}

	all := r.All()
	require.Len(t, all, 3)
	for i, d := range all {
		assert.Equal(t, names[i], d.Ref.Name)
		assert.Equal(t, i, d.Order)
	}

	refs := r.Refs()
	assert.Equal(t, ref("C"), refs[0])
}

func TestSourceRegistry_ConcurrentDeclare(t *testing.T) {
	r := NewSourceRegistry(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Declare(ref("Production_Location"), "f.star")
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, r.Count())
	assert.Len(t, r.Duplicates(), 49)
}
