package catalog

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"export-site/pkg/models"
)

func sampleEntries() []models.CatalogEntry {
	return []models.CatalogEntry{
		{ID: "1", Category: "A", Subcategory: "X", ProductName: "p1"},
		{ID: "2", Category: "A", Subcategory: "Y", ProductName: "p2"},
		{ID: "3", Category: "B", Subcategory: "Z", ProductName: "p3"},
	}
}

func productNames(products []models.Product) []string {
	names := make([]string, 0, len(products))
	for _, p := range products {
		names = append(names, p.Name)
	}
	return names
}

func TestGroup_TwoLevelHierarchy(t *testing.T) {
	groups := Group(sampleEntries())

	require.Len(t, groups, 2)
	assert.Equal(t, "A", groups[0].Name)
	require.Len(t, groups[0].Subcategories, 2)
	assert.Equal(t, "X", groups[0].Subcategories[0].Name)
	assert.Equal(t, "Y", groups[0].Subcategories[1].Name)
	assert.Equal(t, []string{"p1"}, productNames(groups[0].Subcategories[0].Products))
	assert.Equal(t, []string{"p2"}, productNames(groups[0].Subcategories[1].Products))

	assert.Equal(t, "B", groups[1].Name)
	require.Len(t, groups[1].Subcategories, 1)
	assert.Equal(t, "Z", groups[1].Subcategories[0].Name)
	assert.Equal(t, []string{"p3"}, productNames(groups[1].Subcategories[0].Products))

	assert.Equal(t, 2, groups[0].ProductCount())
}

func TestGroup_SourceOrderWithinSubcategory(t *testing.T) {
	entries := []models.CatalogEntry{
		{ID: "1", Category: "Commodities", Subcategory: "Grains", ProductName: "Soybean"},
		{ID: "2", Category: "Commodities", Subcategory: "Metals", ProductName: "Copper"},
		{ID: "3", Category: "Commodities", Subcategory: "Grains", ProductName: "Corn"},
		{ID: "4", Category: "Commodities", Subcategory: "Grains", ProductName: "Barley"},
	}

	groups := Group(entries)
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"Soybean", "Corn", "Barley"}, productNames(groups[0].Subcategories[0].Products))
}

func TestGroup_Deterministic(t *testing.T) {
	entries := make([]models.CatalogEntry, 0, 60)
	for i := 0; i < 60; i++ {
		entries = append(entries, models.CatalogEntry{
			ID:          fmt.Sprint(i),
			Category:    fmt.Sprintf("Cat %d", i%4),
			Subcategory: fmt.Sprintf("Sub %d", i%7),
			ProductName: fmt.Sprintf("Product %d", i),
		})
	}

	first := Group(entries)
	for i := 0; i < 10; i++ {
		if diff := cmp.Diff(first, Group(entries)); diff != "" {
			t.Fatalf("grouping changed between runs (-first +again):\n%s", diff)
		}
	}
}

func TestGroup_DoesNotMutateSource(t *testing.T) {
	entries := []models.CatalogEntry{
		{ID: "1", Category: "B", Subcategory: "Z", ProductName: "p3"},
		{ID: "2", Category: "A", Subcategory: "X", ProductName: "p1"},
	}
	before := append([]models.CatalogEntry(nil), entries...)

	Group(entries)
	assert.Equal(t, before, entries)
}

func TestGroup_BlankNamesFallBack(t *testing.T) {
	groups := Group([]models.CatalogEntry{{ID: "1", ProductName: "Loose item"}})
	require.Len(t, groups, 1)
	assert.Equal(t, UncategorizedName, groups[0].Name)
	assert.Equal(t, GeneralName, groups[0].Subcategories[0].Name)
}

func TestGroup_ProductCarriesMediaAndInquiry(t *testing.T) {
	groups := Group([]models.CatalogEntry{{
		ID: "1", Category: "Household & Groceries", Subcategory: "Oil & Gas", ProductName: "Diesel",
		Media: &models.Asset{URL: "https://images.ctfassets.net/x/diesel.jpg"},
	}})
	p := groups[0].Subcategories[0].Products[0]
	assert.Equal(t, "https://images.ctfassets.net/x/diesel.jpg", p.ImageURL)
	assert.Equal(t, "/contact?category=Oil+%26+Gas", p.InquiryPath)
}

func TestGroupWith_FallbackImages(t *testing.T) {
	fallbacks := Fallbacks{
		Subcategory: map[string]string{"Grains": "https://img.example.com/grains.jpg"},
		Default:     "https://img.example.com/default.jpg",
	}
	groups := GroupWith([]models.CatalogEntry{
		{ID: "1", Category: "Food", Subcategory: "Grains", ProductName: "Soy"},
		{ID: "2", Category: "Food", Subcategory: "Sugar", ProductName: "ICUMSA 45"},
		{ID: "3", Category: "Food", Subcategory: "Grains", ProductName: "Corn",
			Media: &models.Asset{URL: "https://images.ctfassets.net/x/corn.jpg"}},
	}, fallbacks)

	grains := groups[0].Subcategories[0]
	require.Equal(t, "Grains", grains.Name)
	assert.Equal(t, "https://img.example.com/grains.jpg", grains.Products[0].ImageURL)
	assert.Equal(t, "https://images.ctfassets.net/x/corn.jpg", grains.Products[1].ImageURL)
	assert.Equal(t, "https://img.example.com/default.jpg", groups[0].Subcategories[1].Products[0].ImageURL)

	plain := Group([]models.CatalogEntry{{ID: "1", Category: "Food", Subcategory: "Grains", ProductName: "Soy"}})
	assert.Empty(t, plain[0].Subcategories[0].Products[0].ImageURL)
}

func TestGroup_NaturalOrder(t *testing.T) {
	groups := Group([]models.CatalogEntry{
		{Category: "Grade 10", Subcategory: "S", ProductName: "a"},
		{Category: "Grade 2", Subcategory: "S", ProductName: "b"},
	})
	assert.Equal(t, "Grade 2", groups[0].Name)
	assert.Equal(t, "Grade 10", groups[1].Name)
}

func TestFilter(t *testing.T) {
	groups := Group(sampleEntries())

	tests := []struct {
		name  string
		query Query
		want  []string
	}{
		{"empty query is identity", Query{}, []string{"p1", "p2", "p3"}},
		{"exact name", Query{Text: "p1"}, []string{"p1"}},
		{"trimmed and case folded", Query{Text: "  P1 "}, []string{"p1"}},
		{"substring", Query{Text: "p"}, []string{"p1", "p2", "p3"}},
		{"no match", Query{Text: "rice"}, []string{}},
		{"subcategory", Query{Subcategory: "Y"}, []string{"p2"}},
		{"category", Query{Category: "B"}, []string{"p3"}},
		{"text within subcategory", Query{Text: "p1", Subcategory: "Y"}, []string{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, productNames(Filter(groups, tc.query)))
		})
	}
}

func TestFilter_CategoryStub(t *testing.T) {
	groups := Group(sampleEntries())

	byName := Filter(groups, Query{Category: "A"})
	byStub := Filter(groups, Query{Category: Stub("A")})
	assert.Equal(t, []string{"p1", "p2"}, productNames(byStub))
	assert.Equal(t, byName, byStub)

	page := Page(groups, Query{Category: Stub("B")}, 10, 1)
	assert.Equal(t, 1, page.Total)
}

func TestNarrow_KeepsSubcategoryList(t *testing.T) {
	groups := Group(sampleEntries())

	narrowed := Narrow(groups, Query{Category: "A", Text: "p2"})
	require.Len(t, narrowed, 1)
	require.Len(t, narrowed[0].Subcategories, 2)
	assert.Empty(t, narrowed[0].Subcategories[0].Products)
	assert.Equal(t, []string{"p2"}, productNames(narrowed[0].Subcategories[1].Products))

	// Original projection is untouched.
	assert.Len(t, groups[0].Subcategories[0].Products, 1)

	assert.Equal(t, groups, Narrow(groups, Query{}))
	assert.Empty(t, Narrow(groups, Query{Category: "missing"}))
}

func TestPaginate(t *testing.T) {
	products := make([]models.Product, 5)
	for i := range products {
		products[i] = models.Product{Name: fmt.Sprintf("p%d", i+1)}
	}

	var sizes []int
	for page := 1; page <= 3; page++ {
		sizes = append(sizes, len(Paginate(products, 2, page)))
	}
	assert.Equal(t, []int{2, 2, 1}, sizes)
	assert.Equal(t, []string{"p5"}, productNames(Paginate(products, 2, 3)))

	beyond := Paginate(products, 2, 4)
	assert.NotNil(t, beyond)
	assert.Empty(t, beyond)

	assert.Empty(t, Paginate(products, 2, 0))
	assert.Empty(t, Paginate(products, 0, 1))
	assert.Empty(t, Paginate(nil, 2, 1))
}

func TestPaginate_AppendDoesNotClobberSource(t *testing.T) {
	products := []models.Product{{Name: "a"}, {Name: "b"}, {Name: "c"}}
	page := Paginate(products, 2, 1)
	_ = append(page, models.Product{Name: "x"})
	assert.Equal(t, "c", products[2].Name)
}

func TestPageCount(t *testing.T) {
	assert.Equal(t, 3, PageCount(5, 2))
	assert.Equal(t, 1, PageCount(2, 2))
	assert.Equal(t, 0, PageCount(0, 2))
	assert.Equal(t, 0, PageCount(5, 0))
}

func TestPage(t *testing.T) {
	page := Page(Group(sampleEntries()), Query{Text: "p"}, 2, 2)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.Pages)
	assert.Equal(t, []string{"p3"}, productNames(page.Products))
}

func TestSubcategories(t *testing.T) {
	entries := append(sampleEntries(),
		models.CatalogEntry{Category: "A", Subcategory: "X", ProductName: "p4"},
		models.CatalogEntry{Category: "A", Subcategory: " ", ProductName: "p5"},
	)
	assert.Equal(t, []string{"X", "Y", "Z"}, Subcategories(entries))
}

func TestStub_Stable(t *testing.T) {
	assert.Equal(t, Stub("Commodities"), Stub("Commodities"))
	assert.NotEqual(t, Stub("Commodities"), Stub("Cleaning"))
	assert.Len(t, Stub("Commodities"), 8)
}

func TestFind(t *testing.T) {
	groups := Group(sampleEntries())
	byName, ok := Find(groups, "B")
	require.True(t, ok)

	byStub, ok := Find(groups, byName.Stub)
	require.True(t, ok)
	assert.Equal(t, byName.Name, byStub.Name)

	_, ok = Find(groups, "nope")
	assert.False(t, ok)
}

func TestNaturalLess(t *testing.T) {
	assert.True(t, NaturalLess("file2", "file10"))
	assert.False(t, NaturalLess("file10", "file2"))
	assert.True(t, NaturalLess("Grains", "Metals"))
	assert.False(t, NaturalLess("same", "same"))
	assert.True(t, NaturalLess("a", "ab"))
}
