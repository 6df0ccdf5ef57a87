package catalog

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"

	"export-site/pkg/models"
)

const (
	// UncategorizedName groups entries that carry no category
	UncategorizedName = "Uncategorized"
	// GeneralName groups entries that carry no subcategory
	GeneralName = "General"
)

// Query narrows a product listing. Zero values match everything.
type Query struct {
	Text        string
	Category    string
	Subcategory string
}

// IsZero reports whether the query excludes nothing
func (q Query) IsZero() bool {
	return strings.TrimSpace(q.Text) == "" && q.Category == "" && q.Subcategory == ""
}

// Fallbacks picks the image of a product that has no media of its own
type Fallbacks struct {
	Subcategory map[string]string
	Default     string
}

// Image returns the fallback for a subcategory, or the default
func (f Fallbacks) Image(subcategory string) string {
	if img, ok := f.Subcategory[subcategory]; ok && img != "" {
		return img
	}
	return f.Default
}

// Group builds the category -> subcategory -> product hierarchy from a flat
// entry list. Categories and subcategories are in natural alphabetical
// order and products keep their source order. entries is not modified.
func Group(entries []models.CatalogEntry) []models.Category {
	return GroupWith(entries, Fallbacks{})
}

// GroupWith is Group with products lacking media shown with a fallback image
func GroupWith(entries []models.CatalogEntry, fallbacks Fallbacks) []models.Category {
	type subAcc struct {
		name     string
		products []models.Product
	}
	type catAcc struct {
		name string
		subs map[string]*subAcc
	}
	categoryMap := make(map[string]*catAcc)

	for _, entry := range entries {
		categoryName := strings.TrimSpace(entry.Category)
		if categoryName == "" {
			categoryName = UncategorizedName
		}
		subName := strings.TrimSpace(entry.Subcategory)
		if subName == "" {
			subName = GeneralName
		}

		cat, exists := categoryMap[categoryName]
		if !exists {
			cat = &catAcc{name: categoryName, subs: make(map[string]*subAcc)}
			categoryMap[categoryName] = cat
		}
		sub, exists := cat.subs[subName]
		if !exists {
			sub = &subAcc{name: subName}
			cat.subs[subName] = sub
		}

		sub.products = append(sub.products, models.Product{
			ID:          entry.ID,
			Name:        entry.ProductName,
			Category:    categoryName,
			Subcategory: subName,
			ImageURL:    mediaURL(entry.Media, fallbacks.Image(subName)),
			InquiryPath: InquiryPath(subName),
		})
	}

	categories := make([]models.Category, 0, len(categoryMap))
	for _, cat := range categoryMap {
		subcategories := make([]models.Subcategory, 0, len(cat.subs))
		for _, sub := range cat.subs {
			subcategories = append(subcategories, models.Subcategory{
				Name:     sub.name,
				Category: cat.name,
				Stub:     Stub(cat.name + "/" + sub.name),
				Products: sub.products,
			})
		}
		sort.Slice(subcategories, func(i, j int) bool {
			return displayLess(subcategories[i].Name, subcategories[j].Name)
		})
		categories = append(categories, models.Category{
			Name:          cat.name,
			Stub:          Stub(cat.name),
			Subcategories: subcategories,
		})
	}

	sort.Slice(categories, func(i, j int) bool {
		return displayLess(categories[i].Name, categories[j].Name)
	})

	return categories
}

// Find returns the category with the given name or stub
func Find(categories []models.Category, nameOrStub string) (models.Category, bool) {
	for _, c := range categories {
		if c.Name == nameOrStub || c.Stub == nameOrStub {
			return c, true
		}
	}
	return models.Category{}, false
}

// Filter returns the products matching q in display order. The category may
// be given by name or stub, as for Narrow.
func Filter(categories []models.Category, q Query) []models.Product {
	text := strings.ToLower(strings.TrimSpace(q.Text))
	products := []models.Product{}

	for _, cat := range categories {
		if q.Category != "" && cat.Name != q.Category && cat.Stub != q.Category {
			continue
		}
		for _, sub := range cat.Subcategories {
			if q.Subcategory != "" && sub.Name != q.Subcategory {
				continue
			}
			for _, p := range sub.Products {
				if matchesText(p, text) {
					products = append(products, p)
				}
			}
		}
	}

	return products
}

// Narrow returns the selected category with each subcategory's product list
// filtered by q. Subcategories stay listed even when nothing in them
// matches, so the subcategory picker does not change under the visitor.
func Narrow(categories []models.Category, q Query) []models.Category {
	if q.Category == "" {
		return categories
	}
	cat, ok := Find(categories, q.Category)
	if !ok {
		return []models.Category{}
	}

	text := strings.ToLower(strings.TrimSpace(q.Text))
	narrowed := models.Category{Name: cat.Name, Stub: cat.Stub, Subcategories: []models.Subcategory{}}
	for _, s := range cat.Subcategories {
		products := []models.Product{}
		if q.Subcategory == "" || s.Name == q.Subcategory {
			for _, p := range s.Products {
				if matchesText(p, text) {
					products = append(products, p)
				}
			}
		}
		s.Products = products
		narrowed.Subcategories = append(narrowed.Subcategories, s)
	}

	return []models.Category{narrowed}
}

// Paginate returns the 1-based page of size products. Pages outside the
// listing are empty rather than an error.
func Paginate(products []models.Product, size, page int) []models.Product {
	if size < 1 || page < 1 {
		return []models.Product{}
	}
	start := (page - 1) * size
	if start >= len(products) {
		return []models.Product{}
	}
	end := start + size
	if end > len(products) {
		end = len(products)
	}
	return products[start:end:end]
}

// PageCount returns the number of pages needed for total items
func PageCount(total, size int) int {
	if size < 1 || total <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// Page filters, paginates and describes the result
func Page(categories []models.Category, q Query, size, page int) models.ProductPage {
	products := Filter(categories, q)
	return models.ProductPage{
		Products: Paginate(products, size, page),
		Page:     page,
		PageSize: size,
		Total:    len(products),
		Pages:    PageCount(len(products), size),
	}
}

// Subcategories returns the unique subcategory names of entries, sorted
func Subcategories(entries []models.CatalogEntry) []string {
	seen := make(map[string]struct{})
	names := []string{}
	for _, entry := range entries {
		name := strings.TrimSpace(entry.Subcategory)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return displayLess(names[i], names[j])
	})
	return names
}

// InquiryPath returns the contact page link pre-filled with a subcategory
func InquiryPath(subcategory string) string {
	return "/contact?category=" + url.QueryEscape(subcategory)
}

// Stub generates a short stable identifier for URL use
func Stub(name string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(name))[:8]
}

// matchesText expects text already trimmed and lower-cased
func matchesText(p models.Product, text string) bool {
	return text == "" || strings.Contains(strings.ToLower(p.Name), text)
}

func mediaURL(asset *models.Asset, fallback string) string {
	if asset == nil || asset.URL == "" {
		return fallback
	}
	return asset.URL
}

// displayLess breaks NaturalLess ties on the raw bytes so the order is total
func displayLess(a, b string) bool {
	if NaturalLess(a, b) {
		return true
	}
	if NaturalLess(b, a) {
		return false
	}
	return a < b
}

// NaturalLess compares strings treating digit runs as numbers, so that
// "Grade 2" sorts before "Grade 10"
func NaturalLess(s1, s2 string) bool {
	i, j := 0, 0
	for i < len(s1) && j < len(s2) {
		for i < len(s1) && unicode.IsSpace(rune(s1[i])) {
			i++
		}
		for j < len(s2) && unicode.IsSpace(rune(s2[j])) {
			j++
		}
		if i >= len(s1) || j >= len(s2) {
			break
		}

		if isDigit(s1[i]) && isDigit(s2[j]) {
			si := i
			for i < len(s1) && isDigit(s1[i]) {
				i++
			}
			sj := j
			for j < len(s2) && isDigit(s2[j]) {
				j++
			}
			n1, _ := strconv.Atoi(s1[si:i])
			n2, _ := strconv.Atoi(s2[sj:j])
			if n1 != n2 {
				return n1 < n2
			}
			continue
		}

		if s1[i] != s2[j] {
			return s1[i] < s2[j]
		}
		i++
		j++
	}

	return len(s1)-i < len(s2)-j
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
