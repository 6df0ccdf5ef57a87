package models

// Asset is a media file attached to a CMS entry
type Asset struct {
	URL         string `json:"url"`
	FileName    string `json:"fileName,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Title       string `json:"title,omitempty"`
}

// CatalogEntry is a single flat entry as delivered by the CMS
type CatalogEntry struct {
	ID          string `json:"id"`
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	ProductName string `json:"productName"`
	Media       *Asset `json:"media,omitempty"`
}

// Category represents a top level group of subcategories
type Category struct {
	Name          string        `json:"name"`
	Stub          string        `json:"stub"`
	Subcategories []Subcategory `json:"subcategories"`
}

// ProductCount returns the number of products across all subcategories
func (c Category) ProductCount() int {
	total := 0
	for _, sub := range c.Subcategories {
		total += len(sub.Products)
	}
	return total
}

// Subcategory represents a collection of products
type Subcategory struct {
	Name     string    `json:"name"`
	Category string    `json:"-"`
	Stub     string    `json:"stub"`
	Products []Product `json:"products"`
}

// Product is a catalog item shown to visitors
type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	ImageURL    string `json:"imageUrl,omitempty"`
	InquiryPath string `json:"inquiryPath"`
}

// ProductPage is one slice of a filtered product listing
type ProductPage struct {
	Products []Product `json:"products"`
	Page     int       `json:"page"`
	PageSize int       `json:"pageSize"`
	Total    int       `json:"total"`
	Pages    int       `json:"pages"`
}

// Index represents the home page data
type Index struct {
	Categories []Category
	Playlist   []MediaItem
	Interval   int
}

// Catalog represents the products page data
type Catalog struct {
	Categories          []Category
	Selected            *Category
	SelectedSubcategory string
	Query               string
	Page                ProductPage
}

// Inquiry represents the contact page data
type Inquiry struct {
	Address       string
	Subcategories []string
	Selected      []string
	Subject       string
	Message       string
}
