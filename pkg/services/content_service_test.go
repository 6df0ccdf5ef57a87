package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"export-site/pkg/config"
	"export-site/pkg/models"
)

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		CMS: config.CMSConfig{
			SpaceID:     "space1",
			AccessToken: "secret",
			Environment: "master",
			ContentType: "newsite",
			BaseURL:     baseURL,
		},
	}
}

func entryJSON(id, category, sub, product, assetID string) map[string]any {
	fields := map[string]any{
		"category":    category,
		"subcategory": sub,
		"product":     product,
	}
	if assetID != "" {
		fields["productMedia"] = map[string]any{
			"sys": map[string]any{"id": assetID, "type": "Link", "linkType": "Asset"},
		}
	}
	return map[string]any{"sys": map[string]any{"id": id}, "fields": fields}
}

// cmsServer serves entries in pages of pageSize, ignoring the requested limit
func cmsServer(t *testing.T, items []map[string]any, pageSize int, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/spaces/space1/environments/master/entries", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "newsite", r.URL.Query().Get("content_type"))

		skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
		end := min(skip+pageSize, len(items))
		page := items[min(skip, len(items)):end]

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"total": len(items),
			"skip":  skip,
			"limit": pageSize,
			"items": page,
			"includes": map[string]any{
				"Asset": []map[string]any{{
					"sys": map[string]any{"id": "a1"},
					"fields": map[string]any{
						"title": "Soy",
						"file": map[string]any{
							"url":         "//images.ctfassets.net/space1/soy.jpg",
							"fileName":    "soy.jpg",
							"contentType": "image/jpeg",
						},
					},
				}},
			},
		})
	}))
}

func TestService_EntriesPagesAndResolvesAssets(t *testing.T) {
	items := []map[string]any{
		entryJSON("e1", "Food", "Grains", "Soy", "a1"),
		entryJSON("e2", "Food", "Grains", "Corn", ""),
		entryJSON("e3", "Energy", "Fuel", "Diesel", "missing"),
	}
	var hits atomic.Int32
	srv := cmsServer(t, items, 2, &hits)
	defer srv.Close()

	svc := NewService(testConfig(srv.URL), srv.Client())
	entries, err := svc.Entries(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, hits.Load())

	want := []models.CatalogEntry{
		{ID: "e1", Category: "Food", Subcategory: "Grains", ProductName: "Soy", Media: &models.Asset{
			URL: "https://images.ctfassets.net/space1/soy.jpg", FileName: "soy.jpg", ContentType: "image/jpeg", Title: "Soy",
		}},
		{ID: "e2", Category: "Food", Subcategory: "Grains", ProductName: "Corn"},
		{ID: "e3", Category: "Energy", Subcategory: "Fuel", ProductName: "Diesel"},
	}
	if diff := cmp.Diff(want, entries); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestService_CachesEntries(t *testing.T) {
	var hits atomic.Int32
	srv := cmsServer(t, []map[string]any{entryJSON("e1", "Food", "Grains", "Soy", "")}, 10, &hits)
	defer srv.Close()

	svc := NewService(testConfig(srv.URL), srv.Client())
	ctx := context.Background()

	_, err := svc.Entries(ctx)
	require.NoError(t, err)
	_, err = svc.Entries(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, hits.Load())

	require.NoError(t, svc.Refresh(ctx))
	assert.EqualValues(t, 2, hits.Load())
}

func TestService_Categories(t *testing.T) {
	var hits atomic.Int32
	srv := cmsServer(t, []map[string]any{
		entryJSON("e1", "Food", "Grains", "Soy", ""),
		entryJSON("e2", "Energy", "Fuel", "Diesel", ""),
	}, 10, &hits)
	defer srv.Close()

	svc := NewService(testConfig(srv.URL), srv.Client())
	cats, err := svc.Categories(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "Energy", cats[0].Name)
	assert.Equal(t, "Food", cats[1].Name)
}

func TestService_CategoriesUseFallbackImages(t *testing.T) {
	var hits atomic.Int32
	srv := cmsServer(t, []map[string]any{
		entryJSON("e1", "Food", "Grains", "Soy", "a1"),
		entryJSON("e2", "Food", "Grains", "Corn", ""),
		entryJSON("e3", "Energy", "Fuel", "Diesel", ""),
	}, 10, &hits)
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.FallbackImages = map[string]string{"Grains": "https://img.example.com/grains.jpg"}
	cfg.FallbackImage = "https://img.example.com/default.jpg"

	cats, err := NewService(cfg, srv.Client()).Categories(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 2)

	fuel := cats[0].Subcategories[0].Products
	assert.Equal(t, "https://img.example.com/default.jpg", fuel[0].ImageURL)
	grains := cats[1].Subcategories[0].Products
	assert.Equal(t, "https://images.ctfassets.net/space1/soy.jpg", grains[0].ImageURL)
	assert.Equal(t, "https://img.example.com/grains.jpg", grains[1].ImageURL)
}

func TestService_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "access token invalid", http.StatusUnauthorized)
	}))
	defer srv.Close()

	svc := NewService(testConfig(srv.URL), srv.Client())
	_, err := svc.Entries(context.Background())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Contains(t, apiErr.Body, "access token invalid")
}

func TestService_ProductFallsBackToName(t *testing.T) {
	var hits atomic.Int32
	item := entryJSON("e1", "Food", "Grains", "", "")
	item["fields"].(map[string]any)["name"] = "Soybean"
	srv := cmsServer(t, []map[string]any{item}, 10, &hits)
	defer srv.Close()

	svc := NewService(testConfig(srv.URL), srv.Client())
	entries, err := svc.Entries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Soybean", entries[0].ProductName)
}

func TestNormalizeAssetURL(t *testing.T) {
	tests := map[string]string{
		"//images.ctfassets.net/a.jpg": "https://images.ctfassets.net/a.jpg",
		"https://cdn.example.com/a":    "https://cdn.example.com/a",
		"/local/a.jpg":                 "/local/a.jpg",
		"  //host/b.png ":              "https://host/b.png",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeAssetURL(in), in)
	}
}

func TestOptimizedImageURL(t *testing.T) {
	got := OptimizedImageURL("//images.ctfassets.net/s/soy.jpg", 400, 300, 80)
	assert.Equal(t, "https://images.ctfassets.net/s/soy.jpg?fit=fill&fm=webp&h=300&q=80&w=400", got)

	assert.Equal(t, "https://cdn.example.com/soy.jpg",
		OptimizedImageURL("https://cdn.example.com/soy.jpg", 400, 300, 80))
}
