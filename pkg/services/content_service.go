package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"export-site/pkg/catalog"
	"export-site/pkg/config"
	"export-site/pkg/models"
)

const (
	entriesCacheKey = "entries"
	// pageLimit is the largest page the delivery API hands out
	pageLimit = 1000
)

// APIError is returned when the CMS answers with a non-200 status
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("CMS API error (status %d): %s", e.Status, e.Body)
}

// Service handles catalog content fetched from the CMS
type Service struct {
	config     *config.Config
	client     *http.Client
	entryCache *cache.Cache
	mu         sync.RWMutex
}

var (
	// defaultService is the singleton instance of Service
	defaultService *Service
	once           sync.Once
)

// NewService creates a service for cfg. A nil client uses a client with a
// 30 second timeout.
func NewService(cfg *config.Config, client *http.Client) *Service {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	expiration := cfg.CacheDuration
	if expiration <= 0 {
		expiration = 5 * time.Minute
	}
	return &Service{
		config:     cfg,
		client:     client,
		entryCache: cache.New(expiration, 2*expiration),
	}
}

// InitService initializes the shared service with the given configuration
func InitService(cfg *config.Config) {
	once.Do(func() {
		defaultService = NewService(cfg, nil)
	})
}

// Default returns the shared service created by InitService
func Default() *Service {
	return defaultService
}

// GetCategories returns the grouped catalog
func GetCategories(ctx context.Context) ([]models.Category, error) {
	return defaultService.Categories(ctx)
}

// Categories returns the grouped catalog
func (s *Service) Categories(ctx context.Context) ([]models.Category, error) {
	entries, err := s.Entries(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.GroupWith(entries, catalog.Fallbacks{
		Subcategory: s.config.FallbackImages,
		Default:     s.config.FallbackImage,
	}), nil
}

// Entries returns all catalog entries, from cache when possible
func (s *Service) Entries(ctx context.Context) ([]models.CatalogEntry, error) {
	s.mu.RLock()
	if cached, found := s.entryCache.Get(entriesCacheKey); found {
		s.mu.RUnlock()
		slog.Debug("Using cached catalog entries")
		return cached.([]models.CatalogEntry), nil
	}
	s.mu.RUnlock()

	return s.load(ctx)
}

// Refresh drops the cached entries and fetches them again
func (s *Service) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.entryCache.Delete(entriesCacheKey)
	s.mu.Unlock()

	_, err := s.load(ctx)
	return err
}

func (s *Service) load(ctx context.Context) ([]models.CatalogEntry, error) {
	slog.Info("Fetching catalog entries", slog.String("content_type", s.config.CMS.ContentType))

	var entries []models.CatalogEntry
	skip := 0
	for {
		page, err := s.fetchPage(ctx, skip)
		if err != nil {
			return nil, err
		}
		entries = append(entries, page.toEntries()...)

		skip += len(page.Items)
		if len(page.Items) == 0 || skip >= page.Total {
			break
		}
	}

	s.mu.Lock()
	s.entryCache.Set(entriesCacheKey, entries, cache.DefaultExpiration)
	s.mu.Unlock()

	slog.Info("Fetched catalog entries", slog.Int("count", len(entries)))
	return entries, nil
}

func (s *Service) entriesURL(skip int) string {
	cms := s.config.CMS
	q := url.Values{}
	q.Set("content_type", cms.ContentType)
	q.Set("include", "1")
	q.Set("skip", strconv.Itoa(skip))
	q.Set("limit", strconv.Itoa(pageLimit))
	return fmt.Sprintf("%s/spaces/%s/environments/%s/entries?%s",
		strings.TrimSuffix(cms.BaseURL, "/"),
		url.PathEscape(cms.SpaceID),
		url.PathEscape(cms.Environment),
		q.Encode())
}

func (s *Service) fetchPage(ctx context.Context, skip int) (*entriesResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.entriesURL(skip), nil)
	if err != nil {
		return nil, fmt.Errorf("error creating entries request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.config.CMS.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch entries: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}

	var page entriesResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode entries: %w", err)
	}
	return &page, nil
}

// entriesResponse is the subset of the delivery API collection we consume
type entriesResponse struct {
	Total int     `json:"total"`
	Skip  int     `json:"skip"`
	Limit int     `json:"limit"`
	Items []entry `json:"items"`

	Includes struct {
		Asset []assetResource `json:"Asset"`
	} `json:"includes"`
}

type sys struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	LinkType string `json:"linkType"`
}

type entry struct {
	Sys    sys `json:"sys"`
	Fields struct {
		Name         string `json:"name"`
		Category     string `json:"category"`
		Subcategory  string `json:"subcategory"`
		Product      string `json:"product"`
		ProductMedia *struct {
			Sys sys `json:"sys"`
		} `json:"productMedia"`
	} `json:"fields"`
}

type assetResource struct {
	Sys    sys `json:"sys"`
	Fields struct {
		Title string `json:"title"`
		File  struct {
			URL         string `json:"url"`
			FileName    string `json:"fileName"`
			ContentType string `json:"contentType"`
		} `json:"file"`
	} `json:"fields"`
}

func (r *entriesResponse) toEntries() []models.CatalogEntry {
	assets := make(map[string]*models.Asset, len(r.Includes.Asset))
	for _, a := range r.Includes.Asset {
		if a.Fields.File.URL == "" {
			continue
		}
		assets[a.Sys.ID] = &models.Asset{
			URL:         NormalizeAssetURL(a.Fields.File.URL),
			FileName:    a.Fields.File.FileName,
			ContentType: a.Fields.File.ContentType,
			Title:       a.Fields.Title,
		}
	}

	entries := make([]models.CatalogEntry, 0, len(r.Items))
	for _, item := range r.Items {
		name := item.Fields.Product
		if name == "" {
			name = item.Fields.Name
		}
		e := models.CatalogEntry{
			ID:          item.Sys.ID,
			Category:    item.Fields.Category,
			Subcategory: item.Fields.Subcategory,
			ProductName: name,
		}
		if link := item.Fields.ProductMedia; link != nil {
			e.Media = assets[link.Sys.ID]
		}
		entries = append(entries, e)
	}
	return entries
}
