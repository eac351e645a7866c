// Package news exposes the fetch facade: the only operations the consuming
// layer touches. Every operation is cache-first and never returns an error;
// irrecoverable failures degrade to a stale cache entry when one exists, or
// to the documented empty shape.
package news

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"go-news-client/internal/cache/tiered"
	"go-news-client/internal/config"
	"go-news-client/internal/coordinator"
	"go-news-client/internal/models"
	"go-news-client/internal/netquality"
	"go-news-client/internal/normalize"
)

// featuredCount is how many posts the featured feed returns.
const featuredCount = 3

// featuredSource is the fixed source descriptor stamped onto featured posts.
const featuredSource = "Top Stories"

// searchMinLength is the minimum query length before a network call is made.
const searchMinLength = 3

// Service is the fetch facade. Constructed once at process start and shared;
// tests construct a fresh instance per case.
type Service struct {
	cfg       *config.Config
	coord     *coordinator.Coordinator
	cache     *tiered.Cache
	norm      *normalize.Normalizer
	estimator *netquality.Estimator
	logger    *zap.Logger

	mu          sync.Mutex
	subscribers map[int]func(Snapshot)
	nextSubID   int
}

// Snapshot is the diagnostic view returned by Metrics and fanned out to
// subscribers.
type Snapshot struct {
	Requests            int64   `json:"requests"`
	CacheHits           int64   `json:"cacheHits"`
	Timeouts            int64   `json:"timeouts"`
	Retries             int64   `json:"retries"`
	AvgResponseTimeMs   float64 `json:"avgResponseTime"`
	CacheHitRatePercent float64 `json:"cacheHitRatePercent"`
	ConnectionQuality   string  `json:"connectionQuality"`
	CacheSize           int     `json:"cacheSize"`
}

// New creates the facade.
func New(cfg *config.Config, coord *coordinator.Coordinator, cache *tiered.Cache, norm *normalize.Normalizer, estimator *netquality.Estimator, logger *zap.Logger) *Service {
	return &Service{
		cfg:         cfg,
		coord:       coord,
		cache:       cache,
		norm:        norm,
		estimator:   estimator,
		logger:      logger,
		subscribers: make(map[int]func(Snapshot)),
	}
}

// GetLatestNews returns page of the unfiltered feed.
func (s *Service) GetLatestNews(ctx context.Context, page int) models.PostPage {
	return s.fetchPage(ctx, s.postsURL(page, s.cfg.API.PageSize, "", 0), page)
}

// GetFeaturedNews returns the most recent posts annotated with the featured
// source descriptor.
func (s *Service) GetFeaturedNews(ctx context.Context) []models.NormalizedPost {
	result := s.fetchPage(ctx, s.postsURL(1, featuredCount, "", 0), 1)

	featured := make([]models.NormalizedPost, len(result.Posts))
	for i, post := range result.Posts {
		post.Source = featuredSource
		featured[i] = post
	}
	return featured
}

// GetPostsByCategory returns a page filtered to the given UI category id.
// The reserved id 1 and any unmapped id take the latest-news path; otherwise
// the category slug is resolved to the remote taxonomy id first.
func (s *Service) GetPostsByCategory(ctx context.Context, categoryID, page int) models.PostPage {
	category, ok := models.Categories[categoryID]
	if categoryID == models.LatestCategoryID || !ok {
		return s.GetLatestNews(ctx, page)
	}

	remoteID, ok := s.resolveCategoryID(ctx, category.Slug)
	if !ok {
		s.logger.Warn("category resolution failed, returning empty page",
			zap.String("slug", category.Slug))
		return models.EmptyPage()
	}

	return s.fetchPage(ctx, s.postsURL(page, s.cfg.API.PageSize, "", remoteID), page)
}

// SearchPosts returns a page matching query. Queries shorter than 3
// characters return the empty shape without touching the network.
func (s *Service) SearchPosts(ctx context.Context, query string, page int) models.PostPage {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < searchMinLength {
		return models.EmptyPage()
	}
	return s.fetchPage(ctx, s.postsURL(page, s.cfg.API.PageSize, query, 0), page)
}

// Metrics returns the current diagnostic snapshot.
func (s *Service) Metrics() Snapshot {
	net := s.estimator.Snapshot()
	hits, misses := s.cache.Stats()

	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = float64(hits) / float64(hits+misses) * 100
	}

	return Snapshot{
		Requests:            net.TotalRequests,
		CacheHits:           hits,
		Timeouts:            net.TimeoutCount,
		Retries:             s.coord.Retries(),
		AvgResponseTimeMs:   net.AvgResponseMs,
		CacheHitRatePercent: hitRate,
		ConnectionQuality:   string(s.estimator.Quality()),
		CacheSize:           s.cache.Len(),
	}
}

// Subscribe registers fn for synchronous snapshot fan-out after each
// completed operation and returns the id to unsubscribe with. No ordering
// between subscribers is guaranteed.
func (s *Service) Subscribe(fn func(Snapshot)) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	s.subscribers[s.nextSubID] = fn
	return s.nextSubID
}

// Unsubscribe removes a subscriber.
func (s *Service) Unsubscribe(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscribers, id)
}

func (s *Service) notify() {
	s.mu.Lock()
	fns := make([]func(Snapshot), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	if len(fns) == 0 {
		return
	}
	snapshot := s.Metrics()
	for _, fn := range fns {
		fn(snapshot)
	}
}

// fetchPage serves a posts URL cache-first. On fetch failure a stale expired
// entry is explicitly preferred over total failure.
func (s *Service) fetchPage(ctx context.Context, rawURL string, page int) models.PostPage {
	defer s.notify()

	key := coordinator.NormalizeKey(rawURL)
	if cached, ok := s.cache.Get(tiered.TierGeneral, key); ok {
		if result, ok := cached.(models.PostPage); ok {
			return result
		}
	}

	var raw []models.RawPost
	totalPages, err := s.coord.FetchJSON(ctx, rawURL, &raw)
	if err != nil {
		s.logger.Warn("fetch failed", zap.String("url", rawURL), zap.Error(err))
		if stale, ok := s.cache.GetStale(tiered.TierGeneral, key); ok {
			if result, ok := stale.(models.PostPage); ok {
				s.logger.Info("serving stale cache entry", zap.String("url", rawURL))
				return result
			}
		}
		return models.EmptyPage()
	}

	result := models.PostPage{
		Posts:      s.norm.Posts(raw),
		TotalPages: totalPages,
		HasMore:    page < totalPages,
	}
	s.cache.Set(tiered.TierGeneral, key, result, models.PriorityNormal)
	return result
}

// resolveCategoryID maps a category slug to the remote taxonomy id, caching
// the answer in the category tier.
func (s *Service) resolveCategoryID(ctx context.Context, slug string) (int, bool) {
	key := "slug:" + slug
	if cached, ok := s.cache.Get(tiered.TierCategory, key); ok {
		if id, ok := cached.(int); ok {
			return id, true
		}
	}

	query := url.Values{}
	query.Set("slug", slug)
	categoriesURL := s.cfg.API.BaseURL + "/wp-json/wp/v2/categories?" + query.Encode()

	var terms []models.Term
	if _, err := s.coord.FetchJSON(ctx, categoriesURL, &terms); err != nil {
		s.logger.Warn("taxonomy lookup failed", zap.String("slug", slug), zap.Error(err))
		return 0, false
	}
	if len(terms) == 0 {
		return 0, false
	}

	s.cache.Set(tiered.TierCategory, key, terms[0].ID, models.PriorityHigh)
	return terms[0].ID, true
}

// postsURL builds a posts collection URL with embedded related resources.
func (s *Service) postsURL(page, perPage int, search string, remoteCategoryID int) string {
	query := url.Values{}
	query.Set("_embed", "true")
	query.Set("page", strconv.Itoa(page))
	query.Set("per_page", strconv.Itoa(perPage))
	if search != "" {
		query.Set("search", search)
	}
	if remoteCategoryID > 0 {
		query.Set("categories", fmt.Sprintf("%d", remoteCategoryID))
	}
	return s.cfg.API.BaseURL + "/wp-json/wp/v2/posts?" + query.Encode()
}
