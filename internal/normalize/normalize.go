// Package normalize maps raw content API posts into the flat view-model
// shape consumers depend on. Image and category sub-lookups go through the
// tiered cache so repeated posts resolve without re-walking the embedded
// resources.
package normalize

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"go-news-client/internal/cache/tiered"
	"go-news-client/internal/models"
)

// PlaceholderImageURL is substituted when no usable image can be resolved.
const PlaceholderImageURL = "https://placehold.co/600x400?text=News"

// DefaultCategory is substituted when no taxonomy term can be resolved.
const DefaultCategory = "General"

// excerptMaxLen bounds list-view excerpts.
const excerptMaxLen = 200

// sizePreference is the media-details resolution order.
var sizePreference = []string{"medium_large", "large", "medium", "thumbnail"}

// dateLayouts cover the timestamp formats the API emits.
var dateLayouts = []string{"2006-01-02T15:04:05", time.RFC3339}

// Normalizer converts raw posts to normalized ones. No single-field failure
// ever fails a post; each resolution chain ends in a documented fallback.
type Normalizer struct {
	cache  *tiered.Cache
	logger *zap.Logger
}

// New creates a normalizer backed by the shared cache.
func New(cache *tiered.Cache, logger *zap.Logger) *Normalizer {
	return &Normalizer{cache: cache, logger: logger}
}

// Posts normalizes a page of raw posts.
func (n *Normalizer) Posts(raw []models.RawPost) []models.NormalizedPost {
	posts := make([]models.NormalizedPost, 0, len(raw))
	for i := range raw {
		posts = append(posts, n.Post(&raw[i]))
	}
	return posts
}

// Post normalizes a single raw post.
func (n *Normalizer) Post(p *models.RawPost) models.NormalizedPost {
	content := PlainText(p.Content.Rendered)

	excerpt := Truncate(StripHTML(p.Excerpt.Rendered), excerptMaxLen)
	if excerpt == "" {
		excerpt = Truncate(StripHTML(p.Content.Rendered), excerptMaxLen)
	}

	readTime := ReadTimeFromLength(len(excerpt))
	if content != "" {
		readTime = ReadTimeFromWords(content)
	}

	return models.NormalizedPost{
		ID:              p.ID,
		Headline:        StripHTML(p.Title.Rendered),
		Excerpt:         excerpt,
		Content:         content,
		Category:        n.category(p),
		ImageURL:        n.imageURL(p),
		PublishedAt:     parseDate(p.Date),
		ReadTimeMinutes: readTime,
		Slug:            p.Slug,
		Link:            p.Link,
		Author:          authorName(p),
	}
}

// imageURL resolves the post image: direct source URL, then size variants in
// preference order, then the media GUID, then the placeholder. The result is
// cached in the image tier keyed by media id.
func (n *Normalizer) imageURL(p *models.RawPost) string {
	if p.Embedded == nil || len(p.Embedded.Media) == 0 {
		return PlaceholderImageURL
	}
	media := &p.Embedded.Media[0]

	cacheKey := fmt.Sprintf("media:%d", media.ID)
	if cached, ok := n.cache.Get(tiered.TierImage, cacheKey); ok {
		if url, ok := cached.(string); ok {
			return url
		}
	}

	url := resolveImage(media)
	n.cache.Set(tiered.TierImage, cacheKey, url, models.PriorityHigh)
	return url
}

func resolveImage(media *models.Media) string {
	if media.SourceURL != "" {
		return media.SourceURL
	}
	if media.MediaDetails != nil {
		for _, name := range sizePreference {
			if size, ok := media.MediaDetails.Sizes[name]; ok && size.SourceURL != "" {
				return size.SourceURL
			}
		}
	}
	if media.GUID != nil && media.GUID.Rendered != "" {
		return media.GUID.Rendered
	}
	return PlaceholderImageURL
}

// category resolves the post category: embedded term matching the post's
// first category id, then the first embedded term of any kind, then
// "General". The result is cached in the category tier keyed by post id.
func (n *Normalizer) category(p *models.RawPost) string {
	cacheKey := fmt.Sprintf("post:%d", p.ID)
	if cached, ok := n.cache.Get(tiered.TierCategory, cacheKey); ok {
		if name, ok := cached.(string); ok {
			return name
		}
	}

	name := resolveCategory(p)
	n.cache.Set(tiered.TierCategory, cacheKey, name, models.PriorityHigh)
	return name
}

func resolveCategory(p *models.RawPost) string {
	if p.Embedded == nil || len(p.Embedded.Terms) == 0 {
		return DefaultCategory
	}

	if len(p.Categories) > 0 {
		want := p.Categories[0]
		for _, group := range p.Embedded.Terms {
			for _, term := range group {
				if term.ID == want && term.Name != "" {
					return term.Name
				}
			}
		}
	}

	for _, group := range p.Embedded.Terms {
		for _, term := range group {
			if term.Name != "" {
				return term.Name
			}
		}
	}
	return DefaultCategory
}

func authorName(p *models.RawPost) string {
	if p.Embedded == nil || len(p.Embedded.Authors) == 0 {
		return ""
	}
	return p.Embedded.Authors[0].Name
}

func parseDate(s string) time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
