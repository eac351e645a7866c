package models

import "time"

// Rendered is the {"rendered": "..."} wrapper the content API uses for
// HTML-bearing fields.
type Rendered struct {
	Rendered string `json:"rendered"`
}

// MediaSize is a single size variant of an uploaded image.
type MediaSize struct {
	SourceURL string `json:"source_url"`
}

// MediaDetails holds the size variants of a media object.
type MediaDetails struct {
	Sizes map[string]MediaSize `json:"sizes,omitempty"`
}

// Media is an embedded featured-media object.
type Media struct {
	ID           int           `json:"id"`
	SourceURL    string        `json:"source_url"`
	MediaDetails *MediaDetails `json:"media_details,omitempty"`
	GUID         *Rendered     `json:"guid,omitempty"`
}

// Term is an embedded taxonomy term (category or tag).
type Term struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Taxonomy string `json:"taxonomy"`
}

// Author is an embedded author object.
type Author struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Embedded carries the optional related resources the API inlines when
// requested with _embed. Every field may be absent; the normalizer has a
// documented fallback for each.
type Embedded struct {
	Media   []Media  `json:"wp:featuredmedia,omitempty"`
	Terms   [][]Term `json:"wp:term,omitempty"`
	Authors []Author `json:"author,omitempty"`
}

// RawPost is a post as returned by the content API.
type RawPost struct {
	ID            int       `json:"id"`
	Date          string    `json:"date"`
	Slug          string    `json:"slug"`
	Link          string    `json:"link"`
	GUID          *Rendered `json:"guid,omitempty"`
	Title         Rendered  `json:"title"`
	Content       Rendered  `json:"content"`
	Excerpt       Rendered  `json:"excerpt"`
	AuthorID      int       `json:"author"`
	FeaturedMedia int       `json:"featured_media"`
	Categories    []int     `json:"categories"`
	Embedded      *Embedded `json:"_embedded,omitempty"`
}

// NormalizedPost is the flat shape handed to consumers. Nothing outside this
// package may depend on the raw API shapes.
type NormalizedPost struct {
	ID              int       `json:"id"`
	Headline        string    `json:"headline"`
	Excerpt         string    `json:"excerpt"`
	Content         string    `json:"content"`
	Category        string    `json:"category"`
	ImageURL        string    `json:"imageUrl"`
	PublishedAt     time.Time `json:"publishedAt"`
	ReadTimeMinutes int       `json:"readTimeMinutes"`
	Slug            string    `json:"slug"`
	Link            string    `json:"link"`
	Author          string    `json:"author"`
	Source          string    `json:"source,omitempty"`
}

// PostPage is one page of normalized posts.
type PostPage struct {
	Posts      []NormalizedPost `json:"posts"`
	TotalPages int              `json:"totalPages"`
	HasMore    bool             `json:"hasMore"`
}

// EmptyPage is the documented zero shape returned on irrecoverable failure.
func EmptyPage() PostPage {
	return PostPage{Posts: []NormalizedPost{}, TotalPages: 0, HasMore: false}
}

// Category maps a UI-facing category id to API query parameters.
type Category struct {
	Slug  string
	Title string
}

// LatestCategoryID is reserved for the unfiltered latest/all feed.
const LatestCategoryID = 1

// Categories is the static table of UI-facing categories. Remote taxonomy ids
// are resolved from the slug at fetch time and cached.
var Categories = map[int]Category{
	LatestCategoryID: {Slug: "latest", Title: "Latest"},
	2:                {Slug: "business", Title: "Business"},
	3:                {Slug: "technology", Title: "Technology"},
	4:                {Slug: "sports", Title: "Sports"},
	5:                {Slug: "entertainment", Title: "Entertainment"},
	6:                {Slug: "health", Title: "Health"},
	7:                {Slug: "science", Title: "Science"},
	8:                {Slug: "world", Title: "World"},
}
