package newsapi

import "encoding/json"

// Articles stay as raw bytes so each record can carry the provider's
// payload verbatim; the typed article view is decoded per item.
type searchResponse struct {
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	Articles []json.RawMessage `json:"articles"`
}

type article struct {
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	Content     *string  `json:"content"`
	Summary     *string  `json:"summary"`
	Author      *string  `json:"author"`
	ImageURL    *string  `json:"imageUrl"`
	PublishedAt string   `json:"publishedAt"`
	Tags        []string `json:"tags"`
	Section     *string  `json:"section"`
}
