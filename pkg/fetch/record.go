package fetch

import (
	"strings"
)

// Record is the normalized form of one product detail response.
// A Record is only ever created from a fully successful fetch; partial
// responses never become Records.
type Record struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Slug        string   `json:"slug"`
	Price       float64  `json:"price"`
	Description string   `json:"description"`
	ImageURLs   []string `json:"image_urls"`
}

// productPayload mirrors the catalog API response shape.
type productPayload struct {
	Name        string  `json:"name"`
	URLKey      string  `json:"url_key"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Images      []struct {
		BaseURL string `json:"base_url"`
	} `json:"images"`
}

var newlineReplacer = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// normalizeDescription strips embedded newlines and surrounding whitespace.
func normalizeDescription(s string) string {
	return strings.TrimSpace(newlineReplacer.Replace(s))
}

// toRecord converts a decoded payload into a Record for the requested ID.
// The checkpoint and the output artifacts key on the ID the caller asked
// for, not whatever the payload echoes back.
func (p *productPayload) toRecord(id string) *Record {
	urls := make([]string, 0, len(p.Images))
	for _, img := range p.Images {
		urls = append(urls, img.BaseURL)
	}

	return &Record{
		ID:          id,
		Name:        p.Name,
		Slug:        p.URLKey,
		Price:       p.Price,
		Description: normalizeDescription(p.Description),
		ImageURLs:   urls,
	}
}
