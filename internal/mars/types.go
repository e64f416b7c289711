// Package mars defines the record model and the ports shared across subsystems.
package mars

import (
	"errors"
	"time"
)

// ErrNoRecord is returned by a RecordStore that has never been written.
var ErrNoRecord = errors.New("no record stored")

// Record is the single aggregated document produced by one scrape.
type Record struct {
	NewsTitle     *string      `json:"news_title"`
	NewsParagraph *string      `json:"news_paragraph"`
	FeaturedImage *string      `json:"featured_image"`
	Facts         *Facts       `json:"facts"`
	Hemispheres   []Hemisphere `json:"hemispheres"`
	LastModified  time.Time    `json:"last_modified"`
}

// Fact is one (description, value) row of the facts table.
type Fact struct {
	Description string `json:"description"`
	Value       string `json:"value"`
}

// Facts holds the normalized table rows along with the rendered HTML fragment.
type Facts struct {
	Rows []Fact `json:"rows"`
	HTML string `json:"html"`
}

// Lookup returns the value stored under description.
func (f *Facts) Lookup(description string) (string, bool) {
	if f == nil {
		return "", false
	}
	for _, row := range f.Rows {
		if row.Description == description {
			return row.Value, true
		}
	}
	return "", false
}

// Hemisphere is a titled full-resolution hemisphere image.
type Hemisphere struct {
	Title  string `json:"title"`
	ImgURL string `json:"img_url"`
}
