package mars

import (
	"context"
	"time"
)

// Browser opens browser-automation sessions.
type Browser interface {
	Open(ctx context.Context) (Session, error)
}

// Session is one open browser context. It is owned by a single scrape and handed
// to each extractor in turn; extractors never keep it past their own call.
type Session interface {
	// Visit navigates to url and waits for the document body.
	Visit(ctx context.Context, url string) error
	// WaitFor reports whether selector appears within timeout. Absence is not an error.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) bool
	// ClickNth clicks the element addressed by loc. It returns an error wrapping
	// ErrNoSuchElement when fewer elements match.
	ClickNth(ctx context.Context, loc Locator) error
	// HTML returns a snapshot of the current document.
	HTML(ctx context.Context) (string, error)
	// Back navigates one step back in history.
	Back(ctx context.Context) error
	// Close releases the browser context.
	Close() error
}

// DocumentFetcher retrieves a document directly, without a browser.
type DocumentFetcher interface {
	FetchDocument(ctx context.Context, url string) ([]byte, error)
}

// RecordStore persists the single current Record.
type RecordStore interface {
	// Replace overwrites the stored record unconditionally, creating it if absent.
	Replace(ctx context.Context, record Record) error
	// Latest returns the stored record or ErrNoRecord.
	Latest(ctx context.Context) (Record, error)
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces scrape IDs.
type IDGenerator interface {
	NewID() (string, error)
}
