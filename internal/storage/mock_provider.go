package storage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/JakeFAU/mars-scraper/internal/mars"
)

// MockRecordStore is a mock implementation of mars.RecordStore for testing.
type MockRecordStore struct {
	mock.Mock
}

// Replace is the mock implementation of the Replace method.
func (m *MockRecordStore) Replace(ctx context.Context, rec mars.Record) error {
	args := m.Called(ctx, rec)
	return args.Error(0) //nolint:wrapcheck
}

// Latest is the mock implementation of the Latest method.
func (m *MockRecordStore) Latest(ctx context.Context) (mars.Record, error) {
	args := m.Called(ctx)
	rec, _ := args.Get(0).(mars.Record)
	return rec, args.Error(1) //nolint:wrapcheck
}

// MockBlobStore is a mock implementation of mars.BlobStore for testing.
type MockBlobStore struct {
	mock.Mock
}

// PutObject is the mock implementation of the PutObject method.
func (m *MockBlobStore) PutObject(ctx context.Context, path, contentType string, data []byte) (string, error) {
	args := m.Called(ctx, path, contentType, data)
	return args.String(0), args.Error(1) //nolint:wrapcheck
}
