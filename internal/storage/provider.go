// Package storage holds the pieces shared by the record and blob store
// implementations in its subpackages.
package storage

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/JakeFAU/mars-scraper/internal/mars"
)

// DefaultTable is the record table used when none is configured.
const DefaultTable = "mars_records"

// RecordID is the primary key of the single stored row.
const RecordID = 1

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// TableName applies the default and rejects names that cannot be interpolated
// into SQL safely.
func TableName(table string) (string, error) {
	if table == "" {
		table = DefaultTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// EncodeRecord serializes a record into the JSON document persisted by SQL stores.
func EncodeRecord(rec mars.Record) ([]byte, error) {
	doc, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	return doc, nil
}

// DecodeRecord is the inverse of EncodeRecord.
func DecodeRecord(doc []byte) (mars.Record, error) {
	var rec mars.Record
	if err := json.Unmarshal(doc, &rec); err != nil {
		return mars.Record{}, fmt.Errorf("unmarshal record: %w", err)
	}
	return rec, nil
}
