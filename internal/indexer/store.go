package indexer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	apperrors "github.com/Adithya-Monish-Kumar-K/keyword-index/pkg/errors"
)

// IndexFilePrefix is prepended to a table name to form its index file name.
const IndexFilePrefix = "index-"

// IndexFileName returns the persisted file name for tableName's index.
func IndexFileName(tableName string) string {
	return IndexFilePrefix + tableName
}

// writeIndex atomically persists rec at path. It writes to a .tmp file first
// and renames on success, so readers never see a partial index.
func writeIndex(path string, rec *IndexRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling index: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp index file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing index file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("syncing index file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing index file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming index file: %w", err)
	}
	return nil
}

// ReadIndex loads a persisted IndexRecord.
func ReadIndex(path string) (*IndexRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("reading index %s: %w", path, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("reading index %s: %w", path, err)
	}
	return DecodeIndex(data)
}

// DecodeIndex parses the JSON form of an IndexRecord.
func DecodeIndex(data []byte) (*IndexRecord, error) {
	rec := newIndexRecord()
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("decoding index: %w: %v", apperrors.ErrMalformedData, err)
	}
	if rec.Keywords == nil {
		rec.Keywords = []KeywordRecord{}
	}
	if rec.Variables == nil {
		rec.Variables = []string{}
	}
	if rec.Tables == nil {
		rec.Tables = []string{}
	}
	rec.rebuildSets()
	return rec, nil
}
