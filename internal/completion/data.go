package completion

import (
	"github.com/Adithya-Monish-Kumar-K/keyword-index/internal/indexer"
)

// DataFromRecord exposes an index record for matching.
func DataFromRecord(rec *indexer.IndexRecord) *Data {
	if rec == nil {
		return &Data{}
	}
	return &Data{Keywords: rec.Keywords, Variables: rec.Variables}
}

// LoadData reads a persisted index file.
func LoadData(path string) (*Data, error) {
	rec, err := indexer.ReadIndex(path)
	if err != nil {
		return nil, err
	}
	return DataFromRecord(rec), nil
}
