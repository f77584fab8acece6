// Package table models the scanner's per-file output: one JSON record per
// source file or library, stored in the table database directory under a
// deterministic table name.
package table

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	apperrors "github.com/Adithya-Monish-Kumar-K/keyword-index/pkg/errors"
)

// Record is the scanner output for a single source file or library.
type Record struct {
	FileName   string       `json:"file_name"`
	FilePath   string       `json:"file_path,omitempty"`
	Keywords   KeywordTable `json:"keywords"`
	Variables  []string     `json:"variables"`
	Imports    []string     `json:"imports"`
	TestSuites []string     `json:"test_suites,omitempty"`
}

// Keyword holds the raw argument tokens of one keyword as the scanner saw
// them, e.g. "msg=None", "${arg}", "*args".
type Keyword struct {
	Arguments []string `json:"keyword_arguments"`
}

// KeywordTable is a name -> Keyword mapping that remembers declaration order.
// The zero value is an empty table.
type KeywordTable struct {
	names   []string
	entries map[string]Keyword
}

// Set adds or replaces a keyword. A replaced keyword keeps its position.
func (k *KeywordTable) Set(name string, kw Keyword) {
	if k.entries == nil {
		k.entries = make(map[string]Keyword)
	}
	if _, exists := k.entries[name]; !exists {
		k.names = append(k.names, name)
	}
	k.entries[name] = kw
}

func (k *KeywordTable) Get(name string) (Keyword, bool) {
	kw, ok := k.entries[name]
	return kw, ok
}

// Names returns keyword names in declaration order.
func (k *KeywordTable) Names() []string {
	out := make([]string, len(k.names))
	copy(out, k.names)
	return out
}

func (k *KeywordTable) Len() int {
	return len(k.names)
}

// UnmarshalJSON decodes a JSON object while keeping its key order, which
// encoding/json maps discard.
func (k *KeywordTable) UnmarshalJSON(data []byte) error {
	*k = KeywordTable{}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("keywords: expected object, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("keywords: expected string key, got %v", keyTok)
		}
		var kw Keyword
		if err := dec.Decode(&kw); err != nil {
			return fmt.Errorf("keyword %q: %w", name, err)
		}
		k.Set(name, kw)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

func (k KeywordTable) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range k.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(k.entries[name])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Read loads and decodes one table file. A missing file yields ErrNotFound,
// undecodable or structurally invalid content yields ErrMalformedData.
func Read(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("reading table %s: %w", path, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("reading table %s: %w", path, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding table %s: %w: %v", path, apperrors.ErrMalformedData, err)
	}
	if rec.FileName == "" {
		return nil, fmt.Errorf("table %s has no file_name: %w", path, apperrors.ErrMalformedData)
	}
	return &rec, nil
}

// Write stores rec as JSON at path. The scanner owns table creation; this is
// used by tooling and tests that build a table database by hand.
func Write(path string, rec *Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling table %s: %w", rec.FileName, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating table directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing table %s: %w", path, err)
	}
	return nil
}
