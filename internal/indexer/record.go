package indexer

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// KeywordRecord is one keyword as it appears in an index: its name, display
// arguments, the library/resource it came from and that origin's table.
// It is persisted as a 4-element JSON array.
type KeywordRecord struct {
	Keyword    string
	Arguments  []string
	ObjectName string
	TableName  string
}

func (k KeywordRecord) MarshalJSON() ([]byte, error) {
	args := k.Arguments
	if args == nil {
		args = []string{}
	}
	return json.Marshal([]any{k.Keyword, args, k.ObjectName, k.TableName})
}

func (k *KeywordRecord) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	if len(parts) != 4 {
		return fmt.Errorf("keyword record has %d fields, want 4", len(parts))
	}
	var rec KeywordRecord
	if err := json.Unmarshal(parts[0], &rec.Keyword); err != nil {
		return fmt.Errorf("keyword name: %w", err)
	}
	if err := json.Unmarshal(parts[1], &rec.Arguments); err != nil {
		return fmt.Errorf("keyword %q arguments: %w", rec.Keyword, err)
	}
	if err := json.Unmarshal(parts[2], &rec.ObjectName); err != nil {
		return fmt.Errorf("keyword %q object name: %w", rec.Keyword, err)
	}
	if err := json.Unmarshal(parts[3], &rec.TableName); err != nil {
		return fmt.Errorf("keyword %q table name: %w", rec.Keyword, err)
	}
	*k = rec
	return nil
}

// IndexRecord is the merged result for one table: its own keywords and
// variables plus those of every table it transitively imports. Variables and
// Tables behave as sets; insertion order is kept only for stable output.
type IndexRecord struct {
	Keywords  []KeywordRecord `json:"keyword"`
	Variables []string        `json:"variable"`
	Tables    []string        `json:"tables"`

	varSet   map[string]struct{}
	tableSet map[string]struct{}
}

func newIndexRecord() *IndexRecord {
	return &IndexRecord{
		Keywords:  []KeywordRecord{},
		Variables: []string{},
		Tables:    []string{},
		varSet:    make(map[string]struct{}),
		tableSet:  make(map[string]struct{}),
	}
}

// rebuildSets restores the lookup sets after JSON decoding.
func (r *IndexRecord) rebuildSets() {
	r.varSet = make(map[string]struct{}, len(r.Variables))
	for _, v := range r.Variables {
		r.varSet[v] = struct{}{}
	}
	r.tableSet = make(map[string]struct{}, len(r.Tables))
	for _, t := range r.Tables {
		r.tableSet[t] = struct{}{}
	}
}

// clone copies the slices so callers can modify the result without touching
// r. The lookup sets are shared; they are only written while building.
func (r *IndexRecord) clone() *IndexRecord {
	out := *r
	out.Keywords = slices.Clone(r.Keywords)
	out.Variables = slices.Clone(r.Variables)
	out.Tables = slices.Clone(r.Tables)
	return &out
}

func (r *IndexRecord) HasTable(name string) bool {
	_, ok := r.tableSet[name]
	return ok
}

func (r *IndexRecord) HasVariable(name string) bool {
	_, ok := r.varSet[name]
	return ok
}

func (r *IndexRecord) addTable(name string) {
	if _, ok := r.tableSet[name]; ok {
		return
	}
	r.tableSet[name] = struct{}{}
	r.Tables = append(r.Tables, name)
}

func (r *IndexRecord) addVariables(vars []string) {
	for _, v := range vars {
		if _, ok := r.varSet[v]; ok {
			continue
		}
		r.varSet[v] = struct{}{}
		r.Variables = append(r.Variables, v)
	}
}

// Summary describes a freshly persisted index and is handed to listeners.
type Summary struct {
	TableName string        `json:"table_name"`
	IndexPath string        `json:"index_path"`
	Keywords  int           `json:"keywords"`
	Variables int           `json:"variables"`
	Tables    int           `json:"tables"`
	Duration  time.Duration `json:"duration"`
}
