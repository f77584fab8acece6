// Package indexer builds keyword/variable completion indexes from the table
// database. Each table's index merges the table's own data with everything it
// transitively imports; finished indexes are persisted as index-<table> files
// and cached so shared imports are resolved once per run.
package indexer

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/keyword-index/internal/table"
	apperrors "github.com/Adithya-Monish-Kumar-K/keyword-index/pkg/errors"
)

// Listener is notified after each index is persisted.
type Listener func(Summary)

type cacheEntry struct {
	path   string
	record *IndexRecord
}

// Index owns the cache and worklist for one corpus. It is not safe for
// concurrent use; index separate corpora with separate Index values.
type Index struct {
	indexDir  string
	builtins  []string
	queue     *Queue
	cache     map[string]cacheEntry
	tables    map[string]*table.Record
	context   []Entry
	building  *IndexRecord
	listeners []Listener
	readTable func(path string) (*table.Record, error)
	logger    *slog.Logger
}

type Option func(*Index)

// WithBuiltins sets the library names AddBuiltinToQueue looks for.
func WithBuiltins(names ...string) Option {
	return func(idx *Index) {
		idx.builtins = append([]string(nil), names...)
	}
}

func WithListener(l Listener) Option {
	return func(idx *Index) {
		idx.listeners = append(idx.listeners, l)
	}
}

// New creates an Index that writes into indexDir, creating it if needed.
func New(indexDir string, opts ...Option) (*Index, error) {
	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}
	idx := &Index{
		indexDir:  indexDir,
		builtins:  []string{"BuiltIn"},
		cache:     make(map[string]cacheEntry),
		tables:    make(map[string]*table.Record),
		readTable: table.Read,
		logger:    slog.Default().With("component", "indexer"),
	}
	idx.queue = NewQueue(idx.settled)
	for _, opt := range opts {
		opt(idx)
	}
	return idx, nil
}

// Queue exposes the pending worklist.
func (idx *Index) Queue() *Queue {
	return idx.queue
}

func (idx *Index) IsCached(tableName string) bool {
	_, ok := idx.cache[tableName]
	return ok
}

// settled gates the queue. During a build a table is settled once it is part
// of the record being built, so cached imports are still walked in place;
// between builds it is settled once cached.
func (idx *Index) settled(tableName string) bool {
	if idx.building != nil {
		return idx.building.HasTable(tableName)
	}
	return idx.IsCached(tableName)
}

// CachedPath returns the index file path recorded for tableName.
func (idx *Index) CachedPath(tableName string) (string, bool) {
	entry, ok := idx.cache[tableName]
	return entry.path, ok
}

// CacheLen returns the number of tables indexed during this run.
func (idx *Index) CacheLen() int {
	return len(idx.cache)
}

// IndexPath returns where tableName's index is (or would be) persisted.
func (idx *Index) IndexPath(tableName string) string {
	return filepath.Join(idx.indexDir, IndexFileName(tableName))
}

// ReadTable loads one table file.
func (idx *Index) ReadTable(path string) (*table.Record, error) {
	return idx.readTable(path)
}

// ParseTableData extracts a table's own variables and keyword records.
func (idx *Index) ParseTableData(rec *table.Record, tableName, objectName string) ([]string, []KeywordRecord, error) {
	names, rawArgs := idx.GetKeywords(rec)
	args := make([][]string, len(rawArgs))
	for i, raw := range rawArgs {
		args[i] = GetKwArguments(raw)
	}
	keywords, err := idx.GetKwForIndex(names, args, tableName, objectName)
	if err != nil {
		return nil, nil, err
	}
	return idx.GetVariables(rec), keywords, nil
}

// GetKeywords returns keyword names in declaration order together with each
// keyword's raw argument tokens.
func (idx *Index) GetKeywords(rec *table.Record) ([]string, [][]string) {
	names := rec.Keywords.Names()
	args := make([][]string, 0, len(names))
	for _, name := range names {
		kw, _ := rec.Keywords.Get(name)
		raw := kw.Arguments
		if raw == nil {
			raw = []string{}
		}
		args = append(args, raw)
	}
	return names, args
}

// GetImports returns the table's declared imports followed by its test
// suites, without duplicates.
func (idx *Index) GetImports(rec *table.Record) []string {
	seen := make(map[string]struct{}, len(rec.Imports)+len(rec.TestSuites))
	imports := make([]string, 0, len(rec.Imports)+len(rec.TestSuites))
	for _, list := range [][]string{rec.Imports, rec.TestSuites} {
		for _, imp := range list {
			if imp == "" {
				continue
			}
			if _, ok := seen[imp]; ok {
				continue
			}
			seen[imp] = struct{}{}
			imports = append(imports, imp)
		}
	}
	return imports
}

// GetVariables returns the variables declared directly in the table.
func (idx *Index) GetVariables(rec *table.Record) []string {
	vars := make([]string, len(rec.Variables))
	copy(vars, rec.Variables)
	return vars
}

// GetKwForIndex zips keyword names with their normalised arguments. The two
// slices must have the same length.
func (idx *Index) GetKwForIndex(names []string, args [][]string, tableName, objectName string) ([]KeywordRecord, error) {
	if len(names) != len(args) {
		return nil, fmt.Errorf("table %s: %d keywords, %d argument lists: %w",
			tableName, len(names), len(args), apperrors.ErrArgumentArity)
	}
	records := make([]KeywordRecord, 0, len(names))
	for i, name := range names {
		records = append(records, KeywordRecord{
			Keyword:    name,
			Arguments:  args[i],
			ObjectName: objectName,
			TableName:  tableName,
		})
	}
	return records, nil
}

// AddBuiltinToQueue queues every built-in library table found in dbDir and
// remembers them as context for all later builds.
func (idx *Index) AddBuiltinToQueue(dbDir string) error {
	entries, err := os.ReadDir(dbDir)
	if err != nil {
		return fmt.Errorf("reading table directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		object := table.ObjectName(name)
		if !idx.isBuiltin(object) {
			continue
		}
		if !idx.hasContext(name) {
			idx.context = append(idx.context, Entry{TableName: name, ObjectName: object})
		}
		if idx.queue.Add(name, object, "") {
			idx.logger.Debug("built-in library queued", "table", name, "library", object)
		}
	}
	return nil
}

func (idx *Index) isBuiltin(object string) bool {
	for _, b := range idx.builtins {
		if strings.EqualFold(b, object) {
			return true
		}
	}
	return false
}

func (idx *Index) hasContext(tableName string) bool {
	for _, e := range idx.context {
		if e.TableName == tableName {
			return true
		}
	}
	return false
}

// CreateIndexForTable builds, persists and caches the index for tableName.
// A cached table is returned without any I/O. Callers get a copy of the
// cached record.
//
// Keywords are ordered breadth-first: the table's own, then its direct
// imports in declaration order, then the built-in context, then farther
// imports. The order does not depend on which imports are already cached.
// Entries queued before the call are drained after the table's own closure.
func (idx *Index) CreateIndexForTable(dbDir, tableName string) (*IndexRecord, error) {
	if entry, ok := idx.cache[tableName]; ok {
		return entry.record.clone(), nil
	}
	start := time.Now()

	rec, err := idx.build(dbDir, tableName)
	if err != nil {
		idx.queue.Clear()
		return nil, err
	}

	path := idx.IndexPath(tableName)
	if err := writeIndex(path, rec); err != nil {
		return nil, fmt.Errorf("persisting index for %s: %w", tableName, err)
	}
	idx.cache[tableName] = cacheEntry{path: path, record: rec}

	summary := Summary{
		TableName: tableName,
		IndexPath: path,
		Keywords:  len(rec.Keywords),
		Variables: len(rec.Variables),
		Tables:    len(rec.Tables),
		Duration:  time.Since(start),
	}
	idx.logger.Debug("table indexed",
		"table", tableName,
		"keywords", summary.Keywords,
		"variables", summary.Variables,
		"tables", summary.Tables,
	)
	for _, l := range idx.listeners {
		l(summary)
	}
	return rec.clone(), nil
}

func (idx *Index) build(dbDir, tableName string) (*IndexRecord, error) {
	rec := newIndexRecord()

	root, err := idx.load(dbDir, tableName)
	if err != nil {
		return nil, err
	}

	seeded := idx.queue.Entries()
	idx.queue.Clear()
	idx.building = rec
	defer func() { idx.building = nil }()

	if err := idx.mergeTable(dbDir, rec, tableName, root.FileName, root); err != nil {
		return nil, err
	}
	for _, c := range idx.context {
		idx.queue.Add(c.TableName, c.ObjectName, c.ParentTable)
	}
	if err := idx.drain(dbDir, rec, tableName); err != nil {
		return nil, err
	}

	for _, e := range seeded {
		idx.queue.Add(e.TableName, e.ObjectName, e.ParentTable)
	}
	if err := idx.drain(dbDir, rec, tableName); err != nil {
		return nil, err
	}
	return rec, nil
}

// drain merges queued tables into rec until the queue is empty. Cached tables
// are expanded from their decoded data like any other so their position in
// rec is the same as in a fresh build.
func (idx *Index) drain(dbDir string, rec *IndexRecord, requested string) error {
	for {
		entry, ok := idx.queue.Pop()
		if !ok {
			return nil
		}
		if rec.HasTable(entry.TableName) {
			continue
		}
		data, err := idx.load(dbDir, entry.TableName)
		if err != nil {
			return withRequested(err, requested)
		}
		object := entry.ObjectName
		if object == "" {
			object = data.FileName
		}
		if err := idx.mergeTable(dbDir, rec, entry.TableName, object, data); err != nil {
			return withRequested(err, requested)
		}
	}
}

// mergeTable adds one table's own keywords and variables to rec and queues
// its imports.
func (idx *Index) mergeTable(dbDir string, rec *IndexRecord, tableName, object string, data *table.Record) error {
	vars, keywords, err := idx.ParseTableData(data, tableName, object)
	if err != nil {
		return err
	}
	rec.addTable(tableName)
	rec.Keywords = append(rec.Keywords, keywords...)
	rec.addVariables(vars)

	importerDir := ""
	if data.FilePath != "" {
		importerDir = filepath.Dir(data.FilePath)
	}
	for _, imp := range idx.GetImports(data) {
		impTable, impObject := resolveImport(imp, importerDir)
		idx.queue.Add(impTable, impObject, tableName)
	}
	return nil
}

// load returns the decoded table, reading each table file at most once.
func (idx *Index) load(dbDir, tableName string) (*table.Record, error) {
	if data, ok := idx.tables[tableName]; ok {
		return data, nil
	}
	data, err := idx.ReadTable(filepath.Join(dbDir, tableName))
	if err != nil {
		return nil, apperrors.Table(tableName, err)
	}
	idx.tables[tableName] = data
	return data, nil
}

func resolveImport(identifier, importerDir string) (string, string) {
	if table.IsTableName(identifier) {
		return identifier, table.ObjectName(identifier)
	}
	return table.Resolve(identifier, importerDir)
}

func withRequested(err error, requested string) error {
	var te *apperrors.TableError
	if apperrors.As(err, &te) && te.Requested == "" {
		te.Requested = requested
	}
	return err
}

// IndexAllTables indexes every table in dbDir. Data errors are collected and
// returned together after the remaining tables are indexed; an argument arity
// violation stops the run immediately.
func (idx *Index) IndexAllTables(dbDir string) error {
	entries, err := os.ReadDir(dbDir)
	if err != nil {
		return fmt.Errorf("reading table directory: %w", err)
	}
	if err := idx.AddBuiltinToQueue(dbDir); err != nil {
		return err
	}
	start := time.Now()
	var errs []error
	indexed := 0
	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), ".tmp") {
			continue
		}
		if _, err := idx.CreateIndexForTable(dbDir, entry.Name()); err != nil {
			if apperrors.Is(err, apperrors.ErrArgumentArity) {
				return err
			}
			idx.logger.Error("table indexing failed", "table", entry.Name(), "error", err)
			errs = append(errs, err)
			continue
		}
		indexed++
	}
	idx.logger.Info("corpus indexed",
		"tables", indexed,
		"failed", len(errs),
		"duration", time.Since(start),
	)
	return apperrors.Join(errs...)
}

// GetDataFromCreatedIndex reads back a persisted index.
func (idx *Index) GetDataFromCreatedIndex(indexPath string) ([]KeywordRecord, []string, []string, error) {
	rec, err := ReadIndex(indexPath)
	if err != nil {
		return nil, nil, nil, err
	}
	return rec.Keywords, rec.Variables, rec.Tables, nil
}

// AddTableToIndex queues every table of a previously built index that is not
// cached yet and still exists in dbDir. It returns how many were queued.
func (idx *Index) AddTableToIndex(tables []string, dbDir string) int {
	added := 0
	for _, t := range tables {
		if idx.IsCached(t) {
			continue
		}
		if _, err := os.Stat(filepath.Join(dbDir, t)); err != nil {
			idx.logger.Warn("skipping table missing from database", "table", t, "error", err)
			continue
		}
		if idx.queue.Add(t, table.ObjectName(t), "") {
			added++
		}
	}
	return added
}

// Invalidate forgets tableName's cached index and decoded table so the next
// request re-reads it. Indexes of other tables that merged it are kept.
func (idx *Index) Invalidate(tableName string) {
	delete(idx.cache, tableName)
	delete(idx.tables, tableName)
}

// Reset clears all run state, as if the process had restarted.
func (idx *Index) Reset() {
	idx.cache = make(map[string]cacheEntry)
	idx.tables = make(map[string]*table.Record)
	idx.context = nil
	idx.queue.Clear()
}
