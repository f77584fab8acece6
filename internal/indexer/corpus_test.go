package indexer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/keyword-index/internal/table"
	"github.com/stretchr/testify/require"
)

// testCorpus is a scanned suite tree:
//
//	test_a.robot -> common.robot, resource_a.robot
//	test_b.robot -> common.robot, resource_b.robot
//	common.robot -> Selenium2Library
//	resource_a.robot -> OperatingSystem
//	resource_b.robot -> OperatingSystem
//
// plus the BuiltIn library, eight tables in total.
type testCorpus struct {
	dbDir    string
	suiteDir string
}

type kwDef struct {
	name string
	args []string
}

func newTestCorpus(t testing.TB) *testCorpus {
	t.Helper()
	root := t.TempDir()
	c := &testCorpus{
		dbDir:    filepath.Join(root, "db"),
		suiteDir: filepath.Join(root, "suite"),
	}
	require.NoError(t, os.MkdirAll(c.dbDir, 0o755))

	c.writeLib(t, "BuiltIn",
		[]kwDef{
			{"Run Keyword And Expect Error", []string{"expected_error", "name", "*args"}},
			{"Log", []string{"message", "level=INFO"}},
			{"Should Be Equal", []string{"first", "second", "msg=None", "values=True"}},
		},
		[]string{"${/}", "${OUTPUT_FILE}", "@{TEST_TAGS}", "&{SUITE_METADATA}"},
	)
	c.writeLib(t, "OperatingSystem",
		[]kwDef{{"Create File", []string{"path", "content=", "encoding=UTF-8"}}},
		nil,
	)
	c.writeLib(t, "Selenium2Library",
		[]kwDef{
			{"Open Browser", []string{"url", "browser=firefox", "alias=None"}},
			{"Get Cookies", nil},
			{"Set Window Position", []string{"x", "y"}},
		},
		nil,
	)
	c.writeSuite(t, "common.robot",
		[]kwDef{{"Common Keyword 2", nil}, {"common Keyword 1", nil}},
		[]string{"${COMMON_VARIABLE_1}", "${COMMON_VARIABLE_2}"},
		[]string{"Selenium2Library"},
	)
	c.writeSuite(t, "resource_a.robot",
		[]kwDef{{"Resource A Keyword 1", []string{"${kwa1}"}}, {"resource A Keyword 2", nil}},
		[]string{"${RESOURCE_A}"},
		[]string{"OperatingSystem"},
	)
	c.writeSuite(t, "resource_b.robot",
		[]kwDef{{"Resource B Keyword 2", []string{"${kwb1}"}}, {"Resource B Keyword 1", nil}},
		[]string{"${RESOURCE_B}"},
		[]string{"OperatingSystem"},
	)
	c.writeSuite(t, "test_a.robot",
		[]kwDef{{"Test A Keyword", nil}},
		[]string{"${TEST_A}"},
		[]string{"common.robot", "resource_a.robot"},
	)
	c.writeSuite(t, "test_b.robot",
		nil,
		[]string{"${TEST_B}"},
		[]string{filepath.Join(c.suiteDir, "common.robot"), "resource_b.robot"},
	)
	return c
}

func (c *testCorpus) writeLib(t testing.TB, name string, kws []kwDef, vars []string) {
	t.Helper()
	rec := &table.Record{FileName: name, Variables: vars}
	for _, kw := range kws {
		rec.Keywords.Set(kw.name, table.Keyword{Arguments: kw.args})
	}
	require.NoError(t, table.Write(filepath.Join(c.dbDir, table.LibTableName(name)), rec))
}

func (c *testCorpus) writeSuite(t testing.TB, file string, kws []kwDef, vars, imports []string) {
	t.Helper()
	path := filepath.Join(c.suiteDir, file)
	rec := &table.Record{FileName: file, FilePath: path, Variables: vars, Imports: imports}
	for _, kw := range kws {
		rec.Keywords.Set(kw.name, table.Keyword{Arguments: kw.args})
	}
	require.NoError(t, table.Write(filepath.Join(c.dbDir, table.RFTableName(path)), rec))
}

func (c *testCorpus) suite(file string) string {
	return table.RFTableName(filepath.Join(c.suiteDir, file))
}

func (c *testCorpus) lib(name string) string {
	return table.LibTableName(name)
}

func (c *testCorpus) read(t testing.TB, tableName string) *table.Record {
	t.Helper()
	rec, err := table.Read(filepath.Join(c.dbDir, tableName))
	require.NoError(t, err)
	return rec
}

func newTestIndex(t testing.TB, opts ...Option) *Index {
	t.Helper()
	idx, err := New(filepath.Join(t.TempDir(), "index"), opts...)
	require.NoError(t, err)
	return idx
}

func keywordNames(rec *IndexRecord) []string {
	names := make([]string, 0, len(rec.Keywords))
	for _, kw := range rec.Keywords {
		names = append(names, kw.Keyword)
	}
	return names
}

func countByTable(rec *IndexRecord) map[string]int {
	counts := make(map[string]int)
	for _, kw := range rec.Keywords {
		counts[kw.TableName]++
	}
	return counts
}
