package table

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/keyword-index/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeywordTableKeepsDeclarationOrder(t *testing.T) {
	raw := `{"Resource B Keyword 2": {"keyword_arguments": ["${kwb1}"]},
	         "Resource B Keyword 1": {"keyword_arguments": []},
	         "A First": {"keyword_arguments": ["x=1"]}}`
	var kt KeywordTable
	require.NoError(t, json.Unmarshal([]byte(raw), &kt))

	assert.Equal(t, []string{"Resource B Keyword 2", "Resource B Keyword 1", "A First"}, kt.Names())
	kw, ok := kt.Get("A First")
	require.True(t, ok)
	assert.Equal(t, []string{"x=1"}, kw.Arguments)

	out, err := json.Marshal(kt)
	require.NoError(t, err)
	var again KeywordTable
	require.NoError(t, json.Unmarshal(out, &again))
	assert.Equal(t, kt.Names(), again.Names())
}

func TestKeywordTableNullAndInvalid(t *testing.T) {
	var kt KeywordTable
	require.NoError(t, json.Unmarshal([]byte(`null`), &kt))
	assert.Equal(t, 0, kt.Len())

	assert.Error(t, json.Unmarshal([]byte(`["not", "an", "object"]`), &kt))
}

func TestKeywordTableSetReplaceKeepsPosition(t *testing.T) {
	var kt KeywordTable
	kt.Set("a", Keyword{})
	kt.Set("b", Keyword{})
	kt.Set("a", Keyword{Arguments: []string{"x"}})

	assert.Equal(t, []string{"a", "b"}, kt.Names())
	kw, _ := kt.Get("a")
	assert.Equal(t, []string{"x"}, kw.Arguments)
}

func TestReadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Read(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"file_name": `), 0o644))
	_, err = Read(bad)
	assert.ErrorIs(t, err, apperrors.ErrMalformedData)

	noName := filepath.Join(dir, "noname.json")
	require.NoError(t, os.WriteFile(noName, []byte(`{"keywords": {}}`), 0o644))
	_, err = Read(noName)
	assert.ErrorIs(t, err, apperrors.ErrMalformedData)
}

func TestWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.json")
	rec := &Record{FileName: "common.robot", Variables: []string{"${A}"}, Imports: []string{"BuiltIn"}}
	rec.Keywords.Set("Common Keyword", Keyword{Arguments: []string{"a"}})
	require.NoError(t, Write(path, rec))

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, "common.robot", got.FileName)
	assert.Equal(t, []string{"Common Keyword"}, got.Keywords.Names())
	assert.Equal(t, []string{"BuiltIn"}, got.Imports)
}

func TestTableNames(t *testing.T) {
	assert.Equal(t, "BuiltIn-ca8f2e8d70641ce17b9b304086c19657.json", LibTableName("BuiltIn"))

	name := RFTableName("/suite/test_a.robot")
	assert.Regexp(t, `^test_a\.robot-[0-9a-f]{32}\.json$`, name)
	assert.Equal(t, name, RFTableName("/suite/sub/../test_a.robot"))
	assert.NotEqual(t, name, RFTableName("/other/test_a.robot"))
}

func TestObjectName(t *testing.T) {
	assert.Equal(t, "BuiltIn", ObjectName(LibTableName("BuiltIn")))
	assert.Equal(t, "test_a.robot", ObjectName(RFTableName("/suite/test_a.robot")))
	assert.Equal(t, "plain-name", ObjectName("plain-name.json"))
	assert.Equal(t, "nohash", ObjectName("nohash"))
}

func TestResolve(t *testing.T) {
	tbl, obj := Resolve("OperatingSystem", "/suite")
	assert.Equal(t, LibTableName("OperatingSystem"), tbl)
	assert.Equal(t, "OperatingSystem", obj)

	tbl, obj = Resolve("resources/common.robot", "/suite")
	assert.Equal(t, RFTableName("/suite/resources/common.robot"), tbl)
	assert.Equal(t, "common.robot", obj)

	tbl, obj = Resolve("/abs/lib.py", "/suite")
	assert.Equal(t, RFTableName("/abs/lib.py"), tbl)
	assert.Equal(t, "lib.py", obj)
}

func TestIsTableName(t *testing.T) {
	assert.True(t, IsTableName(LibTableName("Process")))
	assert.False(t, IsTableName("Process"))
	assert.False(t, IsTableName("common.robot"))
}
