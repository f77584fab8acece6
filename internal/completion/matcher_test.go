package completion

import (
	"path/filepath"
	"regexp"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/keyword-index/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/keyword-index/internal/table"
	apperrors "github.com/Adithya-Monish-Kumar-K/keyword-index/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func builtinData() *Data {
	kw := func(name, origin string) indexer.KeywordRecord {
		return indexer.KeywordRecord{Keyword: name, Arguments: []string{}, ObjectName: origin, TableName: table.LibTableName(origin)}
	}
	return &Data{
		Keywords: []indexer.KeywordRecord{
			kw("Run Keyword And Expect Error", "BuiltIn"),
			kw("Log", "BuiltIn"),
			kw("Should Be Equal", "BuiltIn"),
			kw("Create File", "OperatingSystem"),
			kw("run_process", "Process"),
			kw("Run Keyword", "BuiltIn"),
		},
		Variables: []string{"${/}", "${OUTPUT_FILE}", "${OUTPUT_DIR}", "@{TEST_TAGS}", "&{SUITE_METADATA}", "${TEST_NAME}"},
	}
}

func triggers(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Trigger)
	}
	return out
}

func TestIsVariablePrefix(t *testing.T) {
	tests := []struct {
		prefix string
		want   bool
	}{
		{"${OUT", true},
		{"@{TEST", true},
		{"&{", true},
		{"$", true},
		{"$out", true},
		{"Log    ${msg", true},
		{"rkw", false},
		{"${x}", false},
		{"", false},
		{"${a b", false},
	}
	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			assert.Equal(t, tt.want, IsVariablePrefix(tt.prefix))
		})
	}
}

func TestKeywordPattern(t *testing.T) {
	assert.Equal(t, "(?i)(.*r.*k.*w)", KeywordPattern("rkw"))
	assert.Equal(t, "(?i)()", KeywordPattern(""))
	assert.Equal(t, `(?i)(.*a.*\..*\*)`, KeywordPattern("a.*"))

	re := regexp.MustCompile(KeywordPattern("rkw"))
	assert.True(t, re.MatchString("Run Keyword And Expect Error"))
	assert.True(t, re.MatchString("run keyword"))
	assert.False(t, re.MatchString("Keyword Run"))
}

func TestVariablePattern(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{"${OUT", `(?i)\$\{.*O.*U.*T`},
		{"@{TEST", `(?i)@\{.*T.*E.*S.*T`},
		{"$out", `(?i)\$o.*u.*t`},
		{"Log  ${a", `(?i)\$\{.*a`},
		{"&", `(?i)&`},
		{"plain", `(?i)plain`},
		{"a.b", `(?i)a\.b`},
	}
	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			got := VariablePattern(tt.prefix)
			assert.Equal(t, tt.want, got)
			_, err := regexp.Compile(got)
			assert.NoError(t, err)
		})
	}
}

func TestKeywordCompletion(t *testing.T) {
	data := builtinData()

	items := GetCompletionList(data, "rkw")
	assert.Equal(t, []string{"Run Keyword And Expect Error\tBuiltIn", "Run Keyword\tBuiltIn"}, triggers(items))

	assert.Empty(t, GetCompletionList(data, "zzz"))
	assert.NotNil(t, GetCompletionList(data, "zzz"))

	all := GetCompletionList(data, "")
	assert.Len(t, all, len(data.Keywords))
}

func TestKeywordHint(t *testing.T) {
	items := GetCompletionList(builtinData(), "run_p")
	require.Len(t, items, 1)
	assert.Equal(t, Item{Trigger: "run_process\tProcess", Hint: "Run Process"}, items[0])

	assert.Equal(t, Item{Trigger: "should be EQUAL\tBuiltIn", Hint: "Should Be Equal"}, KeywordItem("should be EQUAL", "BuiltIn"))
}

func TestVariableCompletion(t *testing.T) {
	data := builtinData()

	assert.Equal(t, []string{"${OUTPUT_FILE}", "${OUTPUT_DIR}"}, triggers(GetCompletionList(data, "${OUT")))
	assert.Equal(t, []string{"@{TEST_TAGS}"}, triggers(GetCompletionList(data, "@{TEST")))
	assert.Equal(t, []string{"${OUTPUT_FILE}"}, triggers(GetCompletionList(data, "${of")))
	assert.Empty(t, GetCompletionList(data, "${zzz"))

	items := GetCompletionList(data, "${OUTPUT_F")
	require.Len(t, items, 1)
	assert.Equal(t, Item{Trigger: "${OUTPUT_FILE}", Hint: "{OUTPUT_FILE}"}, items[0])
}

func TestVariableLiteralFallback(t *testing.T) {
	re := regexp.MustCompile(VariablePattern("OUTPUT"))
	assert.True(t, re.MatchString("${OUTPUT_FILE}"))
	assert.False(t, re.MatchString("${O_U_T_P_U_T}"))
}

func TestMatcherModes(t *testing.T) {
	data := builtinData()

	two := Matcher{Mode: TwoBrackets}.Complete(data, "${OUTPUT_F")
	require.Len(t, two, 1)
	assert.Equal(t, "OUTPUT_FILE", two[0].Hint)

	start := Matcher{Mode: StartBracket}.Complete(data, "${OUTPUT_F")
	require.Len(t, start, 1)
	assert.Equal(t, "OUTPUT_FILE}", start[0].Hint)

	limited := Matcher{Limit: 1}.Complete(data, "${OUT")
	assert.Len(t, limited, 1)

	assert.Empty(t, Matcher{}.Complete(nil, "rkw"))
}

func TestVariableItem(t *testing.T) {
	assert.Equal(t, Item{Trigger: "${x}", Hint: "{x}"}, VariableItem("${x}", NoBrackets))
	assert.Equal(t, Item{Trigger: "${x}", Hint: "x"}, VariableItem("${x}", TwoBrackets))
	assert.Equal(t, Item{Trigger: "${x}", Hint: "x}"}, VariableItem("${x}", StartBracket))
	assert.Equal(t, Item{Trigger: "$", Hint: ""}, VariableItem("$", TwoBrackets))
}

func TestModeForPrefix(t *testing.T) {
	assert.Equal(t, TwoBrackets, ModeForPrefix("${x}"))
	assert.Equal(t, StartBracket, ModeForPrefix("${x"))
	assert.Equal(t, StartBracket, ModeForPrefix("@{"))
	assert.Equal(t, NoBrackets, ModeForPrefix("$x"))
	assert.Equal(t, NoBrackets, ModeForPrefix("keyword"))
}

func TestParseVarMode(t *testing.T) {
	for _, m := range []VarMode{NoBrackets, TwoBrackets, StartBracket} {
		got, ok := ParseVarMode(m.String())
		assert.True(t, ok)
		assert.Equal(t, m, got)
	}
	_, ok := ParseVarMode("curly")
	assert.False(t, ok)
}

func TestLoadData(t *testing.T) {
	root := t.TempDir()
	dbDir := filepath.Join(root, "db")
	rec := &table.Record{FileName: "BuiltIn", Variables: []string{"${OUTPUT_FILE}"}}
	rec.Keywords.Set("Run Keyword And Expect Error", table.Keyword{Arguments: []string{"expected_error", "name", "*args"}})
	name := table.LibTableName("BuiltIn")
	require.NoError(t, table.Write(filepath.Join(dbDir, name), rec))

	idx, err := indexer.New(filepath.Join(root, "index"))
	require.NoError(t, err)
	_, err = idx.CreateIndexForTable(dbDir, name)
	require.NoError(t, err)

	data, err := LoadData(idx.IndexPath(name))
	require.NoError(t, err)
	assert.Equal(t, []string{"Run Keyword And Expect Error\tBuiltIn"}, triggers(GetCompletionList(data, "rkw")))
	assert.Equal(t, []string{"${OUTPUT_FILE}"}, triggers(GetCompletionList(data, "${OUT")))

	_, err = LoadData(filepath.Join(root, "index", "index-missing.json"))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.Empty(t, DataFromRecord(nil).Keywords)
}
