// Package completion answers fuzzy completion queries against a built
// keyword index. Matching is pure: it never touches disk or the network and
// keeps candidates in index order.
package completion

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/Adithya-Monish-Kumar-K/keyword-index/internal/indexer"
)

// VarMode controls how much of a variable token is stripped for its label.
type VarMode int

const (
	NoBrackets   VarMode = 1 // $x
	TwoBrackets  VarMode = 2 // ${x}
	StartBracket VarMode = 3 // ${x
)

func (m VarMode) String() string {
	switch m {
	case NoBrackets:
		return "no_brackets"
	case TwoBrackets:
		return "two_brackets"
	case StartBracket:
		return "start_bracket"
	default:
		return "unknown"
	}
}

// ParseVarMode accepts the names returned by VarMode.String.
func ParseVarMode(s string) (VarMode, bool) {
	switch strings.ToLower(s) {
	case "no_brackets":
		return NoBrackets, true
	case "two_brackets":
		return TwoBrackets, true
	case "start_bracket":
		return StartBracket, true
	default:
		return 0, false
	}
}

// Item is one completion candidate.
type Item struct {
	Trigger string `json:"trigger"`
	Hint    string `json:"hint"`
}

// Data is the loaded content of one index.
type Data struct {
	Keywords  []indexer.KeywordRecord
	Variables []string
}

// Matcher completes prefixes against Data. The zero value labels variables
// with NoBrackets and returns every match.
type Matcher struct {
	Mode  VarMode
	Limit int
}

// GetCompletionList completes prefix with variable labels in NoBrackets mode.
func GetCompletionList(data *Data, prefix string) []Item {
	return Matcher{Mode: NoBrackets}.Complete(data, prefix)
}

// Complete dispatches prefix to variable or keyword matching.
func (m Matcher) Complete(data *Data, prefix string) []Item {
	if data == nil {
		return []Item{}
	}
	prefix = norm.NFC.String(prefix)
	if IsVariablePrefix(prefix) {
		return m.variables(data, prefix)
	}
	return m.keywords(data, prefix)
}

func (m Matcher) keywords(data *Data, prefix string) []Item {
	re := regexp.MustCompile(KeywordPattern(prefix))
	caser := cases.Title(language.Und)
	items := []Item{}
	for _, kw := range data.Keywords {
		if !re.MatchString(kw.Keyword) {
			continue
		}
		items = append(items, keywordItem(caser, kw.Keyword, kw.ObjectName))
		if m.full(items) {
			break
		}
	}
	return items
}

func (m Matcher) variables(data *Data, prefix string) []Item {
	re := regexp.MustCompile(VariablePattern(prefix))
	items := []Item{}
	for _, v := range data.Variables {
		if !re.MatchString(v) {
			continue
		}
		items = append(items, VariableItem(v, m.Mode))
		if m.full(items) {
			break
		}
	}
	return items
}

func (m Matcher) full(items []Item) bool {
	return m.Limit > 0 && len(items) >= m.Limit
}

// KeywordItem builds the candidate for a keyword: the trigger carries the
// origin after a tab and the hint is the title-cased name.
func KeywordItem(name, origin string) Item {
	return keywordItem(cases.Title(language.Und), name, origin)
}

func keywordItem(caser cases.Caser, name, origin string) Item {
	return Item{
		Trigger: name + "\t" + origin,
		Hint:    caser.String(strings.ReplaceAll(name, "_", " ")),
	}
}

// VariableItem builds the candidate for a variable token. The hint drops the
// sigil, and the braces too depending on mode. Tokens too short for the mode
// keep an empty hint.
func VariableItem(v string, mode VarMode) Item {
	item := Item{Trigger: v}
	switch mode {
	case TwoBrackets:
		if len(v) >= 3 {
			item.Hint = v[2 : len(v)-1]
		}
	case StartBracket:
		if len(v) >= 2 {
			item.Hint = v[2:]
		}
	default:
		if len(v) >= 1 {
			item.Hint = v[1:]
		}
	}
	return item
}
