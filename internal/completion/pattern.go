package completion

import (
	"regexp"
	"strings"
)

// varPrefixRe matches a prefix that ends in a variable being typed: a sigil,
// an optional opening brace and any word characters.
var varPrefixRe = regexp.MustCompile(`[$@&]\{?[\p{L}\p{N}_]*$`)

var (
	closedVarRe = regexp.MustCompile(`[$@&]\{[\p{L}\p{N}_]*\}$`)
	openVarRe   = regexp.MustCompile(`[$@&]\{[\p{L}\p{N}_]*$`)
)

// IsVariablePrefix reports whether prefix should be completed against
// variables rather than keywords.
func IsVariablePrefix(prefix string) bool {
	return varPrefixRe.MatchString(prefix)
}

// KeywordPattern builds a case-insensitive subsequence pattern: each
// character of prefix must appear in order, anything may sit between them.
func KeywordPattern(prefix string) string {
	var b strings.Builder
	b.WriteString("(?i)(")
	for _, r := range prefix {
		b.WriteString(".*")
		b.WriteString(regexp.QuoteMeta(string(r)))
	}
	b.WriteString(")")
	return b.String()
}

type varState int

const (
	seekSigil varState = iota
	sigil
	brace
	name
)

// VariablePattern builds the case-insensitive pattern for a variable prefix.
// Characters before the sigil are ignored, the sigil and the character after
// it match literally, and the rest match as a subsequence. A prefix that is
// not a variable prefix matches itself literally.
func VariablePattern(prefix string) string {
	if !IsVariablePrefix(prefix) {
		return "(?i)" + regexp.QuoteMeta(prefix)
	}

	var b strings.Builder
	b.WriteString("(?i)")
	state := seekSigil
	for _, r := range prefix {
		if state == seekSigil && isSigil(r) {
			state = sigil
		}
		switch state {
		case seekSigil:
		case sigil:
			b.WriteString(regexp.QuoteMeta(string(r)))
			state = brace
		case brace:
			b.WriteString(regexp.QuoteMeta(string(r)))
			state = name
		case name:
			b.WriteString(".*")
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	return b.String()
}

func isSigil(r rune) bool {
	return r == '$' || r == '@' || r == '&'
}

// ModeForPrefix infers the label mode from how far the variable at the end of
// prefix has been typed: "${x}" is TwoBrackets, "${x" is StartBracket and
// anything else NoBrackets.
func ModeForPrefix(prefix string) VarMode {
	switch {
	case closedVarRe.MatchString(prefix):
		return TwoBrackets
	case openVarRe.MatchString(prefix):
		return StartBracket
	default:
		return NoBrackets
	}
}
