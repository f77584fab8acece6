package indexer

import "strings"

// GetKwArguments turns raw argument tokens into display tokens: defaults are
// dropped, ${x} becomes x, @{x} becomes *x and &{x} becomes **x. Bare *args
// and **kwargs pass through.
func GetKwArguments(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, arg := range raw {
		out = append(out, normalizeArgument(arg))
	}
	return out
}

func normalizeArgument(arg string) string {
	if i := strings.IndexByte(arg, '='); i >= 0 {
		arg = arg[:i]
	}
	if len(arg) < 3 || arg[1] != '{' || arg[len(arg)-1] != '}' {
		return arg
	}
	name := arg[2 : len(arg)-1]
	switch arg[0] {
	case '$':
		return name
	case '@':
		return "*" + name
	case '&':
		return "**" + name
	default:
		return arg
	}
}
