package flow

import (
	"regexp"
	"sort"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\b0x[A-Za-z][A-Za-z0-9_]*\b`)

// ResolveImports replaces contract placeholders such as 0xTriviaGame with the
// configured addresses. Placeholders without an alias are left untouched.
func ResolveImports(script string, aliases map[string]Address) string {
	if len(aliases) == 0 {
		return script
	}
	return placeholderPattern.ReplaceAllStringFunc(script, func(match string) string {
		if addr, ok := aliases[match]; ok {
			return addr.HexWithPrefix()
		}
		return match
	})
}

// UnresolvedImports lists the placeholders left in a script, sorted.
func UnresolvedImports(script string) []string {
	seen := make(map[string]struct{})
	for _, m := range placeholderPattern.FindAllString(script, -1) {
		if isHexLiteral(m) {
			continue
		}
		seen[m] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for m := range seen {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

func isHexLiteral(s string) bool {
	return strings.Trim(s[2:], "0123456789abcdefABCDEF") == ""
}
