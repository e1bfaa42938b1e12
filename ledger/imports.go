package ledger

import (
	"regexp"
	"sort"
	"strings"
)

var aliasPattern = regexp.MustCompile(`0x[A-Z][A-Za-z0-9_]*`)

// ResolveImports replaces contract address aliases such as 0xProfile with the configured
// addresses. Aliases are matched as whole words so 0xProfile does not rewrite 0xProfileV2.
func ResolveImports(code []byte, aliases map[string]Address) []byte {
	if len(aliases) == 0 {
		return code
	}

	return aliasPattern.ReplaceAllFunc(code, func(match []byte) []byte {
		if addr, ok := aliases[string(match)]; ok {
			return []byte(addr.String())
		}

		return match
	})
}

// UnresolvedImports lists the aliases left in code, sorted and deduplicated.
func UnresolvedImports(code []byte) []string {
	seen := map[string]bool{}
	for _, m := range aliasPattern.FindAll(code, -1) {
		seen[string(m)] = true
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)

	return out
}

// AliasName returns the alias for a contract name, e.g. "Profile" becomes "0xProfile".
func AliasName(contract string) string {
	if strings.HasPrefix(contract, "0x") {
		return contract
	}

	return "0x" + contract
}
