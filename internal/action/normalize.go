package action

import "strings"

// blockAliases corrects names engines commonly get wrong.
var blockAliases = map[string]string{
	"grass": "grass_block",
}

// NormalizeItemName lowercases and replaces whitespace with underscores.
func NormalizeItemName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "_")
}

// NormalizeBlockName is NormalizeItemName plus block alias correction.
func NormalizeBlockName(name string) string {
	n := NormalizeItemName(name)
	if alias, ok := blockAliases[n]; ok {
		return alias
	}
	return n
}
