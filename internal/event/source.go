package event

import "strings"

// UnknownSource is the canonical id used when a signal names no source.
const UnknownSource = "UNKNOWN"

// sourceAliases maps legacy or backend-internal source names to canonical ids.
var sourceAliases = map[string]string{
	"VECTOR": "VECTOR_REG",
	"KUSTO":  "KQL",
	"SQLDB":  "SQL",
}

// CanonicalSource normalizes a raw source identifier: trimmed, upper-cased,
// run through the alias table. An empty id maps to UnknownSource.
func CanonicalSource(raw string) string {
	id := strings.ToUpper(strings.TrimSpace(raw))
	if id == "" {
		return UnknownSource
	}
	if canonical, ok := sourceAliases[id]; ok {
		return canonical
	}
	return id
}
