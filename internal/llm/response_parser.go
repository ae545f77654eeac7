package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

// The extraction model is instructed to answer with a single JSON object, but
// in practice replies arrive wrapped in markdown fences, trailed by prose, or
// with small syntax defects (a missing comma between array elements, doubled
// closing braces, unbalanced quotes). ExtractObject recovers the object by
// applying a chain of repair stages, each independently testable, stopping at
// the first candidate that parses. A repair stage may fix syntax but must
// never change field values.
//
// When every stage fails the caller treats the reply as an empty result:
// extraction failures degrade to "nothing found", they never abort ingestion.

// ExtractObject returns the first parseable JSON object recovered from raw
// model output, and false when no stage produces one.
func ExtractObject(raw string) (string, bool) {
	candidate := strings.TrimSpace(raw)
	if isJSONObject(candidate) {
		return candidate, true
	}

	stages := []func(string) string{
		stripCodeFences,
		sliceToBraces,
		repairMissingCommas,
		collapseDoubledClosers,
		balanceQuotes,
		normalizeQuoteCharacters,
	}

	for _, stage := range stages {
		candidate = stage(candidate)
		if isJSONObject(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// ParseObject extracts a JSON object from raw model output and unmarshals it
// into v. Returns false when no object could be recovered or the recovered
// object does not fit v.
func ParseObject(raw string, v any) bool {
	obj, ok := ExtractObject(raw)
	if !ok {
		return false
	}
	return json.Unmarshal([]byte(obj), v) == nil
}

// isJSONObject reports whether s is a complete, valid JSON object.
func isJSONObject(s string) bool {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") {
		return false
	}
	return json.Valid([]byte(s))
}

// stripCodeFences removes markdown code fence markers the model adds despite
// instructions.
func stripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// sliceToBraces extracts the substring between the first '{' and the last
// '}'. This discards leading and trailing prose around the object.
func sliceToBraces(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}

var missingCommaRe = regexp.MustCompile(`\}\s*\{`)

// repairMissingCommas inserts the comma the model dropped between adjacent
// object elements of an array: "}{", "} {" and "}\n{" all become "},{".
func repairMissingCommas(s string) string {
	return missingCommaRe.ReplaceAllString(s, "},{")
}

// collapseDoubledClosers fixes over-closed nesting: "}}]" becomes "}]" and
// "}}}" becomes "}}". Applied only after the cheaper stages failed, since on
// well-formed input these rewrites would corrupt legitimate nesting.
func collapseDoubledClosers(s string) string {
	s = strings.ReplaceAll(s, "}}]", "}]")
	s = strings.ReplaceAll(s, "}}}", "}}")
	return s
}

// balanceQuotes closes a dangling string literal. When the count of unescaped
// quote characters is odd, one closing quote is inserted before the final '}'.
func balanceQuotes(s string) string {
	count := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '"' && (i == 0 || s[i-1] != '\\') {
			count++
		}
	}
	if count%2 == 0 {
		return s
	}
	end := strings.LastIndex(s, "}")
	if end == -1 {
		return s + `"`
	}
	return s[:end] + `"` + s[end:]
}

// normalizeQuoteCharacters is the last resort: it rewrites every quote
// character to the one JSON accepts. Typographic double quotes and
// single-quoted strings both become plain double quotes. Field values built
// from other characters are untouched.
func normalizeQuoteCharacters(s string) string {
	replacer := strings.NewReplacer(
		"“", `"`, // left double quotation mark
		"”", `"`, // right double quotation mark
		"‘", `'`, // left single quotation mark
		"’", `'`, // right single quotation mark
	)
	s = replacer.Replace(s)

	// Rewrite single-quoted keys and values to double-quoted ones. Only
	// quotes adjacent to JSON structure are touched so apostrophes inside
	// words survive.
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' && isQuoteBoundary(s, i) {
			b.WriteByte('"')
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// isQuoteBoundary reports whether the quote at index i sits against JSON
// structure (start/end of input, or next to one of {}[]:,) rather than inside
// a word.
func isQuoteBoundary(s string, i int) bool {
	structural := func(c byte) bool {
		switch c {
		case '{', '}', '[', ']', ':', ',', ' ', '\n', '\t':
			return true
		}
		return false
	}
	before := i == 0 || structural(s[i-1])
	after := i == len(s)-1 || structural(s[i+1])
	return before || after
}
