// Package llm provides the language-model boundary for GraphMem: completion
// and embedding clients, strict JSON-only prompt templates, a repair-chain
// parser for semi-structured model output, and the entity / relationship /
// temporal extractors built on top of them.
package llm

import (
	"fmt"
	"strings"
	"time"

	"github.com/scrypster/graphmem/pkg/types"
)

// entityExtractionPrompt returns a strict JSON-only prompt for extracting
// typed entities, with coordinates populated only for location-like entities
// via the model's own geocoding knowledge.
func entityExtractionPrompt(content string) string {
	return fmt.Sprintf(`TASK: Extract named entities from text.
OUTPUT: ONLY valid JSON. NO markdown. NO code blocks. NO explanation.

ENTITY TYPES (prefer these, invent a new UPPERCASE tag only when none fits):
- PERSON: Individual human
- PLACE: City, country, region, address, landmark
- ORGANIZATION: Company, institution, or group
- CONCEPT: Idea, principle, skill, or theory
- EVENT: Meeting, incident, or occurrence

RULES:
1. Response MUST start with { and end with }
2. Every entity MUST have "name" and "type"
3. "description" is optional, one short sentence of context from the text
4. "coordinates" ONLY for PLACE entities you can geocode: {"latitude":N,"longitude":N}
5. No trailing commas, no null values

TEXT:
%s

RESPOND WITH ONLY THIS JSON STRUCTURE (nothing else):
{"entities":[{"name":"Paris","type":"PLACE","description":"...","coordinates":{"latitude":48.8566,"longitude":2.3522}}]}`, content)
}

// relationshipExtractionPrompt returns a strict JSON-only prompt for directed
// relationships between the already-resolved entities. Entity names must be
// echoed back exactly; only relationships directly evidenced by the text are
// allowed.
func relationshipExtractionPrompt(content string, entities []ExtractedEntity) string {
	var entityList strings.Builder
	for _, entity := range entities {
		fmt.Fprintf(&entityList, "- %s (%s)\n", entity.Name, entity.Type)
	}

	return fmt.Sprintf(`TASK: Find relationships between the listed entities in the text.
OUTPUT: ONLY valid JSON. NO markdown. NO code blocks. NO explanation.

RULES:
1. Use entity names EXACTLY as listed, character for character
2. "type" is a short UPPERCASE_SNAKE label (e.g. WORKS_AT, LOCATED_IN, FOUNDED)
3. Only relationships directly stated or clearly implied by the text;
   never speculate across unrelated entities
4. If no relationships exist, return {"relationships":[]}

ENTITIES (use exact names):
%s
TEXT:
%s

RESPOND WITH ONLY THIS JSON STRUCTURE (nothing else):
{"relationships":[{"fromEntity":"X","toEntity":"Y","type":"WORKS_AT"}]}`, entityList.String(), content)
}

// temporalResolutionPrompt returns a strict JSON-only prompt that asks when
// one relationship became valid and, if stated, when it stopped being valid.
// The reference instant anchors present-tense and relative expressions.
func temporalResolutionPrompt(rel types.EntityRelationship, content string, ref time.Time) string {
	return fmt.Sprintf(`TASK: Determine when a fact became true and when it stopped being true.
OUTPUT: ONLY valid JSON. NO markdown. NO code blocks. NO explanation.

FACT: %s %s %s
REFERENCE TIME: %s

RULES:
1. "validAt": ISO-8601 instant the fact became true, or null if unknown
2. "invalidAt": ISO-8601 instant it stopped being true, or null if unknown
3. Present-tense facts: validAt = the reference time
4. Relative expressions ("10 years ago") resolve against the reference time
5. A bare date means midnight; a bare year means January 1 midnight
6. Missing timezone means UTC

TEXT:
%s

RESPOND WITH ONLY THIS JSON STRUCTURE (nothing else):
{"validAt":"2020-01-01T00:00:00Z","invalidAt":null}`, rel.FromEntity, rel.Type, rel.ToEntity, ref.UTC().Format(time.RFC3339), content)
}

// searchSummaryPrompt returns a prompt asking the model to summarize the
// top-ranked entities and their memories for a user query. The reply is used
// verbatim, so no JSON contract here.
func searchSummaryPrompt(query string, results []*types.SearchResult) string {
	var sb strings.Builder
	for _, r := range results {
		fmt.Fprintf(&sb, "Entity: %s (%s)", r.Entity.Name, r.Entity.Type)
		if r.Entity.Description != "" {
			fmt.Fprintf(&sb, ": %s", r.Entity.Description)
		}
		sb.WriteString("\n")
		for _, m := range r.Memories {
			fmt.Fprintf(&sb, "  Memory: %s\n", m.Content)
		}
	}

	return fmt.Sprintf(`Summarize what the following stored memories say about the query.
Be concise (2-4 sentences), mention the most relevant entities by name, and do
not invent facts that are not in the memories.

QUERY: %s

MEMORIES:
%s`, query, sb.String())
}
