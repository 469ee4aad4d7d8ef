package requirements

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ziadkadry99/d365-plugin-assistant/internal/catalog"
	"github.com/ziadkadry99/d365-plugin-assistant/internal/llm"
	"github.com/ziadkadry99/d365-plugin-assistant/internal/resolver"
)

// Catalog provides the persisted entity and field maps.
type Catalog interface {
	LoadEntityMap() (*catalog.EntityMap, error)
	FieldMap(table string) (*catalog.FieldMap, error)
}

// logicMinWords is the word count a user message must exceed to count as the
// business-logic description.
const logicMinWords = 4

// Extract derives the requirements record from the whole transcript. It has
// no memory of earlier turns. oracle may be nil, in which case several
// matching fields are all kept.
func Extract(ctx context.Context, transcript []llm.Message, cat Catalog, oracle llm.Oracle) (Record, error) {
	var rec Record
	text := userText(transcript)

	entities, err := cat.LoadEntityMap()
	if err != nil {
		return rec, fmt.Errorf("loading entity map: %w", err)
	}
	rec.Entity = resolver.ResolveEntity(text, entities)
	rec.Trigger = string(resolver.ResolveTrigger(text))

	rec.Fields = PendingFields
	if rec.Entity != "" {
		fields, err := cat.FieldMap(rec.Entity)
		if err != nil {
			return rec, fmt.Errorf("loading fields of %s: %w", rec.Entity, err)
		}
		found := resolver.ResolveFields(fields, text)
		found, err = resolver.Disambiguate(ctx, oracle, text, found)
		if err != nil {
			return rec, err
		}
		if joined := joinSorted(found); joined != "" {
			rec.Fields = joined
		}
	}

	rec.Logic = latestLogic(transcript)
	return rec, nil
}

func userText(transcript []llm.Message) string {
	var parts []string
	for _, m := range transcript {
		if m.Role == llm.RoleUser {
			parts = append(parts, m.Content)
		}
	}
	return strings.Join(parts, " ")
}

func latestLogic(transcript []llm.Message) string {
	for i := len(transcript) - 1; i >= 0; i-- {
		m := transcript[i]
		if m.Role == llm.RoleUser && len(strings.Fields(m.Content)) > logicMinWords {
			return m.Content
		}
	}
	return ""
}

func joinSorted(names []string) string {
	set := make(map[string]bool, len(names))
	var uniq []string
	for _, n := range names {
		if n != "" && !set[n] {
			set[n] = true
			uniq = append(uniq, n)
		}
	}
	sort.Strings(uniq)
	return strings.Join(uniq, ", ")
}
