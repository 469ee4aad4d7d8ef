package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/ziadkadry99/d365-plugin-assistant/internal/catalog"
	"github.com/ziadkadry99/d365-plugin-assistant/internal/llm"
)

// ResolveFields maps text to column logical names in three tiers:
//
//  1. the whole normalized text equals a column name: that column alone;
//  2. a column name equals a word of text or is the start of one;
//  3. only when tier 2 is empty, a column name occurs anywhere in text.
//
// The result is deduplicated in first-seen order.
func ResolveFields(fields *catalog.FieldMap, text string) []string {
	if fields == nil || fields.Len() == 0 {
		return nil
	}

	if hit := exactField(fields, text); hit != "" {
		return []string{hit}
	}

	if found := tokenFields(fields, Tokenize(text)); len(found) > 0 {
		return found
	}

	return substringFields(fields, strings.ToLower(text))
}

func exactField(fields *catalog.FieldMap, text string) string {
	norm := Normalize(text)
	if norm == "" {
		return ""
	}
	var hit string
	fields.Each(func(key, logical string) bool {
		if Normalize(key) == norm || Normalize(logical) == norm {
			hit = logical
			return false
		}
		return true
	})
	return hit
}

func tokenFields(fields *catalog.FieldMap, tokens []string) []string {
	var found orderedSet
	fields.Each(func(key, logical string) bool {
		if matchesToken(key, tokens) || matchesToken(strings.ToLower(logical), tokens) {
			found.add(logical)
		}
		return true
	})
	return found.items
}

func matchesToken(name string, tokens []string) bool {
	if name == "" {
		return false
	}
	for _, tok := range tokens {
		if strings.HasPrefix(tok, name) {
			return true
		}
	}
	return false
}

func substringFields(fields *catalog.FieldMap, lower string) []string {
	var found orderedSet
	fields.Each(func(key, logical string) bool {
		if strings.Contains(lower, key) || strings.Contains(lower, strings.ToLower(logical)) {
			found.add(logical)
		}
		return true
	})
	return found.items
}

type orderedSet struct {
	seen  map[string]bool
	items []string
}

func (s *orderedSet) add(v string) {
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	if !s.seen[v] {
		s.seen[v] = true
		s.items = append(s.items, v)
	}
}

const disambiguatePrompt = `The user provided this requirement:
"%s"

The possible field matches (by logical name) are: %s.

Given the above, which one is most likely correct? Reply with only the best logical name.`

// Disambiguate asks oracle to pick one column when candidates holds more than
// one name. The reply is trusted as is. With a nil oracle or fewer than two
// candidates the input is returned unchanged.
func Disambiguate(ctx context.Context, oracle llm.Oracle, text string, candidates []string) ([]string, error) {
	if oracle == nil || len(candidates) < 2 {
		return candidates, nil
	}
	prompt := fmt.Sprintf(disambiguatePrompt, strings.TrimSpace(text), strings.Join(candidates, ", "))
	reply, err := oracle.Complete(ctx, "", []llm.Message{{Role: llm.RoleUser, Content: prompt}})
	if err != nil {
		return nil, fmt.Errorf("disambiguating fields: %w", err)
	}
	return []string{strings.TrimSpace(reply)}, nil
}
