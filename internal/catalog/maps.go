package catalog

import (
	"encoding/json"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// EntityMap maps lower-cased display and logical table names to the
// canonical logical name. Iteration follows insertion order, which is the
// order the resolvers rely on for first-match semantics.
type EntityMap struct {
	m *orderedmap.OrderedMap[string, string]
}

// NewEntityMap returns an empty EntityMap.
func NewEntityMap() *EntityMap {
	return &EntityMap{m: orderedmap.New[string, string]()}
}

// EntityMapFrom builds an EntityMap from solution entities: logical key first,
// then display key, for each entity in order.
func EntityMapFrom(entities []EntityInfo) *EntityMap {
	em := NewEntityMap()
	for _, e := range entities {
		em.Set(e.LogicalName, e.LogicalName)
		em.Set(e.DisplayName, e.LogicalName)
	}
	return em
}

// Set adds key (lower-cased) pointing at logical. Re-setting an existing key
// keeps its position and replaces the value.
func (e *EntityMap) Set(key, logical string) {
	key = strings.ToLower(key)
	if key == "" || logical == "" {
		return
	}
	e.m.Set(key, logical)
}

// Get returns the logical name stored under key.
func (e *EntityMap) Get(key string) (string, bool) {
	return e.m.Get(strings.ToLower(key))
}

func (e *EntityMap) Len() int { return e.m.Len() }

// Each calls fn for every entry in stored order until fn returns false.
func (e *EntityMap) Each(fn func(key, logical string) bool) {
	for pair := e.m.Oldest(); pair != nil; pair = pair.Next() {
		if !fn(pair.Key, pair.Value) {
			return
		}
	}
}

// Logicals returns the distinct logical names in first-seen order.
func (e *EntityMap) Logicals() []string {
	seen := make(map[string]bool)
	var out []string
	e.Each(func(_, logical string) bool {
		if !seen[logical] {
			seen[logical] = true
			out = append(out, logical)
		}
		return true
	})
	return out
}

func (e *EntityMap) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.m)
}

func (e *EntityMap) UnmarshalJSON(data []byte) error {
	m := orderedmap.New[string, string]()
	if err := json.Unmarshal(data, m); err != nil {
		return err
	}
	e.m = m
	return nil
}

// FieldFile is the persisted column metadata of one table, keyed by
// lower-cased logical name in the order the metadata service listed them.
type FieldFile struct {
	m *orderedmap.OrderedMap[string, ColumnDescriptor]
}

// NewFieldFile builds a FieldFile from descriptors, preserving their order.
func NewFieldFile(cols []ColumnDescriptor) *FieldFile {
	ff := &FieldFile{m: orderedmap.New[string, ColumnDescriptor]()}
	for _, c := range cols {
		if c.LogicalName == "" {
			continue
		}
		ff.m.Set(strings.ToLower(c.LogicalName), c)
	}
	return ff
}

func (f *FieldFile) Len() int { return f.m.Len() }

// Column returns the descriptor for a logical name.
func (f *FieldFile) Column(logical string) (ColumnDescriptor, bool) {
	return f.m.Get(strings.ToLower(logical))
}

// Columns returns every descriptor in stored order.
func (f *FieldFile) Columns() []ColumnDescriptor {
	out := make([]ColumnDescriptor, 0, f.m.Len())
	for pair := f.m.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// OptionValue returns the numeric value of the option whose label matches
// label case-insensitively.
func (f *FieldFile) OptionValue(logical, label string) (int, bool) {
	col, ok := f.Column(logical)
	if !ok {
		return 0, false
	}
	for _, opt := range col.OptionSet {
		if strings.EqualFold(opt.Label, label) {
			return opt.Value, true
		}
	}
	return 0, false
}

// LookupTargets returns the tables a lookup column may reference, or nil.
func (f *FieldFile) LookupTargets(logical string) []string {
	col, ok := f.Column(logical)
	if !ok {
		return nil
	}
	return col.Targets
}

// FieldMap derives the lookup the field resolver matches against: for each
// column the logical key and then the display key, both lower-cased.
func (f *FieldFile) FieldMap() *FieldMap {
	fm := NewFieldMap()
	for pair := f.m.Oldest(); pair != nil; pair = pair.Next() {
		fm.Set(pair.Key, pair.Key)
		fm.Set(pair.Value.DisplayName, pair.Key)
	}
	return fm
}

func (f *FieldFile) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.m)
}

func (f *FieldFile) UnmarshalJSON(data []byte) error {
	m := orderedmap.New[string, ColumnDescriptor]()
	if err := json.Unmarshal(data, m); err != nil {
		return err
	}
	f.m = m
	return nil
}

// FieldMap maps lower-cased display and logical column names to the logical
// name, in stored order.
type FieldMap struct {
	m *orderedmap.OrderedMap[string, string]
}

// NewFieldMap returns an empty FieldMap.
func NewFieldMap() *FieldMap {
	return &FieldMap{m: orderedmap.New[string, string]()}
}

// Set adds key (lower-cased) pointing at logical.
func (f *FieldMap) Set(key, logical string) {
	key = strings.ToLower(key)
	if key == "" || logical == "" {
		return
	}
	f.m.Set(key, logical)
}

func (f *FieldMap) Len() int { return f.m.Len() }

// Each calls fn for every entry in stored order until fn returns false.
func (f *FieldMap) Each(fn func(key, logical string) bool) {
	for pair := f.m.Oldest(); pair != nil; pair = pair.Next() {
		if !fn(pair.Key, pair.Value) {
			return
		}
	}
}
