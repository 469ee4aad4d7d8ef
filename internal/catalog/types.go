package catalog

// AttributeType is the declared type of a Dataverse column.
type AttributeType string

const (
	TypeLookup              AttributeType = "Lookup"
	TypeCustomer            AttributeType = "Customer"
	TypeOwner               AttributeType = "Owner"
	TypePicklist            AttributeType = "Picklist"
	TypeState               AttributeType = "State"
	TypeStatus              AttributeType = "Status"
	TypeMultiSelectPicklist AttributeType = "MultiSelectPicklist"
	TypeUnknown             AttributeType = "Unknown"
)

// IsLookup reports whether columns of this type reference other tables.
func (t AttributeType) IsLookup() bool {
	switch t {
	case TypeLookup, TypeCustomer, TypeOwner:
		return true
	}
	return false
}

// IsChoice reports whether columns of this type carry an option set.
func (t AttributeType) IsChoice() bool {
	switch t {
	case TypePicklist, TypeState, TypeStatus, TypeMultiSelectPicklist:
		return true
	}
	return false
}

// Option is one value/label pair of an option set.
type Option struct {
	Value int    `json:"value"`
	Label string `json:"label"`
}

// ColumnDescriptor describes one attribute of a table. Targets is only
// populated for lookup columns and OptionSet only for choice columns.
type ColumnDescriptor struct {
	LogicalName string        `json:"logicalName"`
	DisplayName string        `json:"displayName"`
	Type        AttributeType `json:"type"`
	Targets     []string      `json:"targets"`
	OptionSet   []Option      `json:"optionset"`
}

// EntityInfo identifies a table that belongs to a solution.
type EntityInfo struct {
	MetadataID  string `json:"metadataId"`
	LogicalName string `json:"logicalName"`
	DisplayName string `json:"displayName"`
}
