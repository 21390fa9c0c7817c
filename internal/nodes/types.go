package nodes

// Category classifies a node definition within the catalog. Triggers start
// workflows, actions do work, logic nodes route, and ui nodes are canvas
// affordances that never execute.
type Category string

const (
	CategoryTrigger Category = "trigger"
	CategoryAction  Category = "action"
	CategoryLogic   Category = "logic"
	CategoryUI      Category = "ui"
)

// FieldType represents the JSON type of a schema field.
type FieldType string

const (
	FieldTypeString  FieldType = "string"
	FieldTypeNumber  FieldType = "number"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeArray   FieldType = "array"
	FieldTypeObject  FieldType = "object"
)

// Field describes one named, typed entry in a node's input or output schema.
type Field struct {
	Name        string      `json:"name"`
	Type        FieldType   `json:"type"`
	Description string      `json:"description,omitempty"`
	Example     interface{} `json:"example,omitempty"`
}

// NodeDefinition is a single catalog entry. Definitions are immutable after
// registry load; the registry hands out copies so callers can never corrupt
// the shared table.
type NodeDefinition struct {
	Type         string   `json:"type"`
	Title        string   `json:"title"`
	ProviderID   string   `json:"providerId,omitempty"`
	Category     Category `json:"category"`
	IsTrigger    bool     `json:"isTrigger"`
	ComingSoon   bool     `json:"comingSoon"`
	Description  string   `json:"description,omitempty"`
	InputSchema  []Field  `json:"inputSchema,omitempty"`
	OutputSchema []Field  `json:"outputSchema,omitempty"`
}

// Clone returns a deep copy of the definition, including its schema slices.
func (d NodeDefinition) Clone() NodeDefinition {
	out := d
	if d.InputSchema != nil {
		out.InputSchema = make([]Field, len(d.InputSchema))
		copy(out.InputSchema, d.InputSchema)
	}
	if d.OutputSchema != nil {
		out.OutputSchema = make([]Field, len(d.OutputSchema))
		copy(out.OutputSchema, d.OutputSchema)
	}
	return out
}

// Available reports whether the node can appear in generated workflows.
func (d NodeDefinition) Available() bool {
	return !d.ComingSoon
}

// Filter narrows the definitions returned by Registry.List. The zero value
// matches every definition.
type Filter struct {
	Category      Category
	ProviderID    string
	TriggersOnly  bool
	ActionsOnly   bool
	AvailableOnly bool
}
