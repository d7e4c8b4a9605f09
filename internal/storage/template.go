package storage

type ValueType string

const (
	ValueInt       ValueType = "int"
	ValueFloat     ValueType = "float"
	ValueText      ValueType = "text"
	ValueSelection ValueType = "selection"
)

func (v ValueType) Valid() bool {
	switch v {
	case ValueInt, ValueFloat, ValueText, ValueSelection:
		return true
	}
	return false
}

// MetricValue holds exactly one typed value, matching the owning ValueType.
type MetricValue struct {
	Int       *int64   `json:"int_value,omitempty"`
	Float     *float64 `json:"float_value,omitempty"`
	Text      *string  `json:"text_value,omitempty"`
	Selection *string  `json:"selection_value,omitempty"`
}

// Empty reports whether no value is set.
func (v MetricValue) Empty() bool {
	return v.Int == nil && v.Float == nil && v.Text == nil && v.Selection == nil
}

type MetricTemplate struct {
	ID               int64       `json:"id"`
	Name             string      `json:"name"`
	Code             string      `json:"code"`
	ValueType        ValueType   `json:"metric_type"`
	SelectionOptions []string    `json:"selection_options"`
	Default          MetricValue `json:"default"`
	Required         bool        `json:"required"`
	Active           bool        `json:"active"`
	Sequence         int         `json:"sequence"`
	Description      string      `json:"description"`
	Scope            Scope       `json:"scope"`
}

type SectionTemplate struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Code        string `json:"code"`
	Description string `json:"description"`
	Active      bool   `json:"active"`
	Sequence    int    `json:"sequence"`
	Scope       Scope  `json:"scope"`
}
