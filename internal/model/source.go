package model

// Stream identifies which reconciler consumes a source's rows.
type Stream string

const (
	StreamProduction Stream = "production"
	StreamQuality    Stream = "quality"
	StreamShipping   Stream = "shipping"
)

// Supported input file formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// FieldSpec maps one canonical field onto the source headers that may carry
// it. Aliases are tried in order; the first header present in a row wins.
// Required mappings reject rows whose cell is missing or blank; the default
// never stands in for a required cell.
type FieldSpec struct {
	Target   string   `json:"target"`
	Aliases  []string `json:"aliases"`
	Default  string   `json:"default,omitempty"`
	Required bool     `json:"required,omitempty"`
}

// Resolve returns the row value for the first alias present in row. When no
// alias is present it returns the field default and ok=false.
func (f FieldSpec) Resolve(row Row) (value string, ok bool) {
	for _, alias := range f.Aliases {
		if v, present := row[alias]; present {
			return v, true
		}
	}
	return f.Default, false
}

// SourceSpec describes one input feed: where it lives, how it is read, and
// how its headers map onto canonical fields.
type SourceSpec struct {
	Name     string      `json:"name"`
	Location string      `json:"location"`
	Format   string      `json:"format"`          // csv or xlsx
	Sheet    string      `json:"sheet,omitempty"` // xlsx only
	Stream   Stream      `json:"stream"`
	Fields   []FieldSpec `json:"fields"`
}

// Field returns the mapping for a canonical field name.
func (s SourceSpec) Field(target string) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Target == target {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Resolve looks up target's mapping and resolves it against row. Unmapped
// targets resolve to ("", false).
func (s SourceSpec) Resolve(row Row, target string) (string, bool) {
	f, ok := s.Field(target)
	if !ok {
		return "", false
	}
	return f.Resolve(row)
}
