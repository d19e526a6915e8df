package domain

import "sort"

// TemplateData is an immutable bag of placeholder substitutions used when
// rendering a Template. It defensively copies the caller-supplied map so
// later mutations by the caller cannot leak into a render.
type TemplateData struct {
	values map[string]string
}

// NewTemplateData builds a TemplateData from a defensive copy of values.
// A nil map yields an empty, usable bag.
func NewTemplateData(values map[string]string) TemplateData {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return TemplateData{values: copied}
}

// Get returns the substitution value for name. Lookup is case-sensitive.
func (d TemplateData) Get(name string) (string, bool) {
	v, ok := d.values[name]
	return v, ok
}

// Has reports whether a substitution exists for name.
func (d TemplateData) Has(name string) bool {
	_, ok := d.values[name]
	return ok
}

// Len returns the number of substitutions.
func (d TemplateData) Len() int { return len(d.values) }

// Keys returns the placeholder names in sorted order.
func (d TemplateData) Keys() []string {
	keys := make([]string, 0, len(d.values))
	for k := range d.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports structural equality: same keys mapped to same values,
// regardless of construction order.
func (d TemplateData) Equal(other TemplateData) bool {
	if len(d.values) != len(other.values) {
		return false
	}
	for k, v := range d.values {
		if ov, ok := other.values[k]; !ok || ov != v {
			return false
		}
	}
	return true
}
