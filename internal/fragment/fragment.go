// Package fragment models the structured output of one reasoning call as a
// closed variant type, and merges partial fragments of the same logical
// document into one record.
package fragment

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Kind discriminates the fragment variants. The set is closed: merging
// pattern-matches on it exhaustively.
type Kind int

const (
	KindScalar Kind = iota
	KindSequence
	KindMapping
	KindUnparsable
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	case KindUnparsable:
		return "unparsable"
	default:
		return "unknown"
	}
}

// Fragment is one tree-shaped piece of extracted data. The zero value is a
// null scalar.
type Fragment struct {
	kind   Kind
	scalar any
	items  []Fragment
	fields map[string]Fragment
	raw    string
}

// Scalar wraps a leaf value (string, number, bool or nil).
func Scalar(v any) Fragment {
	return Fragment{kind: KindScalar, scalar: v}
}

// Null is an explicit absent value.
func Null() Fragment {
	return Fragment{kind: KindScalar}
}

func Sequence(items ...Fragment) Fragment {
	return Fragment{kind: KindSequence, items: items}
}

func Mapping(fields map[string]Fragment) Fragment {
	if fields == nil {
		fields = map[string]Fragment{}
	}
	return Fragment{kind: KindMapping, fields: fields}
}

// Unparsable tags raw text that could not be parsed into structure. It
// contributes nothing when merged.
func Unparsable(raw string) Fragment {
	return Fragment{kind: KindUnparsable, raw: raw}
}

func (f Fragment) Kind() Kind { return f.kind }

// IsNull reports a null scalar.
func (f Fragment) IsNull() bool {
	return f.kind == KindScalar && f.scalar == nil
}

func (f Fragment) ScalarValue() any { return f.scalar }

func (f Fragment) Items() []Fragment { return f.items }

func (f Fragment) Raw() string { return f.raw }

// Field returns the named field of a mapping fragment.
func (f Fragment) Field(name string) (Fragment, bool) {
	v, ok := f.fields[name]
	return v, ok
}

// FieldNames returns mapping keys in sorted order.
func (f Fragment) FieldNames() []string {
	names := make([]string, 0, len(f.fields))
	for name := range f.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (f Fragment) Len() int {
	switch f.kind {
	case KindSequence:
		return len(f.items)
	case KindMapping:
		return len(f.fields)
	default:
		return 0
	}
}

// Clone returns a deep copy.
func (f Fragment) Clone() Fragment {
	switch f.kind {
	case KindSequence:
		items := make([]Fragment, len(f.items))
		for i, item := range f.items {
			items[i] = item.Clone()
		}
		return Fragment{kind: KindSequence, items: items}
	case KindMapping:
		fields := make(map[string]Fragment, len(f.fields))
		for name, field := range f.fields {
			fields[name] = field.Clone()
		}
		return Fragment{kind: KindMapping, fields: fields}
	default:
		return f
	}
}

// FromJSON parses raw JSON into a fragment tree. Callers that want lenient
// handling should tag failures with Unparsable themselves.
func FromJSON(raw []byte) (Fragment, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return Fragment{}, fmt.Errorf("parse fragment: %w", err)
	}
	return fromValue(v), nil
}

func fromValue(v any) Fragment {
	switch tv := v.(type) {
	case map[string]any:
		fields := make(map[string]Fragment, len(tv))
		for name, value := range tv {
			fields[name] = fromValue(value)
		}
		return Fragment{kind: KindMapping, fields: fields}
	case []any:
		items := make([]Fragment, len(tv))
		for i, value := range tv {
			items[i] = fromValue(value)
		}
		return Fragment{kind: KindSequence, items: items}
	default:
		return Fragment{kind: KindScalar, scalar: v}
	}
}

// Interface converts the fragment back to plain Go values. Unparsable
// fragments convert to nil.
func (f Fragment) Interface() any {
	switch f.kind {
	case KindScalar:
		return f.scalar
	case KindSequence:
		out := make([]any, len(f.items))
		for i, item := range f.items {
			out[i] = item.Interface()
		}
		return out
	case KindMapping:
		out := make(map[string]any, len(f.fields))
		for name, field := range f.fields {
			out[name] = field.Interface()
		}
		return out
	default:
		return nil
	}
}

// ToJSON marshals the fragment as canonical JSON (map keys sorted).
func (f Fragment) ToJSON() ([]byte, error) {
	return json.Marshal(f.Interface())
}

// Decode unmarshals the fragment into a typed destination via JSON.
func (f Fragment) Decode(dst any) error {
	raw, err := f.ToJSON()
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// identity is the string-normalized form used for sequence de-duplication.
func (f Fragment) identity() string {
	raw, err := f.ToJSON()
	if err != nil {
		return fmt.Sprint(f.Interface())
	}
	return string(raw)
}
