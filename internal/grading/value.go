package grading

import (
	"encoding/json"
	"fmt"
	"math"
)

// Kind discriminates the shape of an answer value.
type Kind int

const (
	KindNone Kind = iota
	KindIndex
	KindBool
	KindText
)

// Value is a tagged answer value: a choice index, a boolean, free text,
// or nothing. The zero value means "no answer". Shape is interpreted at
// grading time against the question's declared type, never at capture.
type Value struct {
	Kind  Kind
	Index int
	Bool  bool
	Text  string
}

func Index(i int) Value   { return Value{Kind: KindIndex, Index: i} }
func Bool(b bool) Value   { return Value{Kind: KindBool, Bool: b} }
func Text(s string) Value { return Value{Kind: KindText, Text: s} }
func None() Value         { return Value{} }

func (v Value) IsNone() bool { return v.Kind == KindNone }

// On the wire a value is a bare scalar (number, bool, string or null),
// matching what exam clients submit per question.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindIndex:
		return json.Marshal(v.Index)
	case KindBool:
		return json.Marshal(v.Bool)
	case KindText:
		return json.Marshal(v.Text)
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(b []byte) error {
	var raw interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case nil:
		*v = Value{}
	case bool:
		*v = Bool(t)
	case string:
		*v = Text(t)
	case float64:
		if t != math.Trunc(t) {
			return fmt.Errorf("answer index must be an integer, got %v", t)
		}
		*v = Index(int(t))
	default:
		return fmt.Errorf("unsupported answer value %T", raw)
	}
	return nil
}
