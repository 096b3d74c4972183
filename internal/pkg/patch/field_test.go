package patch

import (
	"encoding/json"
	"testing"
)

type body struct {
	Item   Field[string]  `json:"item"`
	Weight Field[float64] `json:"weight"`
}

func TestFieldDistinguishesAbsentNullAndValue(t *testing.T) {
	var b body
	if err := json.Unmarshal([]byte(`{"item":"fish","weight":null}`), &b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !b.Item.Present || b.Item.Null || b.Item.Value != "fish" {
		t.Fatalf("item: %+v", b.Item)
	}
	if !b.Weight.Present || !b.Weight.Null {
		t.Fatalf("weight: %+v", b.Weight)
	}

	var empty body
	if err := json.Unmarshal([]byte(`{}`), &empty); err != nil {
		t.Fatalf("unmarshal empty: %v", err)
	}
	if empty.Item.Present || empty.Weight.Present {
		t.Fatalf("absent keys reported present: %+v", empty)
	}
}

func TestFieldRejectsWrongType(t *testing.T) {
	var b body
	if err := json.Unmarshal([]byte(`{"weight":"heavy"}`), &b); err == nil {
		t.Fatalf("expected type error")
	}
}

func TestApply(t *testing.T) {
	w := 10.0
	cur := &w

	Field[float64]{}.Apply(&cur)
	if cur == nil || *cur != 10 {
		t.Fatalf("absent must keep value, got %v", cur)
	}

	Set(12.5).Apply(&cur)
	if cur == nil || *cur != 12.5 {
		t.Fatalf("set: got %v", cur)
	}
	if w != 10 {
		t.Fatalf("apply must not write through the old pointer")
	}

	Null[float64]().Apply(&cur)
	if cur != nil {
		t.Fatalf("null must clear, got %v", *cur)
	}
}
