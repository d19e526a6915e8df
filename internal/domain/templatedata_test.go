package domain

import (
	"reflect"
	"testing"
)

func TestTemplateDataDefensiveCopy(t *testing.T) {
	source := map[string]string{"orderId": "12345"}
	data := NewTemplateData(source)

	source["orderId"] = "mutated"
	source["new"] = "sneaky"

	if v, _ := data.Get("orderId"); v != "12345" {
		t.Errorf("caller mutation leaked into data: %q", v)
	}
	if data.Has("new") {
		t.Error("caller-added key leaked into data")
	}
}

func TestTemplateDataEquality(t *testing.T) {
	a := NewTemplateData(map[string]string{"x": "1", "y": "2"})
	b := NewTemplateData(map[string]string{"y": "2", "x": "1"})
	c := NewTemplateData(map[string]string{"x": "1"})
	d := NewTemplateData(map[string]string{"x": "1", "y": "другое"})

	if !a.Equal(b) {
		t.Error("structurally equal bags should be equal regardless of order")
	}
	if a.Equal(c) || a.Equal(d) {
		t.Error("bags with different keys or values should not be equal")
	}
}

func TestTemplateDataKeysSorted(t *testing.T) {
	data := NewTemplateData(map[string]string{"zebra": "", "alpha": "", "mid": ""})
	want := []string{"alpha", "mid", "zebra"}
	if got := data.Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
	if data.Len() != 3 {
		t.Errorf("Len() = %d, want 3", data.Len())
	}
}

func TestTemplateDataNilMap(t *testing.T) {
	data := NewTemplateData(nil)
	if data.Len() != 0 {
		t.Errorf("nil-built bag should be empty, got %d entries", data.Len())
	}
	if _, ok := data.Get("anything"); ok {
		t.Error("empty bag should have no values")
	}
}
