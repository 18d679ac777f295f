package fragment

import (
	"reflect"
	"testing"
)

func TestMerge_Empty(t *testing.T) {
	got := Merge(nil)
	if got.Kind() != KindMapping || got.Len() != 0 {
		t.Fatalf("Merge(nil) = %v with %d fields, want empty mapping", got.Kind(), got.Len())
	}
}

func TestMerge_AbsentAndNullFieldsAdopt(t *testing.T) {
	a := Mapping(map[string]Fragment{
		"name":    Scalar("Acme"),
		"revenue": Null(),
	})
	b := Mapping(map[string]Fragment{
		"revenue": Scalar(12.5),
		"stage":   Scalar("seed"),
	})

	got := Merge([]Fragment{a, b})

	if v, _ := got.Field("name"); v.ScalarValue() != "Acme" {
		t.Fatalf("name = %v, want Acme", v.ScalarValue())
	}
	if v, _ := got.Field("revenue"); v.ScalarValue() != 12.5 {
		t.Fatalf("null field not adopted: revenue = %v", v.ScalarValue())
	}
	if v, _ := got.Field("stage"); v.ScalarValue() != "seed" {
		t.Fatalf("absent field not adopted: stage = %v", v.ScalarValue())
	}
}

func TestMerge_ScalarConflictFirstWins(t *testing.T) {
	a := Mapping(map[string]Fragment{"name": Scalar("Acme")})
	b := Mapping(map[string]Fragment{"name": Scalar("AcmeCorp")})

	got := Merge([]Fragment{a, b})
	if v, _ := got.Field("name"); v.ScalarValue() != "Acme" {
		t.Fatalf("name = %v, want first value to win", v.ScalarValue())
	}
}

func TestMerge_SequencesDedupPreserveFirstSeenOrder(t *testing.T) {
	a := Sequence(Scalar("a"), Scalar("b"))
	b := Sequence(Scalar("b"), Scalar("c"), Scalar("a"))

	got := Merge([]Fragment{a, b})
	want := []any{"a", "b", "c"}
	if !reflect.DeepEqual(got.Interface(), want) {
		t.Fatalf("merged sequence = %v, want %v", got.Interface(), want)
	}
}

func TestMerge_SequenceDedupByStructure(t *testing.T) {
	item := func(name string) Fragment {
		return Mapping(map[string]Fragment{"name": Scalar(name)})
	}
	a := Sequence(item("x"), item("y"))
	b := Sequence(item("y"), item("z"))

	got := Merge([]Fragment{a, b})
	if got.Len() != 3 {
		t.Fatalf("merged %d items, want 3", got.Len())
	}
}

func TestMerge_NestedMappingsRecurse(t *testing.T) {
	a := Mapping(map[string]Fragment{
		"financials": Mapping(map[string]Fragment{"revenue": Scalar(10.0)}),
	})
	b := Mapping(map[string]Fragment{
		"financials": Mapping(map[string]Fragment{"arr": Scalar(9.0)}),
	})

	got := Merge([]Fragment{a, b})
	fin, ok := got.Field("financials")
	if !ok {
		t.Fatalf("financials missing")
	}
	if v, _ := fin.Field("revenue"); v.ScalarValue() != 10.0 {
		t.Fatalf("revenue = %v", v.ScalarValue())
	}
	if v, _ := fin.Field("arr"); v.ScalarValue() != 9.0 {
		t.Fatalf("arr = %v", v.ScalarValue())
	}
}

func TestMerge_UnparsableContributesNothing(t *testing.T) {
	a := Mapping(map[string]Fragment{"name": Scalar("Acme")})
	got := Merge([]Fragment{Unparsable("garbage"), a, Unparsable("more garbage")})

	if got.Kind() != KindMapping {
		t.Fatalf("kind = %v, want mapping", got.Kind())
	}
	if v, _ := got.Field("name"); v.ScalarValue() != "Acme" {
		t.Fatalf("name = %v", v.ScalarValue())
	}
}

func TestMerge_AllUnparsable(t *testing.T) {
	got := Merge([]Fragment{Unparsable("a"), Unparsable("b")})
	if got.Kind() != KindMapping || got.Len() != 0 {
		t.Fatalf("all-unparsable merge = %v, want empty mapping", got.Kind())
	}
}

func TestMerge_KindMismatchAccumulatorWins(t *testing.T) {
	a := Mapping(map[string]Fragment{"v": Scalar("x")})
	b := Sequence(Scalar("y"))

	got := Merge([]Fragment{a, b})
	if got.Kind() != KindMapping {
		t.Fatalf("kind = %v, want mapping accumulator to win", got.Kind())
	}
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	a := Mapping(map[string]Fragment{"name": Scalar("Acme")})
	b := Mapping(map[string]Fragment{"stage": Scalar("seed")})

	_ = Merge([]Fragment{a, b})

	if a.Len() != 1 {
		t.Fatalf("first input mutated: %d fields", a.Len())
	}
	if _, ok := a.Field("stage"); ok {
		t.Fatalf("first input gained a field from the merge")
	}
}

func TestMerge_Idempotent(t *testing.T) {
	a := Mapping(map[string]Fragment{
		"name": Scalar("Acme"),
		"tags": Sequence(Scalar("b2b"), Scalar("saas")),
	})

	once := Merge([]Fragment{a})
	twice := Merge([]Fragment{once, a})
	if !reflect.DeepEqual(once.Interface(), twice.Interface()) {
		t.Fatalf("merge not idempotent: %v vs %v", once.Interface(), twice.Interface())
	}
}
