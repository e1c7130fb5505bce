package util

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestJsonHashIgnoresMapOrder(t *testing.T) {
	a := map[string]interface{}{"level": 1, "phase": 3}
	b := map[string]interface{}{"phase": 3, "level": 1}
	if JsonHash(a) != JsonHash(b) {
		t.Fatal("equal maps should hash equally")
	}
	if JsonHash(a) == JsonHash(map[string]interface{}{"level": 2, "phase": 3}) {
		t.Fatal("different maps should hash differently")
	}
}

func TestClamp(t *testing.T) {
	if Clamp(120.0, 0, 100) != 100 || Clamp(-3, 0, 10) != 0 || Clamp(float32(2.5), -5, 5) != 2.5 {
		t.Fatal("clamp out of range")
	}
}

func TestSortedKeysAndCopies(t *testing.T) {
	m := map[string]int{"b": 2, "a": 1, "c": 3}
	if diff := cmp.Diff([]string{"a", "b", "c"}, SortedKeys(m)); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	c := CopyMap(m)
	c["a"] = 10
	if m["a"] != 1 {
		t.Fatal("copy should not alias the original")
	}
	s := []int{1, 2}
	cs := CopySlice(s)
	cs[0] = 5
	if s[0] != 1 {
		t.Fatal("copy should not alias the original")
	}
}
