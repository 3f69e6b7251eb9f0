package ai

import (
	"math"
	"reflect"
	"testing"
)

func TestStripCodeFence(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"a\": 1}\n```": `{"a": 1}`,
		"```\n{\"a\": 1}\n```":     `{"a": 1}`,
		"  {\"a\": 1}  ":           `{"a": 1}`,
		"`{\"a\": 1}`":             `{"a": 1}`,
	}
	for in, want := range cases {
		if got := StripCodeFence(in); got != want {
			t.Fatalf("StripCodeFence(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCoerceHelpers(t *testing.T) {
	if !CoerceBool("Yes") || CoerceBool("no") || !CoerceBool(1.0) || CoerceBool(nil) {
		t.Fatal("unexpected CoerceBool results")
	}

	if CoerceFloat("4.5") != 4.5 || CoerceFloat(3.0) != 3 {
		t.Fatal("unexpected CoerceFloat results")
	}
	if !math.IsNaN(CoerceFloat("n/a")) || !math.IsNaN(CoerceFloat(nil)) {
		t.Fatal("expected NaN for unusable numbers")
	}

	if got := CoerceString(map[string]any{"dimension": "communication"}); got != `{"dimension":"communication"}` {
		t.Fatalf("unexpected CoerceString result %q", got)
	}

	got := CoerceStrings([]any{" a ", "", 3.0, nil})
	if !reflect.DeepEqual(got, []string{"a", "3"}) {
		t.Fatalf("unexpected CoerceStrings result %#v", got)
	}
	if got := CoerceStrings(nil); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}
