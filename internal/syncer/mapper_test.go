package syncer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMapRecord(t *testing.T) {
	mapping := map[string]string{
		"name":        "nm",
		"location":    "loc",
		"device_type": "type",
	}
	src := map[string]any{
		"nm":    "srv-01",
		"type":  nil, // явный null — "очистить", должен пройти
		"extra": "ignored",
		// "loc" отсутствует — поле не должно попасть в результат
	}

	got := MapRecord(mapping, src)
	want := Record{"name": "srv-01", "device_type": nil}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("MapRecord mismatch (-want +got):\n%s", diff)
	}
}

func TestMapRecordEmptyMapping(t *testing.T) {
	got := MapRecord(nil, map[string]any{"a": 1})
	if len(got) != 0 {
		t.Errorf("expected empty record, got %v", got)
	}
}

func TestNaturalKey(t *testing.T) {
	cases := []struct {
		name string
		rec  Record
		ok   bool
		key  string
	}{
		{"present", Record{"name": "srv-01"}, true, "srv-01"},
		{"trimmed", Record{"name": "  srv-01  "}, true, "srv-01"},
		{"missing", Record{"location": "dc1"}, false, ""},
		{"empty", Record{"name": "   "}, false, ""},
		{"not a string", Record{"name": 42.0}, false, ""},
		{"null", Record{"name": nil}, false, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			key, ok := naturalKey(tc.rec, "name")
			if ok != tc.ok || key != tc.key {
				t.Errorf("naturalKey(%v) = (%q, %v), want (%q, %v)", tc.rec, key, ok, tc.key, tc.ok)
			}
		})
	}
}
