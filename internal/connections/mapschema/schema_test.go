package mapschema

import (
	"strings"
	"testing"

	"warden/internal/models"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		target  string
		mapping map[string]string
		wantErr string // "" — ошибок не ждём
	}{
		{
			name:    "valid device mapping",
			target:  models.TargetDevice,
			mapping: map[string]string{"name": "hostname", "location": "site"},
		},
		{
			name:    "valid contact mapping",
			target:  models.TargetContact,
			mapping: map[string]string{"email": "mail", "phone": "tel"},
		},
		{
			name:    "empty mapping is allowed",
			target:  models.TargetLibrary,
			mapping: map[string]string{},
		},
		{
			name:    "unknown internal field",
			target:  models.TargetDevice,
			mapping: map[string]string{"name": "nm", "rack_height": "h"},
			wantErr: "unknown internal fields",
		},
		{
			name:    "field from another kind",
			target:  models.TargetLibrary,
			mapping: map[string]string{"serial_number": "sn"},
			wantErr: "unknown internal fields",
		},
		{
			name:    "empty external name",
			target:  models.TargetDevice,
			mapping: map[string]string{"name": "   "},
			wantErr: "external field name is empty",
		},
		{
			name:    "unknown target",
			target:  "rack",
			mapping: map[string]string{"name": "nm"},
			wantErr: "unknown sync target",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.target, tc.mapping)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("Validate = %v, want error containing %q", err, tc.wantErr)
			}
		})
	}
}

func TestKeyField(t *testing.T) {
	for target, want := range map[string]string{
		models.TargetDevice:  "name",
		models.TargetLibrary: "name",
		models.TargetContact: "email",
	} {
		got, ok := KeyField(target)
		if !ok || got != want {
			t.Errorf("KeyField(%s) = (%q, %v), want (%q, true)", target, got, ok, want)
		}
	}
	if _, ok := KeyField("rack"); ok {
		t.Error("KeyField must reject unknown targets")
	}
}

func TestFieldsContainKey(t *testing.T) {
	for target := range keyFields {
		key, _ := KeyField(target)
		if _, ok := Fields(target)[key]; !ok {
			t.Errorf("catalog for %s must include its key field %q", target, key)
		}
	}
}
