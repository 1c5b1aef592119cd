package mapschema

import (
	"fmt"
	"sort"
	"strings"

	"warden/internal/models"
)

// Каталог внутренних полей по видам сущностей. Таблица соответствия
// соединения может ссылаться только на поля отсюда; натуральный ключ —
// name (device/library) или email (contact).

var keyFields = map[string]string{
	models.TargetDevice:  "name",
	models.TargetLibrary: "name",
	models.TargetContact: "email",
}

var fieldCatalog = map[string][]string{
	models.TargetDevice:  {"name", "device_type", "manufacturer", "model_name", "serial_number", "location", "tags"},
	models.TargetLibrary: {"name", "version", "vendor", "license_type", "license_expiry"},
	models.TargetContact: {"email", "name", "phone", "department", "title"},
}

// KeyField — имя натурального ключа для вида сущности.
func KeyField(target string) (string, bool) {
	k, ok := keyFields[target]
	return k, ok
}

// Fields — множество допустимых внутренних полей для вида сущности.
func Fields(target string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, f := range fieldCatalog[target] {
		out[f] = struct{}{}
	}
	return out
}

// Validate проверяет таблицу соответствия перед сохранением соединения.
func Validate(target string, mapping map[string]string) error {
	allowed, ok := fieldCatalog[target]
	if !ok {
		return fmt.Errorf("unknown sync target: %q", target)
	}
	set := map[string]struct{}{}
	for _, f := range allowed {
		set[f] = struct{}{}
	}
	var bad []string
	for internal, external := range mapping {
		if strings.TrimSpace(external) == "" {
			return fmt.Errorf("mapping for %q: external field name is empty", internal)
		}
		if _, ok := set[internal]; !ok {
			bad = append(bad, internal)
		}
	}
	if len(bad) > 0 {
		sort.Strings(bad)
		return fmt.Errorf("unknown internal fields for %s: %s", target, strings.Join(bad, ", "))
	}
	return nil
}
