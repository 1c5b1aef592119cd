package inventory

import (
	"fmt"

	"warden/internal/syncer"
)

// toString приводит значение из JSON-фида к строковой колонке.
// nil — явная очистка ("explicitly cleared"), храним пустую строку.
func toString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		// json.Unmarshal отдаёт числа как float64
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%g", x)
	case bool:
		if x {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", x)
	}
}

// columnsFor — patch-карта "только присутствующие поля": внутренние имена
// полей совпадают с именами колонок.
func columnsFor(fields syncer.Record) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = toString(v)
	}
	return out
}
