package syncer

import "strings"

// Record — нормализованная запись внешнего фида (внутренние имена полей).
type Record map[string]any

// MapRecord переводит внешнюю запись во внутреннюю по таблице соответствия
// { внутреннее_поле: внешнее_поле }. В результат попадают только поля,
// чьё внешнее поле присутствует в записи. Явный null — это "очистить
// значение", он сохраняется; отсутствующий ключ — "нет данных", пропускаем.
func MapRecord(mapping map[string]string, src map[string]any) Record {
	out := Record{}
	for internal, external := range mapping {
		if v, ok := src[external]; ok {
			out[internal] = v
		}
	}
	return out
}

// naturalKey достаёт непустой строковый ключ из нормализованной записи.
func naturalKey(rec Record, field string) (string, bool) {
	v, ok := rec[field]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return s, true
}
