// Package fields описывает типы полей Airtable: преобразование сырых
// JSON-значений в типизированные и обратно. Кодек поля — единственный
// авторитет в вопросе «пустого» представления значения.
package fields

import "fmt"

// Codec преобразует значения поля между представлением JSON API
// и локальным типизированным представлением.
type Codec interface {
	// Decode превращает сырое значение из ответа сервера в локальное.
	// nil на входе даёт пустое представление типа.
	Decode(raw any) (any, error)
	// Encode превращает локальное значение в сырое для отправки.
	Encode(value any) (any, error)
	// Empty возвращает пустое представление типа.
	Empty() any
	// Clone создаёт независимую копию значения для сравнения изменений.
	Clone(value any) any
	// Equal сравнивает два локальных значения.
	Equal(a, b any) bool
}

// String — однострочный или многострочный текст. Пустое значение — "".
type String struct{}

func (String) Decode(raw any) (any, error) {
	if raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("fields: expected string, got %T", raw)
	}
	return s, nil
}

func (String) Encode(value any) (any, error) {
	s, _ := value.(string)
	if s == "" {
		// Airtable не хранит пустые строки: отсутствие значения.
		return nil, nil
	}
	return s, nil
}

func (String) Empty() any          { return "" }
func (String) Clone(value any) any { return value }
func (String) Equal(a, b any) bool { return a == b }

// Integer — целое число. Пустое значение — nil.
type Integer struct{}

func (Integer) Decode(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case float64:
		return int64(v), nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case map[string]any:
		// Формульные колонки могут вернуть {"specialValue": "NaN"}.
		if v["specialValue"] == "NaN" {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("fields: expected number, got %T", raw)
}

func (Integer) Encode(value any) (any, error) { return value, nil }
func (Integer) Empty() any                    { return nil }
func (Integer) Clone(value any) any           { return value }
func (Integer) Equal(a, b any) bool           { return a == b }

// Float — число с плавающей точкой. Пустое значение — nil.
type Float struct{}

func (Float) Decode(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	case map[string]any:
		if v["specialValue"] == "NaN" {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("fields: expected number, got %T", raw)
}

func (Float) Encode(value any) (any, error) { return value, nil }
func (Float) Empty() any                    { return nil }
func (Float) Clone(value any) any           { return value }
func (Float) Equal(a, b any) bool           { return a == b }

// Boolean — чекбокс. Пустое значение — false.
type Boolean struct{}

func (Boolean) Decode(raw any) (any, error) {
	if raw == nil {
		return false, nil
	}
	b, ok := raw.(bool)
	if !ok {
		return nil, fmt.Errorf("fields: expected bool, got %T", raw)
	}
	return b, nil
}

func (Boolean) Encode(value any) (any, error) {
	if b, _ := value.(bool); b {
		return true, nil
	}
	// Снятый чекбокс передаётся отсутствием значения.
	return nil, nil
}

func (Boolean) Empty() any          { return false }
func (Boolean) Clone(value any) any { return value }
func (Boolean) Equal(a, b any) bool { return a == b }
