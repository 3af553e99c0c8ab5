package fields

import "fmt"

// Choice связывает локальное значение выбора с его серверной меткой.
type Choice struct {
	Value string
	Raw   string
}

type choiceMap struct {
	rawToValue map[string]string
	valueToRaw map[string]string
}

func newChoiceMap(choices []Choice) choiceMap {
	m := choiceMap{
		rawToValue: make(map[string]string, len(choices)),
		valueToRaw: make(map[string]string, len(choices)),
	}
	for _, c := range choices {
		m.rawToValue[c.Raw] = c.Value
		m.valueToRaw[c.Value] = c.Raw
	}
	return m
}

// Незнакомые значения проходят насквозь: схема на сервере может
// содержать варианты, о которых клиент не знает.
func (m choiceMap) toValue(raw string) string {
	if v, ok := m.rawToValue[raw]; ok {
		return v
	}
	return raw
}

func (m choiceMap) toRaw(value string) string {
	if r, ok := m.valueToRaw[value]; ok {
		return r
	}
	return value
}

// SingleSelect — выбор одного значения из списка. Пустое значение — "".
type SingleSelect struct {
	choices choiceMap
}

// NewSingleSelect создаёт поле одиночного выбора. Без вариантов значения
// передаются как есть.
func NewSingleSelect(choices ...Choice) SingleSelect {
	return SingleSelect{choices: newChoiceMap(choices)}
}

func (f SingleSelect) Decode(raw any) (any, error) {
	if raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("fields: expected selection string, got %T", raw)
	}
	return f.choices.toValue(s), nil
}

func (f SingleSelect) Encode(value any) (any, error) {
	s, _ := value.(string)
	if s == "" {
		return nil, nil
	}
	return f.choices.toRaw(s), nil
}

func (SingleSelect) Empty() any          { return "" }
func (SingleSelect) Clone(value any) any { return value }
func (SingleSelect) Equal(a, b any) bool { return a == b }

// EncodeOperand кодирует операнд фильтра по этому полю.
func (f SingleSelect) EncodeOperand(value any) (any, error) {
	if s, ok := value.(string); ok {
		return f.choices.toRaw(s), nil
	}
	return value, nil
}

// MultiSelect — выбор нескольких значений. Пустое значение —
// пустой *ValueSet.
type MultiSelect struct {
	choices choiceMap
}

// NewMultiSelect создаёт поле множественного выбора.
func NewMultiSelect(choices ...Choice) MultiSelect {
	return MultiSelect{choices: newChoiceMap(choices)}
}

func (f MultiSelect) Decode(raw any) (any, error) {
	set := NewValueSet()
	if raw == nil {
		return set, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("fields: expected selection list, got %T", raw)
	}
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("fields: expected selection string, got %T", item)
		}
		set.Add(f.choices.toValue(s))
	}
	return set, nil
}

func (f MultiSelect) Encode(value any) (any, error) {
	set, ok := value.(*ValueSet)
	if !ok || set.Len() == 0 {
		return nil, nil
	}
	out := make([]string, 0, set.Len())
	for _, v := range set.Values() {
		out = append(out, f.choices.toRaw(v))
	}
	return out, nil
}

func (MultiSelect) Empty() any { return NewValueSet() }

func (MultiSelect) Clone(value any) any {
	if set, ok := value.(*ValueSet); ok {
		return set.Clone()
	}
	return value
}

func (MultiSelect) Equal(a, b any) bool {
	as, aok := a.(*ValueSet)
	bs, bok := b.(*ValueSet)
	if aok && bok {
		return as.EqualTo(bs)
	}
	return a == b
}

// EncodeOperand кодирует операнд фильтра по этому полю.
func (f MultiSelect) EncodeOperand(value any) (any, error) {
	if s, ok := value.(string); ok {
		return f.choices.toRaw(s), nil
	}
	return value, nil
}
