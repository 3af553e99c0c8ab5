package fields

import "sort"

// ValueSet — локальное множество значений множественного поля.
// Порядок не хранится; Values возвращает отсортированный срез.
type ValueSet struct {
	items map[string]struct{}
}

// NewValueSet создаёт множество из перечисленных значений.
func NewValueSet(values ...string) *ValueSet {
	s := &ValueSet{items: make(map[string]struct{}, len(values))}
	for _, v := range values {
		s.items[v] = struct{}{}
	}
	return s
}

// Add добавляет значение.
func (s *ValueSet) Add(value string) { s.items[value] = struct{}{} }

// Discard удаляет значение, если оно есть.
func (s *ValueSet) Discard(value string) { delete(s.items, value) }

// Contains проверяет вхождение значения.
func (s *ValueSet) Contains(value string) bool {
	_, ok := s.items[value]
	return ok
}

// Replace заменяет всё содержимое множества.
func (s *ValueSet) Replace(values []string) {
	s.items = make(map[string]struct{}, len(values))
	for _, v := range values {
		s.items[v] = struct{}{}
	}
}

// Len возвращает число значений.
func (s *ValueSet) Len() int { return len(s.items) }

// Values возвращает значения в отсортированном порядке.
func (s *ValueSet) Values() []string {
	out := make([]string, 0, len(s.items))
	for v := range s.items {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Clone создаёт независимую копию множества.
func (s *ValueSet) Clone() *ValueSet {
	return NewValueSet(s.Values()...)
}

// EqualTo сравнивает множества по содержимому.
func (s *ValueSet) EqualTo(other *ValueSet) bool {
	if s == nil || other == nil {
		return s == other
	}
	if len(s.items) != len(other.items) {
		return false
	}
	for v := range s.items {
		if !other.Contains(v) {
			return false
		}
	}
	return true
}
