package filter

import (
	"fmt"
	"sort"
	"strings"
)

// Conditions — сокращённая запись фильтра в виде набора условий
// «имя_поля__операция: значение». Несколько условий объединяются через И.
//
//	q.Where(filter.Conditions{"age__gt": 30, "name": "Alice"})
type Conditions map[string]any

const opSeparator = "__"

type leafBuilder func(field string, value any) (Expression, error)

var conditionOps = map[string]leafBuilder{
	"":    func(f string, v any) (Expression, error) { return Eq(f, v), nil },
	"ne":  func(f string, v any) (Expression, error) { return Ne(f, v), nil },
	"gt":  func(f string, v any) (Expression, error) { return Gt(f, v), nil },
	"lt":  func(f string, v any) (Expression, error) { return Lt(f, v), nil },
	"gte": func(f string, v any) (Expression, error) { return Ge(f, v), nil },
	"lte": func(f string, v any) (Expression, error) { return Le(f, v), nil },
	"ge":  func(f string, v any) (Expression, error) { return Ge(f, v), nil },
	"le":  func(f string, v any) (Expression, error) { return Le(f, v), nil },
	"contains": func(f string, v any) (Expression, error) { return Contains(f, v), nil },
	"excludes": func(f string, v any) (Expression, error) { return Excludes(f, v), nil },
	"empty": func(f string, v any) (Expression, error) {
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("filter: %s__empty requires a bool, got %T", f, v)
		}
		if b {
			return Empty(f), nil
		}
		return NotEmpty(f), nil
	},
}

// Build разворачивает условия в дерево выражений. Условия обходятся
// в отсортированном порядке ключей, чтобы формула была детерминированной.
func (c Conditions) Build() (Expression, error) {
	keys := make([]string, 0, len(c))
	for key := range c {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	exprs := make([]Expression, 0, len(keys))
	for _, key := range keys {
		field, op := splitCondition(key)
		build, ok := conditionOps[op]
		if !ok {
			return nil, fmt.Errorf("filter: unknown operation %q in condition %q", op, key)
		}
		expr, err := build(field, c[key])
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, expr)
	}
	return And(exprs...), nil
}

func splitCondition(key string) (field, op string) {
	idx := strings.LastIndex(key, opSeparator)
	if idx <= 0 {
		return key, ""
	}
	suffix := key[idx+len(opSeparator):]
	if _, ok := conditionOps[suffix]; !ok {
		return key, ""
	}
	return key[:idx], suffix
}
