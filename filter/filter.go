// Package filter содержит дерево логических выражений, которое компилируется
// в формулу Airtable (параметр filterByFormula).
//
// Выражения неизменяемы: комбинаторы And/Or/Not возвращают новые деревья,
// не трогая операнды. Компиляция выполняется относительно схемы таблицы,
// которая сопоставляет имена полей именам колонок на сервере.
package filter

// Column описывает колонку, достаточную для компиляции листового условия.
type Column struct {
	// Name — имя колонки на сервере (не имя поля в коде).
	Name string
	// Boolean помечает чекбокс-поля: равенство по ним компилируется
	// в {Col} / NOT({Col}), а не в сравнение с TRUE()/FALSE().
	Boolean bool
	// Encode преобразует операнд в сырое значение (например, выбор из
	// списка в его серверную метку). Может быть nil.
	Encode func(value any) (any, error)
}

// Schema — минимальный срез схемы таблицы, нужный компилятору.
type Schema interface {
	// Column возвращает описание колонки по имени поля.
	Column(field string) (Column, bool)
	// TableName возвращает имя таблицы для сообщений об ошибках.
	TableName() string
}

// Expression — узел дерева фильтра.
type Expression interface {
	// Formula компилирует узел в формулу Airtable. Пустая строка означает
	// отсутствие ограничения (формула не передаётся в запрос).
	Formula(s Schema) (string, error)
}

type trueExpr struct{}
type falseExpr struct{}

func (trueExpr) Formula(Schema) (string, error)  { return "TRUE()", nil }
func (falseExpr) Formula(Schema) (string, error) { return "FALSE()", nil }

// True возвращает выражение, истинное для любой строки.
func True() Expression { return trueExpr{} }

// False возвращает выражение, ложное для любой строки.
func False() Expression { return falseExpr{} }

type andExpr struct{ children []Expression }
type orExpr struct{ children []Expression }
type notExpr struct{ child Expression }

// And объединяет выражения логическим И. Вложенные And разворачиваются
// в один n-арный узел.
func And(exprs ...Expression) Expression {
	return andExpr{children: flatten[andExpr](exprs, func(e andExpr) []Expression { return e.children })}
}

// Or объединяет выражения логическим ИЛИ.
func Or(exprs ...Expression) Expression {
	return orExpr{children: flatten[orExpr](exprs, func(e orExpr) []Expression { return e.children })}
}

// Not инвертирует выражение. Двойное отрицание схлопывается.
func Not(expr Expression) Expression {
	if inner, ok := expr.(notExpr); ok {
		return inner.child
	}
	return notExpr{child: expr}
}

func flatten[T Expression](exprs []Expression, childrenOf func(T) []Expression) []Expression {
	out := make([]Expression, 0, len(exprs))
	for _, e := range exprs {
		if same, ok := e.(T); ok {
			out = append(out, childrenOf(same)...)
			continue
		}
		out = append(out, e)
	}
	return out
}

func (e andExpr) Formula(s Schema) (string, error) {
	for _, child := range e.children {
		if _, ok := child.(falseExpr); ok {
			return falseExpr{}.Formula(s)
		}
	}
	parts, err := buildParts(s, e.children)
	if err != nil {
		return "", err
	}
	return combine("AND", parts), nil
}

func (e orExpr) Formula(s Schema) (string, error) {
	for _, child := range e.children {
		if _, ok := child.(trueExpr); ok {
			return trueExpr{}.Formula(s)
		}
	}
	parts, err := buildParts(s, e.children)
	if err != nil {
		return "", err
	}
	return combine("OR", parts), nil
}

func (e notExpr) Formula(s Schema) (string, error) {
	switch e.child.(type) {
	case trueExpr:
		return falseExpr{}.Formula(s)
	case falseExpr:
		return trueExpr{}.Formula(s)
	}

	inner, err := e.child.Formula(s)
	if err != nil {
		return "", err
	}
	if inner == "" {
		return "FALSE()", nil
	}
	return "NOT(" + inner + ")", nil
}

func buildParts(s Schema, children []Expression) ([]string, error) {
	parts := make([]string, 0, len(children))
	for _, child := range children {
		part, err := child.Formula(s)
		if err != nil {
			return nil, err
		}
		if part == "" {
			continue
		}
		parts = append(parts, part)
	}
	return parts, nil
}

func combine(fn string, parts []string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	out := fn + "("
	for i, part := range parts {
		if i > 0 {
			out += ","
		}
		out += part
	}
	return out + ")"
}
