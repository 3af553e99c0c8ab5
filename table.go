// Package airtable отображает строки таблиц Airtable на локальные записи
// с отслеживанием изменений, ленивыми запросами и постраничным чтением
// поверх ограниченного по частоте транспорта.
package airtable

import (
	"airtable/fields"
	"airtable/filter"
	"airtable/transport"
)

// Field — объявление поля таблицы: имя в коде, имя колонки на сервере,
// кодек типа и признак «только для чтения».
type Field struct {
	// Name — имя поля в коде; используется в Get/Set и фильтрах.
	Name string
	// Column — имя колонки на сервере. Пустое значение означает Name.
	Column string
	// Type — кодек значения поля.
	Type fields.Codec
	// ReadOnly запрещает запись в поле сохранённой записи.
	ReadOnly bool
	// Linked — таблица, на которую ссылается link-поле.
	Linked *Table
}

type operandEncoder interface {
	EncodeOperand(value any) (any, error)
}

// Table — схема таблицы: адрес на сервере и упорядоченный список полей.
type Table struct {
	baseID string
	name   string
	list   []Field
	byName map[string]*Field
}

// NewTable объявляет таблицу. Порядок полей сохраняется.
func NewTable(baseID, name string, fieldDefs ...Field) *Table {
	t := &Table{
		baseID: baseID,
		name:   name,
		list:   make([]Field, len(fieldDefs)),
		byName: make(map[string]*Field, len(fieldDefs)),
	}
	copy(t.list, fieldDefs)
	for i := range t.list {
		f := &t.list[i]
		if f.Column == "" {
			f.Column = f.Name
		}
		t.byName[f.Name] = f
	}
	return t
}

// BaseID возвращает идентификатор базы.
func (t *Table) BaseID() string { return t.baseID }

// Name возвращает имя таблицы на сервере.
func (t *Table) Name() string { return t.name }

// Field возвращает объявление поля по имени.
func (t *Table) Field(name string) (*Field, bool) {
	f, ok := t.byName[name]
	return f, ok
}

// Fields возвращает объявления полей в порядке объявления.
func (t *Table) Fields() []Field { return t.list }

// Columns возвращает имена колонок для проекции запроса.
func (t *Table) Columns() []string {
	out := make([]string, 0, len(t.list))
	for i := range t.list {
		out = append(out, t.list[i].Column)
	}
	return out
}

// CacheKey — ключ таблицы в кэше контекста.
func (t *Table) CacheKey() string { return t.baseID + ":" + t.name }

func (t *Table) target() transport.Target {
	return transport.Target{BaseID: t.baseID, Table: t.name}
}

// Query создаёт пустой ленивый запрос по таблице.
func (t *Table) Query() *Query {
	return &Query{table: t}
}

// Column реализует filter.Schema.
func (t *Table) Column(field string) (filter.Column, bool) {
	f, ok := t.byName[field]
	if !ok {
		return filter.Column{}, false
	}
	col := filter.Column{Name: f.Column}
	if _, boolean := f.Type.(fields.Boolean); boolean {
		col.Boolean = true
	}
	if enc, ok := f.Type.(operandEncoder); ok {
		col.Encode = enc.EncodeOperand
	}
	return col, true
}

// TableName реализует filter.Schema.
func (t *Table) TableName() string { return t.name }
