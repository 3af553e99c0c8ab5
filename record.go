package airtable

import (
	"context"
	"fmt"
	"time"

	"airtable/fields"
	"airtable/filter"
	"airtable/transport"
)

const createdTimeLayout = "2006-01-02T15:04:05.000Z"

// Record — локальная запись, привязанная к таблице. Запись помнит
// значения полей на момент последней синхронизации и считает «грязными»
// поля, чьи текущие значения отличаются от них. Благодаря этому возврат
// поля к прежнему значению снимает с него признак изменения.
//
// Экземпляр не рассчитан на конкурентные мутации: одновременные Save
// одной записи сериализует вызывающая сторона.
type Record struct {
	table     *Table
	id        string
	created   time.Time
	values    map[string]any
	orig      map[string]any
	destroyed bool
	actx      Context
}

// NewRecord создаёт несохранённую запись: все поля в пустом представлении
// своего типа, id отсутствует.
func NewRecord(t *Table) *Record {
	r := &Record{
		table:  t,
		values: make(map[string]any, len(t.list)),
		orig:   make(map[string]any, len(t.list)),
	}
	for i := range t.list {
		f := &t.list[i]
		r.values[f.Name] = f.Type.Empty()
		r.orig[f.Name] = f.Type.Clone(r.values[f.Name])
	}
	r.bindLinks()
	return r
}

// Table возвращает схему таблицы записи.
func (r *Record) Table() *Table { return r.table }

// ID возвращает идентификатор записи; пустой — запись не сохранялась.
func (r *Record) ID() string { return r.id }

// RecordID реализует fields.Linkable.
func (r *Record) RecordID() string { return r.id }

// CreatedTime возвращает серверное время создания записи.
func (r *Record) CreatedTime() time.Time { return r.created }

// Deleted сообщает, была ли запись удалена.
func (r *Record) Deleted() bool { return r.destroyed }

// Get возвращает текущее значение поля; nil для неизвестного имени.
func (r *Record) Get(name string) any {
	if r.destroyed {
		return nil
	}
	return r.values[name]
}

// Set записывает значение поля и помечает его изменённым — кроме случая,
// когда новое значение совпадает с последним синхронизированным: тогда
// признак изменения снимается.
func (r *Record) Set(name string, value any) error {
	if r.destroyed {
		return ErrRecordDeleted
	}
	f, ok := r.table.Field(name)
	if !ok {
		return &filter.InvalidFieldError{Table: r.table.name, Field: name}
	}
	if f.ReadOnly && r.id != "" {
		return &ReadOnlyFieldError{Field: name}
	}
	coerced, err := coerce(f, value)
	if err != nil {
		return err
	}
	r.values[name] = coerced
	r.bindFieldLinks(f)
	return nil
}

// coerce приводит удобные для вызывающего типы к локальному представлению
// кодека.
func coerce(f *Field, value any) (any, error) {
	switch f.Type.(type) {
	case fields.Integer:
		switch v := value.(type) {
		case int:
			return int64(v), nil
		case int32:
			return int64(v), nil
		}
	case fields.Float:
		switch v := value.(type) {
		case int:
			return float64(v), nil
		case float32:
			return float64(v), nil
		}
	case fields.MultiSelect:
		if v, ok := value.([]string); ok {
			return fields.NewValueSet(v...), nil
		}
	case fields.SingleLink:
		switch v := value.(type) {
		case string:
			return fields.NewLink(v), nil
		case fields.Linkable:
			return fields.LinkTo(v), nil
		}
	case fields.MultiLink:
		if v, ok := value.([]string); ok {
			return fields.NewLinkSet(v...), nil
		}
	}
	return value, nil
}

// IsDirty сообщает, отличается ли поле от последнего синхронизированного
// значения.
func (r *Record) IsDirty(name string) bool {
	f, ok := r.table.Field(name)
	if !ok {
		return false
	}
	return !f.Type.Equal(r.values[name], r.orig[name])
}

// DirtyFields возвращает имена изменённых полей в порядке объявления.
func (r *Record) DirtyFields() []string {
	var out []string
	for i := range r.table.list {
		f := &r.table.list[i]
		if !f.Type.Equal(r.values[f.Name], r.orig[f.Name]) {
			out = append(out, f.Name)
		}
	}
	return out
}

// String возвращает строковое значение поля.
func (r *Record) String(name string) string {
	s, _ := r.Get(name).(string)
	return s
}

// Int возвращает целочисленное значение поля; false — поле пустое.
func (r *Record) Int(name string) (int64, bool) {
	v, ok := r.Get(name).(int64)
	return v, ok
}

// Float возвращает дробное значение поля; false — поле пустое.
func (r *Record) Float(name string) (float64, bool) {
	v, ok := r.Get(name).(float64)
	return v, ok
}

// Bool возвращает значение чекбокса.
func (r *Record) Bool(name string) bool {
	b, _ := r.Get(name).(bool)
	return b
}

// Date возвращает значение поля даты; false — поле пустое.
func (r *Record) Date(name string) (fields.Date, bool) {
	v, ok := r.Get(name).(fields.Date)
	return v, ok
}

// Time возвращает значение поля даты-времени; false — поле пустое.
func (r *Record) Time(name string) (time.Time, bool) {
	v, ok := r.Get(name).(time.Time)
	return v, ok
}

// Values возвращает множество значений множественного поля.
func (r *Record) Values(name string) *fields.ValueSet {
	v, _ := r.Get(name).(*fields.ValueSet)
	return v
}

// Attachments возвращает вложения поля.
func (r *Record) Attachments(name string) []fields.Attachment {
	v, _ := r.Get(name).([]fields.Attachment)
	return v
}

// Link возвращает ссылку link-поля; nil — ссылки нет. Доступ к ID ссылки
// не инициирует загрузку; Resolve загружает запись через активный
// контекст один раз и запоминает её.
func (r *Record) Link(name string) *fields.Link {
	v, _ := r.Get(name).(*fields.Link)
	return v
}

// Links возвращает множество ссылок link-поля.
func (r *Record) Links(name string) *fields.LinkSet {
	v, _ := r.Get(name).(*fields.LinkSet)
	return v
}

// Save сохраняет запись через активный контекст: создание для записи без
// id, иначе частичное обновление только изменённых полей. Чистая
// сохранённая запись не порождает сетевых вызовов. При ошибке транспорта
// признаки изменений не трогаются.
func (r *Record) Save(ctx context.Context) error {
	c := r.contextOrDefault()
	if c == nil {
		return ErrNoContext
	}
	return c.Save(ctx, r)
}

// Delete удаляет запись на сервере. Запись без id удалить нельзя.
func (r *Record) Delete(ctx context.Context) error {
	c := r.contextOrDefault()
	if c == nil {
		return ErrNoContext
	}
	return c.Delete(ctx, r)
}

func (r *Record) contextOrDefault() Context {
	if r.actx != nil {
		return r.actx
	}
	return Default()
}

func (r *Record) bind(c Context) {
	r.actx = c
	r.bindLinks()
}

// bindLinks подключает к link-полям загрузчик связанных записей,
// идущий через активный контекст (и его кэш, если он есть).
func (r *Record) bindLinks() {
	for i := range r.table.list {
		r.bindFieldLinks(&r.table.list[i])
	}
}

func (r *Record) bindFieldLinks(f *Field) {
	if f.Linked == nil {
		return
	}
	linked := f.Linked
	fetch := func(ctx context.Context, id string) (fields.Linkable, error) {
		c := r.contextOrDefault()
		if c == nil {
			return nil, ErrNoContext
		}
		rec, err := c.FetchSingle(ctx, linked, id)
		if err != nil {
			return nil, err
		}
		return rec, nil
	}
	switch v := r.values[f.Name].(type) {
	case *fields.Link:
		v.BindFetch(fetch)
	case *fields.LinkSet:
		v.BindFetch(fetch)
	}
}

// hydrate заполняет запись из сырой строки ответа сервера и сбрасывает
// признаки изменений.
func (r *Record) hydrate(row *transport.Row) error {
	r.id = row.ID
	if row.CreatedTime != "" {
		created, err := time.Parse(createdTimeLayout, row.CreatedTime)
		if err != nil {
			return fmt.Errorf("parse createdTime %q: %w", row.CreatedTime, err)
		}
		r.created = created.UTC()
	}
	for i := range r.table.list {
		f := &r.table.list[i]
		value, err := f.Type.Decode(row.Fields[f.Column])
		if err != nil {
			return fmt.Errorf("field %q: %w", f.Name, err)
		}
		r.values[f.Name] = value
	}
	r.clearDirty()
	r.bindLinks()
	return nil
}

// encodeDelta кодирует изменённые поля для частичного обновления.
// Поля «только для чтения» не отправляются.
func (r *Record) encodeDelta() (map[string]any, error) {
	delta := make(map[string]any)
	for i := range r.table.list {
		f := &r.table.list[i]
		if f.ReadOnly {
			continue
		}
		if f.Type.Equal(r.values[f.Name], r.orig[f.Name]) {
			continue
		}
		encoded, err := f.Type.Encode(r.values[f.Name])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		delta[f.Column] = encoded
	}
	return delta, nil
}

func (r *Record) clearDirty() {
	for i := range r.table.list {
		f := &r.table.list[i]
		r.orig[f.Name] = f.Type.Clone(r.values[f.Name])
	}
}

func (r *Record) markDeleted() {
	r.destroyed = true
}
