package airtable

import (
	"errors"
	"fmt"
)

var (
	// ErrNotPersisted — операция требует сохранённую запись (с id).
	ErrNotPersisted = errors.New("record is not persisted")
	// ErrRecordDeleted — запись удалена, дальнейшие изменения недопустимы.
	ErrRecordDeleted = errors.New("record was deleted")
	// ErrNoContext — не задан контекст по умолчанию.
	ErrNoContext = errors.New("no default context installed")
)

// ReadOnlyFieldError — попытка записи в read-only поле сохранённой записи.
type ReadOnlyFieldError struct {
	Field string
}

func (e *ReadOnlyFieldError) Error() string {
	return fmt.Sprintf("field %q is read-only", e.Field)
}
