package airtable

import (
	"context"
	"sync"

	"golang.org/x/exp/slog"

	"airtable/transport"
)

// Context связывает записи и запросы с транспортом. Все операции ядра
// принимают контекст явно; процессный контекст по умолчанию — только
// удобство для вызывающего кода.
type Context interface {
	// FetchSingle загружает одну запись по идентификатору.
	FetchSingle(ctx context.Context, t *Table, id string) (*Record, error)
	// FetchPage загружает страницу записей и возвращает токен
	// продолжения; пустой токен — страниц больше нет.
	FetchPage(ctx context.Context, t *Table, req transport.PageRequest) ([]*Record, string, error)
	// Save создаёт запись без id или отправляет частичное обновление.
	Save(ctx context.Context, r *Record) error
	// Delete удаляет запись и помечает её уничтоженной.
	Delete(ctx context.Context, r *Record) error
}

var (
	defaultMu  sync.RWMutex
	defaultCtx Context
)

// SetDefault устанавливает контекст процесса по умолчанию. Он действует,
// пока его не заменят другим.
func SetDefault(c Context) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultCtx = c
}

// Default возвращает контекст по умолчанию или nil, если он не задан.
func Default() Context {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultCtx
}

// BaseContext — контекст без кэширования: каждый вызов идёт в транспорт.
type BaseContext struct {
	tr  *transport.Transport
	log *slog.Logger
}

// NewContext создаёт контекст поверх транспорта.
func NewContext(tr *transport.Transport, log *slog.Logger) *BaseContext {
	return &BaseContext{tr: tr, log: log}
}

// Transport возвращает транспорт контекста.
func (c *BaseContext) Transport() *transport.Transport { return c.tr }

func (c *BaseContext) FetchSingle(ctx context.Context, t *Table, id string) (*Record, error) {
	row, err := c.tr.FetchRecord(ctx, t.target(), id)
	if err != nil {
		return nil, err
	}
	return c.hydrate(t, row)
}

func (c *BaseContext) FetchPage(ctx context.Context, t *Table, req transport.PageRequest) ([]*Record, string, error) {
	page, err := c.tr.FetchPage(ctx, t.target(), req)
	if err != nil {
		return nil, "", err
	}
	records := make([]*Record, 0, len(page.Records))
	for i := range page.Records {
		rec, err := c.hydrate(t, &page.Records[i])
		if err != nil {
			return nil, "", err
		}
		records = append(records, rec)
	}
	return records, page.Offset, nil
}

func (c *BaseContext) Save(ctx context.Context, r *Record) error {
	if r.destroyed {
		return ErrRecordDeleted
	}
	delta, err := r.encodeDelta()
	if err != nil {
		return err
	}

	if r.id == "" {
		row, err := c.tr.Create(ctx, r.table.target(), delta)
		if err != nil {
			return err
		}
		// Сервер назначает id и время создания; ответ гидрирует запись
		// целиком и снимает признаки изменений.
		return r.hydrate(row)
	}

	if len(delta) == 0 {
		// Чистая сохранённая запись: сохранять нечего.
		return nil
	}
	if err := c.tr.Update(ctx, r.table.target(), r.id, delta); err != nil {
		return err
	}
	r.clearDirty()
	return nil
}

func (c *BaseContext) Delete(ctx context.Context, r *Record) error {
	if r.destroyed {
		return ErrRecordDeleted
	}
	if r.id == "" {
		return ErrNotPersisted
	}
	if err := c.tr.Delete(ctx, r.table.target(), r.id); err != nil {
		return err
	}
	r.markDeleted()
	return nil
}

func (c *BaseContext) hydrate(t *Table, row *transport.Row) (*Record, error) {
	rec := NewRecord(t)
	rec.bind(c)
	if err := rec.hydrate(row); err != nil {
		return nil, err
	}
	return rec, nil
}
