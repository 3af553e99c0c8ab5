package airtable

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/exp/slog"

	"airtable/transport"
)

// CachingContext перехватывает каждую гидрированную запись и хранит её
// по ключу (таблица, id). Повторные обращения к связанным записям и
// FetchSingle сначала смотрят в кэш. Записи живут до конца жизни
// контекста: вытеснения нет.
type CachingContext struct {
	inner *BaseContext

	mu    sync.RWMutex
	cache map[string]*Record

	allow   map[string]struct{}
	exclude map[string]struct{}
}

// CacheOption настраивает CachingContext.
type CacheOption func(c *CachingContext)

// AllowTables ограничивает кэширование перечисленными таблицами.
func AllowTables(tables ...*Table) CacheOption {
	return func(c *CachingContext) {
		c.allow = make(map[string]struct{}, len(tables))
		for _, t := range tables {
			c.allow[t.CacheKey()] = struct{}{}
		}
	}
}

// ExcludeTables исключает таблицы из кэширования.
func ExcludeTables(tables ...*Table) CacheOption {
	return func(c *CachingContext) {
		c.exclude = make(map[string]struct{}, len(tables))
		for _, t := range tables {
			c.exclude[t.CacheKey()] = struct{}{}
		}
	}
}

// NewCachingContext создаёт кэширующий контекст поверх транспорта.
func NewCachingContext(tr *transport.Transport, log *slog.Logger, opts ...CacheOption) *CachingContext {
	c := &CachingContext{
		inner: NewContext(tr, log),
		cache: make(map[string]*Record),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Transport возвращает транспорт контекста.
func (c *CachingContext) Transport() *transport.Transport { return c.inner.tr }

func (c *CachingContext) caches(t *Table) bool {
	key := t.CacheKey()
	if _, excluded := c.exclude[key]; excluded {
		return false
	}
	if c.allow != nil {
		_, allowed := c.allow[key]
		return allowed
	}
	return true
}

func cacheKey(t *Table, id string) string {
	return t.CacheKey() + ":" + id
}

func (c *CachingContext) store(r *Record) {
	if !c.caches(r.table) || r.id == "" {
		return
	}
	c.mu.Lock()
	// Свежая гидрация той же записи перезаписывает старую целиком.
	c.cache[cacheKey(r.table, r.id)] = r
	c.mu.Unlock()
}

func (c *CachingContext) lookup(t *Table, id string) *Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cache[cacheKey(t, id)]
}

// Len возвращает число записей в кэше.
func (c *CachingContext) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

func (c *CachingContext) FetchSingle(ctx context.Context, t *Table, id string) (*Record, error) {
	if !c.caches(t) {
		rec, err := c.inner.FetchSingle(ctx, t, id)
		if err != nil {
			return nil, err
		}
		rec.bind(c)
		return rec, nil
	}

	if rec := c.lookup(t, id); rec != nil {
		return rec, nil
	}
	rec, err := c.inner.FetchSingle(ctx, t, id)
	if err != nil {
		return nil, err
	}
	rec.bind(c)
	c.store(rec)
	return rec, nil
}

func (c *CachingContext) FetchPage(ctx context.Context, t *Table, req transport.PageRequest) ([]*Record, string, error) {
	records, offset, err := c.inner.FetchPage(ctx, t, req)
	if err != nil {
		return nil, "", err
	}
	for _, rec := range records {
		rec.bind(c)
		c.store(rec)
	}
	return records, offset, nil
}

func (c *CachingContext) Save(ctx context.Context, r *Record) error {
	if err := c.inner.Save(ctx, r); err != nil {
		return err
	}
	c.store(r)
	return nil
}

func (c *CachingContext) Delete(ctx context.Context, r *Record) error {
	if r.id != "" && c.caches(r.table) {
		c.mu.Lock()
		delete(c.cache, cacheKey(r.table, r.id))
		c.mu.Unlock()
	}
	return c.inner.Delete(ctx, r)
}

// PreCache прогревает кэш. Аргументом может быть *Table (загрузить все
// записи таблицы), *Query (выполнить запрос, результат уходит в кэш)
// или сохранённая *Record (положить в кэш без загрузки).
func (c *CachingContext) PreCache(ctx context.Context, args ...any) error {
	for _, arg := range args {
		switch v := arg.(type) {
		case *Record:
			if v.id == "" {
				return ErrNotPersisted
			}
			c.store(v)
		case *Query:
			if _, err := v.WithContext(c).Records(ctx); err != nil {
				return err
			}
		case *Table:
			if _, err := v.Query().WithContext(c).Records(ctx); err != nil {
				return err
			}
		default:
			return fmt.Errorf("airtable: cannot pre-cache %T", arg)
		}
	}
	return nil
}
