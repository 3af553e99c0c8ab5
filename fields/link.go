package fields

import (
	"context"
	"fmt"
)

// Linkable — запись, на которую можно сослаться по идентификатору.
// Реализуется типом Record; интерфейс разрывает цикл пакетов.
type Linkable interface {
	RecordID() string
}

// FetchFunc загружает связанную запись по идентификатору. Подставляется
// слоем записей и обычно ходит через активный контекст (и его кэш).
type FetchFunc func(ctx context.Context, id string) (Linkable, error)

// Link — ссылка на одну запись. Запись загружается лениво при первом
// Resolve и запоминается на экземпляре; ID никогда не инициирует загрузку.
type Link struct {
	id    string
	rec   Linkable
	fetch FetchFunc
}

// NewLink создаёт ссылку на запись с данным идентификатором.
func NewLink(id string) *Link { return &Link{id: id} }

// LinkTo создаёт ссылку на уже загруженную запись.
func LinkTo(rec Linkable) *Link { return &Link{id: rec.RecordID(), rec: rec} }

// ID возвращает идентификатор без загрузки записи.
func (l *Link) ID() string {
	if l == nil {
		return ""
	}
	if l.rec != nil && l.rec.RecordID() != "" {
		return l.rec.RecordID()
	}
	return l.id
}

// Resolved сообщает, загружена ли запись.
func (l *Link) Resolved() bool { return l != nil && l.rec != nil }

// Resolve возвращает связанную запись, при необходимости загружая её.
func (l *Link) Resolve(ctx context.Context) (Linkable, error) {
	if l.rec != nil {
		return l.rec, nil
	}
	if l.fetch == nil {
		return nil, fmt.Errorf("fields: link %q is not bound to a table", l.id)
	}
	rec, err := l.fetch(ctx, l.id)
	if err != nil {
		return nil, err
	}
	l.rec = rec
	return rec, nil
}

// BindFetch задаёт загрузчик связанной записи. Вызывается слоем записей.
func (l *Link) BindFetch(fetch FetchFunc) {
	if l != nil && l.fetch == nil {
		l.fetch = fetch
	}
}

func (l *Link) clone() *Link {
	if l == nil {
		return nil
	}
	cp := *l
	return &cp
}

// LinkSet — множество ссылок на записи с устойчивым порядком добавления.
type LinkSet struct {
	items []*Link
	fetch FetchFunc
}

// NewLinkSet создаёт множество ссылок по идентификаторам.
func NewLinkSet(ids ...string) *LinkSet {
	s := &LinkSet{}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add добавляет ссылку, если её ещё нет.
func (s *LinkSet) Add(id string) {
	if s.Contains(id) {
		return
	}
	s.items = append(s.items, &Link{id: id, fetch: s.fetch})
}

// AddRecord добавляет ссылку на загруженную запись.
func (s *LinkSet) AddRecord(rec Linkable) {
	id := rec.RecordID()
	for _, item := range s.items {
		if item.ID() == id {
			// Возможно, у нас появилась недостающая запись.
			if item.rec == nil {
				item.rec = rec
			}
			return
		}
	}
	s.items = append(s.items, &Link{id: id, rec: rec, fetch: s.fetch})
}

// Discard удаляет ссылку с данным идентификатором.
func (s *LinkSet) Discard(id string) {
	for i, item := range s.items {
		if item.ID() == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return
		}
	}
}

// Contains проверяет наличие ссылки.
func (s *LinkSet) Contains(id string) bool {
	for _, item := range s.items {
		if item.ID() == id {
			return true
		}
	}
	return false
}

// Replace заменяет всё содержимое множеством идентификаторов.
func (s *LinkSet) Replace(ids []string) {
	s.items = nil
	for _, id := range ids {
		s.Add(id)
	}
}

// Len возвращает число ссылок.
func (s *LinkSet) Len() int { return len(s.items) }

// IDs возвращает идентификаторы в порядке добавления.
func (s *LinkSet) IDs() []string {
	out := make([]string, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, item.ID())
	}
	return out
}

// Resolve загружает все записи множества; уже загруженные не запрашиваются
// повторно. Порядок соответствует порядку добавления.
func (s *LinkSet) Resolve(ctx context.Context) ([]Linkable, error) {
	out := make([]Linkable, 0, len(s.items))
	for _, item := range s.items {
		rec, err := item.Resolve(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// BindFetch задаёт загрузчик для всех ссылок множества.
func (s *LinkSet) BindFetch(fetch FetchFunc) {
	if s == nil || s.fetch != nil {
		return
	}
	s.fetch = fetch
	for _, item := range s.items {
		item.BindFetch(fetch)
	}
}

// Clone создаёт независимую копию множества. Загруженные записи
// разделяются между копиями.
func (s *LinkSet) Clone() *LinkSet {
	cp := &LinkSet{fetch: s.fetch, items: make([]*Link, len(s.items))}
	for i, item := range s.items {
		cp.items[i] = item.clone()
	}
	return cp
}

// EqualTo сравнивает множества по наборам идентификаторов.
func (s *LinkSet) EqualTo(other *LinkSet) bool {
	if s == nil || other == nil {
		return s == other
	}
	if len(s.items) != len(other.items) {
		return false
	}
	for _, item := range s.items {
		if !other.Contains(item.ID()) {
			return false
		}
	}
	return true
}

// SingleLink — поле связи с одной записью. Пустое значение — (*Link)(nil).
type SingleLink struct{}

func (SingleLink) Decode(raw any) (any, error) {
	if raw == nil {
		return (*Link)(nil), nil
	}
	ids, err := linkIDs(raw)
	if err != nil {
		return nil, err
	}
	switch len(ids) {
	case 0:
		return (*Link)(nil), nil
	case 1:
		return NewLink(ids[0]), nil
	}
	return nil, fmt.Errorf("fields: single link field holds %d records", len(ids))
}

func (SingleLink) Encode(value any) (any, error) {
	link, _ := value.(*Link)
	if link == nil || link.ID() == "" {
		return []string{}, nil
	}
	return []string{link.ID()}, nil
}

func (SingleLink) Empty() any { return (*Link)(nil) }

func (SingleLink) Clone(value any) any {
	if link, ok := value.(*Link); ok {
		return link.clone()
	}
	return value
}

func (SingleLink) Equal(a, b any) bool {
	al, _ := a.(*Link)
	bl, _ := b.(*Link)
	return al.ID() == bl.ID()
}

// MultiLink — поле связи с несколькими записями. Пустое значение —
// пустой *LinkSet.
type MultiLink struct{}

func (MultiLink) Decode(raw any) (any, error) {
	set := NewLinkSet()
	if raw == nil {
		return set, nil
	}
	ids, err := linkIDs(raw)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		set.Add(id)
	}
	return set, nil
}

func (MultiLink) Encode(value any) (any, error) {
	set, ok := value.(*LinkSet)
	if !ok || set.Len() == 0 {
		return nil, nil
	}
	return set.IDs(), nil
}

func (MultiLink) Empty() any { return NewLinkSet() }

func (MultiLink) Clone(value any) any {
	if set, ok := value.(*LinkSet); ok {
		return set.Clone()
	}
	return value
}

func (MultiLink) Equal(a, b any) bool {
	as, aok := a.(*LinkSet)
	bs, bok := b.(*LinkSet)
	if aok && bok {
		return as.EqualTo(bs)
	}
	return a == b
}

func linkIDs(raw any) ([]string, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("fields: expected link list, got %T", raw)
	}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		id, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("fields: expected record id, got %T", item)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
