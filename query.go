package airtable

import (
	"context"

	"airtable/filter"
	"airtable/transport"
)

// Query — ленивый курсор по таблице. Построение и сужение запроса не
// порождают сетевых вызовов; сеть трогает только итерация. Производные
// запросы копируют родителя, никогда его не изменяя.
//
// Повторный запуск одного и того же запроса каждый раз заново ходит
// в сеть: результаты не запоминаются. Это осознанная политика — кто
// хочет избежать повторных загрузок, материализует их через Records.
type Query struct {
	table      *Table
	actx       Context
	exprs      []filter.Expression
	projection []string
	pageSize   int
}

func (q *Query) clone() *Query {
	cp := *q
	cp.exprs = make([]filter.Expression, len(q.exprs), len(q.exprs)+1)
	copy(cp.exprs, q.exprs)
	cp.projection = append([]string(nil), q.projection...)
	return &cp
}

// Filter возвращает производный запрос с дополнительными условиями,
// объединёнными через И.
func (q *Query) Filter(exprs ...filter.Expression) *Query {
	cp := q.clone()
	cp.exprs = append(cp.exprs, exprs...)
	return cp
}

// Where — сокращённая запись Filter для условий вида «поле__оп: значение».
func (q *Query) Where(conds filter.Conditions) *Query {
	return q.Filter(conditionsExpr{conds: conds})
}

// Select возвращает производный запрос, ограниченный перечисленными
// полями. Без Select запрашиваются все объявленные поля.
func (q *Query) Select(names ...string) *Query {
	cp := q.clone()
	cp.projection = append(cp.projection, names...)
	return cp
}

// WithPageSize задаёт размер страницы; 0 — серверное значение
// по умолчанию.
func (q *Query) WithPageSize(n int) *Query {
	cp := q.clone()
	cp.pageSize = n
	return cp
}

// WithContext привязывает запрос к контексту вместо процессного
// контекста по умолчанию.
func (q *Query) WithContext(c Context) *Query {
	cp := q.clone()
	cp.actx = c
	return cp
}

// Get загружает одну запись по идентификатору, минуя пагинацию и фильтры.
// Отсутствие записи — *transport.NotFoundError.
func (q *Query) Get(ctx context.Context, id string) (*Record, error) {
	c := q.contextOrDefault()
	if c == nil {
		return nil, ErrNoContext
	}
	return c.FetchSingle(ctx, q.table, id)
}

// Run начинает итерацию. Каждый вызов возвращает свежий курсор,
// стартующий с первой страницы.
func (q *Query) Run(ctx context.Context) *Cursor {
	cur := &Cursor{query: q, ctx: ctx}
	if cur.actx = q.contextOrDefault(); cur.actx == nil {
		cur.err = ErrNoContext
		cur.state = cursorDone
	}
	return cur
}

// Records выполняет запрос и собирает все записи в срез.
func (q *Query) Records(ctx context.Context) ([]*Record, error) {
	var out []*Record
	cur := q.Run(ctx)
	for cur.Next() {
		out = append(out, cur.Record())
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (q *Query) contextOrDefault() Context {
	if q.actx != nil {
		return q.actx
	}
	return Default()
}

// compile формирует формулу и проекцию один раз на итерацию.
func (q *Query) compile() (formula string, columns []string, err error) {
	formula, err = filter.And(q.exprs...).Formula(q.table)
	if err != nil {
		return "", nil, err
	}

	if len(q.projection) == 0 {
		return formula, q.table.Columns(), nil
	}
	columns = make([]string, 0, len(q.projection))
	for _, name := range q.projection {
		f, ok := q.table.Field(name)
		if !ok {
			return "", nil, &filter.InvalidFieldError{Table: q.table.name, Field: name}
		}
		columns = append(columns, f.Column)
	}
	return formula, columns, nil
}

// conditionsExpr откладывает разбор условий до компиляции запроса,
// чтобы Where оставался свободным от ошибок при построении.
type conditionsExpr struct {
	conds filter.Conditions
}

func (e conditionsExpr) Formula(s filter.Schema) (string, error) {
	expr, err := e.conds.Build()
	if err != nil {
		return "", err
	}
	return expr.Formula(s)
}

type cursorState int

const (
	cursorUnstarted cursorState = iota
	cursorFetching
	cursorDone
)

// Cursor тянет страницы по мере обхода. Ошибка страницы прерывает обход;
// частично прочитанные страницы не теряются — записи отдаются по одной.
type Cursor struct {
	query *Query
	actx  Context
	ctx   context.Context

	state   cursorState
	formula string
	columns []string
	offset  string

	buf []*Record
	cur *Record
	err error
}

// Next продвигает курсор к следующей записи. false — записи кончились
// или произошла ошибка (см. Err).
func (c *Cursor) Next() bool {
	if c.err != nil {
		return false
	}

	for len(c.buf) == 0 {
		if c.state == cursorDone {
			return false
		}
		if c.state == cursorUnstarted {
			c.formula, c.columns, c.err = c.query.compile()
			if c.err != nil {
				c.state = cursorDone
				return false
			}
			c.state = cursorFetching
		}

		records, offset, err := c.actx.FetchPage(c.ctx, c.query.table, transport.PageRequest{
			Formula:  c.formula,
			Fields:   c.columns,
			PageSize: c.query.pageSize,
			Offset:   c.offset,
		})
		if err != nil {
			c.err = err
			c.state = cursorDone
			return false
		}

		c.buf = records
		c.offset = offset
		if offset == "" {
			c.state = cursorDone
		}
	}

	c.cur = c.buf[0]
	c.buf = c.buf[1:]
	return true
}

// Record возвращает текущую запись.
func (c *Cursor) Record() *Record { return c.cur }

// Err возвращает ошибку, прервавшую обход.
func (c *Cursor) Err() error { return c.err }
