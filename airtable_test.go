package airtable_test

import (
	"testing"

	"airtable"
	"airtable/fields"
	"airtable/internal/airtabletest"
	"airtable/internal/utils/logger"
	"airtable/transport"
)

const testBase = "appTest00000000"

// env — поддельный сервер, транспорт к нему и пара связанных таблиц.
type env struct {
	srv       *airtabletest.Server
	tr        *transport.Transport
	people    *airtable.Table
	companies *airtable.Table
}

func newEnv(t *testing.T, opts ...transport.Option) *env {
	t.Helper()

	srv := airtabletest.New("key-test")
	t.Cleanup(srv.Close)

	base := []transport.Option{
		transport.WithAPIRoot(srv.URL()),
		transport.WithRequestsPerSecond(1000),
	}
	tr := transport.New(
		func(string) (string, error) { return "key-test", nil },
		logger.Discard(),
		append(base, opts...)...,
	)

	companies := airtable.NewTable(testBase, "Companies",
		airtable.Field{Name: "name", Column: "Name", Type: fields.String{}},
	)
	people := airtable.NewTable(testBase, "People",
		airtable.Field{Name: "name", Column: "Name", Type: fields.String{}},
		airtable.Field{Name: "age", Column: "Age", Type: fields.Integer{}},
		airtable.Field{Name: "email", Column: "Email", Type: fields.String{}},
		airtable.Field{Name: "active", Column: "Active", Type: fields.Boolean{}},
		airtable.Field{Name: "tags", Column: "Tags", Type: fields.NewMultiSelect()},
		airtable.Field{Name: "employer", Column: "Employer", Type: fields.SingleLink{}, Linked: companies},
		airtable.Field{Name: "slug", Column: "Slug", Type: fields.String{}, ReadOnly: true},
	)

	return &env{srv: srv, tr: tr, people: people, companies: companies}
}

// baseCtx — контекст без кэширования поверх транспорта окружения.
func (e *env) baseCtx() *airtable.BaseContext {
	return airtable.NewContext(e.tr, logger.Discard())
}

// cachingCtx — кэширующий контекст поверх транспорта окружения.
func (e *env) cachingCtx(opts ...airtable.CacheOption) *airtable.CachingContext {
	return airtable.NewCachingContext(e.tr, logger.Discard(), opts...)
}

// ageFilter настраивает сервер разбирать единственную формулу «{Age}>N»,
// которую строят тесты запросов.
func (e *env) ageFilter(formula string, min float64) {
	e.srv.FilterFunc = func(got string, fieldValues map[string]any) bool {
		if got != formula {
			return false
		}
		age, ok := fieldValues["Age"].(float64)
		return ok && age > min
	}
}

func requestCount(srv *airtabletest.Server) int {
	return len(srv.Requests())
}
