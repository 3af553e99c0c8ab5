package airtable_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airtable"
	"airtable/fields"
	"airtable/filter"
)

func TestNewRecordEmpty(t *testing.T) {
	e := newEnv(t)
	rec := airtable.NewRecord(e.people)

	assert.Equal(t, "", rec.ID())
	assert.Equal(t, "", rec.String("name"))
	_, ok := rec.Int("age")
	assert.False(t, ok)
	assert.False(t, rec.Bool("active"))
	assert.Equal(t, 0, rec.Values("tags").Len())
	assert.Nil(t, rec.Link("employer"))
	assert.Empty(t, rec.DirtyFields())
}

func TestSetMarksDirty(t *testing.T) {
	e := newEnv(t)
	rec := airtable.NewRecord(e.people)

	require.NoError(t, rec.Set("name", "Alice"))
	assert.True(t, rec.IsDirty("name"))
	assert.Equal(t, []string{"name"}, rec.DirtyFields())

	// Возврат к прежнему значению снимает признак изменения.
	require.NoError(t, rec.Set("name", ""))
	assert.False(t, rec.IsDirty("name"))
	assert.Empty(t, rec.DirtyFields())
}

func TestSetUnknownField(t *testing.T) {
	e := newEnv(t)
	rec := airtable.NewRecord(e.people)

	err := rec.Set("height", 180)
	var fieldErr *filter.InvalidFieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "People", fieldErr.Table)
	assert.Equal(t, "height", fieldErr.Field)
	assert.Nil(t, rec.Get("height"))
}

func TestSetCoercions(t *testing.T) {
	e := newEnv(t)
	rec := airtable.NewRecord(e.people)

	require.NoError(t, rec.Set("age", 30))
	age, ok := rec.Int("age")
	require.True(t, ok)
	assert.Equal(t, int64(30), age)

	require.NoError(t, rec.Set("tags", []string{"go", "rust"}))
	assert.Equal(t, []string{"go", "rust"}, rec.Values("tags").Values())

	require.NoError(t, rec.Set("employer", "recCompany1"))
	assert.Equal(t, "recCompany1", rec.Link("employer").ID())
}

func TestSaveCreates(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.baseCtx()

	rec := airtable.NewRecord(e.people)
	require.NoError(t, rec.Set("name", "Alice"))
	require.NoError(t, rec.Set("age", 30))

	require.NoError(t, c.Save(ctx, rec))

	assert.NotEmpty(t, rec.ID())
	assert.False(t, rec.CreatedTime().IsZero())
	assert.Empty(t, rec.DirtyFields(), "после создания запись чистая")
	assert.Equal(t, 1, e.srv.RowCount(testBase, "People"))

	stored := e.srv.RowFields(testBase, "People", rec.ID())
	assert.Equal(t, "Alice", stored["Name"])
	assert.Equal(t, float64(30), stored["Age"])
	_, hasEmail := stored["Email"]
	assert.False(t, hasEmail, "пустые поля не отправляются")
}

func TestSaveCleanRecordSkipsNetwork(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.baseCtx()

	ids := e.srv.Seed(testBase, "People", map[string]any{"Name": "Alice", "Age": float64(30)})
	rec, err := c.FetchSingle(ctx, e.people, ids[0])
	require.NoError(t, err)

	e.srv.ResetRequests()
	require.NoError(t, rec.Save(ctx))
	assert.Zero(t, requestCount(e.srv), "чистая запись не порождает запросов")
}

func TestSaveRoundTripChangeSkipsNetwork(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.baseCtx()

	ids := e.srv.Seed(testBase, "People", map[string]any{"Name": "Alice", "Age": float64(30)})
	rec, err := c.FetchSingle(ctx, e.people, ids[0])
	require.NoError(t, err)

	require.NoError(t, rec.Set("age", 40))
	assert.True(t, rec.IsDirty("age"))
	require.NoError(t, rec.Set("age", 30))
	assert.False(t, rec.IsDirty("age"))

	e.srv.ResetRequests()
	require.NoError(t, rec.Save(ctx))
	assert.Zero(t, requestCount(e.srv))
}

func TestSaveSendsOnlyDirtyColumns(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.baseCtx()

	ids := e.srv.Seed(testBase, "People", map[string]any{"Name": "Alice", "Age": float64(30)})
	rec, err := c.FetchSingle(ctx, e.people, ids[0])
	require.NoError(t, err)

	require.NoError(t, rec.Set("email", "alice@example.com"))
	e.srv.ResetRequests()
	require.NoError(t, rec.Save(ctx))

	reqs := e.srv.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPatch, reqs[0].Method)
	assert.Equal(t, map[string]any{"Email": "alice@example.com"}, reqs[0].FieldsSent())

	assert.Empty(t, rec.DirtyFields())
	assert.Equal(t, "Alice", e.srv.RowFields(testBase, "People", rec.ID())["Name"])
}

func TestSaveFailureKeepsDirty(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.baseCtx()

	ids := e.srv.Seed(testBase, "People", map[string]any{"Name": "Alice"})
	rec, err := c.FetchSingle(ctx, e.people, ids[0])
	require.NoError(t, err)

	require.NoError(t, rec.Set("name", "Bob"))
	e.srv.InjectError(http.StatusInternalServerError, `{"error":{"type":"SERVER_ERROR","message":"boom"}}`)

	require.Error(t, rec.Save(ctx))
	assert.True(t, rec.IsDirty("name"), "неудачное сохранение не снимает признаки изменений")

	require.NoError(t, rec.Save(ctx))
	assert.False(t, rec.IsDirty("name"))
	assert.Equal(t, "Bob", e.srv.RowFields(testBase, "People", rec.ID())["Name"])
}

func TestReadOnlyField(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.baseCtx()

	rec := airtable.NewRecord(e.people)
	// До первого сохранения запись в read-only поле разрешена.
	require.NoError(t, rec.Set("slug", "alice"))
	require.NoError(t, rec.Set("name", "Alice"))
	require.NoError(t, c.Save(ctx, rec))

	_, hasSlug := e.srv.RowFields(testBase, "People", rec.ID())["Slug"]
	assert.False(t, hasSlug, "read-only поля не отправляются")

	err := rec.Set("slug", "other")
	var roErr *airtable.ReadOnlyFieldError
	require.ErrorAs(t, err, &roErr)
	assert.Equal(t, "slug", roErr.Field)
}

func TestDeleteUnsavedRecord(t *testing.T) {
	e := newEnv(t)
	rec := airtable.NewRecord(e.people)

	err := e.baseCtx().Delete(context.Background(), rec)
	assert.ErrorIs(t, err, airtable.ErrNotPersisted)
}

func TestDelete(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.baseCtx()

	ids := e.srv.Seed(testBase, "People", map[string]any{"Name": "Alice"})
	rec, err := c.FetchSingle(ctx, e.people, ids[0])
	require.NoError(t, err)

	require.NoError(t, rec.Delete(ctx))
	assert.True(t, rec.Deleted())
	assert.Equal(t, 0, e.srv.RowCount(testBase, "People"))

	assert.Nil(t, rec.Get("name"))
	assert.ErrorIs(t, rec.Set("name", "Bob"), airtable.ErrRecordDeleted)
	assert.ErrorIs(t, rec.Save(ctx), airtable.ErrRecordDeleted)
	assert.ErrorIs(t, rec.Delete(ctx), airtable.ErrRecordDeleted)
}

func TestHydratedRecordIsClean(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.baseCtx()

	ids := e.srv.Seed(testBase, "People", map[string]any{
		"Name":     "Alice",
		"Age":      float64(30),
		"Active":   true,
		"Tags":     []any{"go"},
		"Employer": []any{"recCompany1"},
	})
	rec, err := c.FetchSingle(ctx, e.people, ids[0])
	require.NoError(t, err)

	assert.Equal(t, ids[0], rec.ID())
	assert.Equal(t, "Alice", rec.String("name"))
	age, ok := rec.Int("age")
	require.True(t, ok)
	assert.Equal(t, int64(30), age)
	assert.True(t, rec.Bool("active"))
	assert.Equal(t, []string{"go"}, rec.Values("tags").Values())
	assert.Equal(t, "recCompany1", rec.Link("employer").ID())
	assert.False(t, rec.CreatedTime().IsZero())
	assert.Empty(t, rec.DirtyFields())
}

func TestSaveWithoutContext(t *testing.T) {
	e := newEnv(t)
	rec := airtable.NewRecord(e.people)
	require.NoError(t, rec.Set("name", "Alice"))

	assert.ErrorIs(t, rec.Save(context.Background()), airtable.ErrNoContext)
	assert.ErrorIs(t, rec.Delete(context.Background()), airtable.ErrNoContext)
}

func TestDefaultContext(t *testing.T) {
	e := newEnv(t)
	airtable.SetDefault(e.baseCtx())
	t.Cleanup(func() { airtable.SetDefault(nil) })

	ctx := context.Background()
	rec := airtable.NewRecord(e.people)
	require.NoError(t, rec.Set("name", "Alice"))
	require.NoError(t, rec.Save(ctx))
	assert.NotEmpty(t, rec.ID())

	require.NoError(t, rec.Delete(ctx))
	assert.Equal(t, 0, e.srv.RowCount(testBase, "People"))
}

func TestCreatedTimeParsed(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	ids := e.srv.Seed(testBase, "People", map[string]any{"Name": "Alice"})
	rec, err := e.baseCtx().FetchSingle(ctx, e.people, ids[0])
	require.NoError(t, err)

	assert.Equal(t, time.UTC, rec.CreatedTime().Location())
	assert.WithinDuration(t, time.Now(), rec.CreatedTime(), time.Minute)
}

func TestLinkSetCoercion(t *testing.T) {
	e := newEnv(t)

	members := airtable.NewTable(testBase, "Teams",
		airtable.Field{Name: "name", Column: "Name", Type: fields.String{}},
		airtable.Field{Name: "members", Column: "Members", Type: fields.MultiLink{}, Linked: e.people},
	)
	rec := airtable.NewRecord(members)

	require.NoError(t, rec.Set("members", []string{"rec1", "rec2"}))
	assert.Equal(t, []string{"rec1", "rec2"}, rec.Links("members").IDs())
	assert.True(t, rec.IsDirty("members"))
}
