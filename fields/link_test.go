package fields_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airtable/fields"
)

type stubRecord string

func (s stubRecord) RecordID() string { return string(s) }

// countingFetch считает обращения к загрузчику.
func countingFetch(calls *int) fields.FetchFunc {
	return func(_ context.Context, id string) (fields.Linkable, error) {
		*calls++
		return stubRecord(id), nil
	}
}

func TestLinkIDNeverFetches(t *testing.T) {
	calls := 0
	link := fields.NewLink("rec1")
	link.BindFetch(countingFetch(&calls))

	assert.Equal(t, "rec1", link.ID())
	assert.False(t, link.Resolved())
	assert.Equal(t, 0, calls)
}

func TestLinkResolveOnce(t *testing.T) {
	calls := 0
	link := fields.NewLink("rec1")
	link.BindFetch(countingFetch(&calls))

	rec, err := link.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, stubRecord("rec1"), rec)
	assert.True(t, link.Resolved())

	_, err = link.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "повторный Resolve не ходит за записью")
}

func TestLinkResolveUnbound(t *testing.T) {
	_, err := fields.NewLink("rec1").Resolve(context.Background())
	assert.Error(t, err)
}

func TestLinkTo(t *testing.T) {
	link := fields.LinkTo(stubRecord("rec9"))
	assert.Equal(t, "rec9", link.ID())
	assert.True(t, link.Resolved())

	rec, err := link.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, stubRecord("rec9"), rec)
}

func TestNilLink(t *testing.T) {
	var link *fields.Link
	assert.Equal(t, "", link.ID())
	assert.False(t, link.Resolved())
}

func TestLinkSet(t *testing.T) {
	s := fields.NewLinkSet("rec1", "rec2")
	s.Add("rec1")
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"rec1", "rec2"}, s.IDs(), "порядок добавления устойчив")
	assert.True(t, s.Contains("rec1"))

	s.Discard("rec1")
	assert.Equal(t, []string{"rec2"}, s.IDs())

	s.Replace([]string{"rec3", "rec4", "rec3"})
	assert.Equal(t, []string{"rec3", "rec4"}, s.IDs())

	assert.True(t, s.EqualTo(fields.NewLinkSet("rec4", "rec3")), "сравнение не зависит от порядка")
	assert.False(t, s.EqualTo(fields.NewLinkSet("rec3")))
}

func TestLinkSetResolve(t *testing.T) {
	calls := 0
	s := fields.NewLinkSet("rec1", "rec2")
	s.BindFetch(countingFetch(&calls))
	s.AddRecord(stubRecord("rec3"))

	recs, err := s.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []fields.Linkable{stubRecord("rec1"), stubRecord("rec2"), stubRecord("rec3")}, recs)
	assert.Equal(t, 2, calls, "уже загруженная запись не запрашивается")

	_, err = s.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestLinkSetAddRecordUpgradesLink(t *testing.T) {
	calls := 0
	s := fields.NewLinkSet("rec1")
	s.BindFetch(countingFetch(&calls))
	s.AddRecord(stubRecord("rec1"))

	assert.Equal(t, 1, s.Len())
	_, err := s.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, calls)
}

func TestLinkSetClone(t *testing.T) {
	s := fields.NewLinkSet("rec1")
	cp := s.Clone()
	cp.Add("rec2")

	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 2, cp.Len())
}

func TestSingleLinkCodec(t *testing.T) {
	f := fields.SingleLink{}

	v, err := f.Decode([]any{"rec1"})
	require.NoError(t, err)
	link, ok := v.(*fields.Link)
	require.True(t, ok)
	assert.Equal(t, "rec1", link.ID())

	v, err = f.Decode(nil)
	require.NoError(t, err)
	assert.Nil(t, v.(*fields.Link))

	v, err = f.Decode([]any{})
	require.NoError(t, err)
	assert.Nil(t, v.(*fields.Link))

	_, err = f.Decode([]any{"rec1", "rec2"})
	assert.Error(t, err)

	enc, err := f.Encode(fields.NewLink("rec1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"rec1"}, enc)

	enc, err = f.Encode((*fields.Link)(nil))
	require.NoError(t, err)
	assert.Equal(t, []string{}, enc, "снятая ссылка отправляется пустым списком")

	assert.True(t, f.Equal(fields.NewLink("rec1"), fields.NewLink("rec1")))
	assert.False(t, f.Equal(fields.NewLink("rec1"), (*fields.Link)(nil)))
	assert.True(t, f.Equal((*fields.Link)(nil), (*fields.Link)(nil)))
}

func TestMultiLinkCodec(t *testing.T) {
	f := fields.MultiLink{}

	v, err := f.Decode([]any{"rec1", "rec2"})
	require.NoError(t, err)
	set, ok := v.(*fields.LinkSet)
	require.True(t, ok)
	assert.Equal(t, []string{"rec1", "rec2"}, set.IDs())

	v, err = f.Decode(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, v.(*fields.LinkSet).Len())

	enc, err := f.Encode(fields.NewLinkSet("rec1", "rec2"))
	require.NoError(t, err)
	assert.Equal(t, []string{"rec1", "rec2"}, enc)

	enc, err = f.Encode(fields.NewLinkSet())
	require.NoError(t, err)
	assert.Nil(t, enc)

	assert.True(t, f.Equal(fields.NewLinkSet("a", "b"), fields.NewLinkSet("b", "a")))
	assert.False(t, f.Equal(fields.NewLinkSet("a"), fields.NewLinkSet("b")))
}
