package host

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisposableFuncRunsOnce(t *testing.T) {
	calls := 0
	d := DisposableFunc(func() { calls++ })

	d.Dispose()
	d.Dispose()

	assert.Equal(t, 1, calls)
	assert.NotPanics(t, func() { DisposableFunc(nil).Dispose() })
}

func TestCompositeReverseOrder(t *testing.T) {
	var order []string
	var c Composite
	c.Add(
		DisposableFunc(func() { order = append(order, "first") }),
		nil,
		DisposableFunc(func() { order = append(order, "second") }),
	)
	c.Add(DisposableFunc(func() { order = append(order, "third") }))

	c.Dispose()
	c.Dispose()

	assert.Equal(t, []string{"third", "second", "first"}, order)
}

func TestListeners(t *testing.T) {
	var l Listeners
	var got []string

	first := l.Add(func(doc Document) { got = append(got, "a:"+doc.Path()) })
	l.Add(func(doc Document) { got = append(got, "b:"+doc.Path()) })
	require.Equal(t, 2, l.Len())

	l.Emit(StaticDocument{DocPath: "/x.slim"})
	assert.ElementsMatch(t, []string{"a:/x.slim", "b:/x.slim"}, got)

	first.Dispose()
	got = nil
	l.Emit(StaticDocument{DocPath: "/y.slim"})
	assert.Equal(t, []string{"b:/y.slim"}, got)
	assert.Equal(t, 1, l.Len())
}

func TestStaticDocument(t *testing.T) {
	doc := StaticDocument{DocPath: "/a.slim", DocKind: "slim", Content: "p Hello"}

	text, err := doc.Text(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "p Hello", text)
	assert.Equal(t, "slim", doc.Kind())
	assert.Equal(t, "/a.slim", doc.Path())
}
