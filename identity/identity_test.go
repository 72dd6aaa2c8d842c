package identity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassthrough(t *testing.T) {
	var tr Transformer = Passthrough{}
	out, err := tr.Transform("123")
	require.NoError(t, err)
	assert.Equal(t, "123", out)
	rev, ok := tr.(Reverser)
	require.True(t, ok)
	back, err := rev.Reverse(out)
	require.NoError(t, err)
	assert.Equal(t, "123", back)
}

func TestKeyed(t *testing.T) {
	tr, err := Keyed([]byte("secret"))
	require.NoError(t, err)

	a, err := tr.Transform("123")
	require.NoError(t, err)
	b, err := tr.Transform("123")
	require.NoError(t, err)
	c, err := tr.Transform("124")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
	assert.NotContains(t, a, "123")
	_, ok := tr.(Reverser)
	assert.False(t, ok, "keyed ids are one way")

	other, err := Keyed([]byte("other"))
	require.NoError(t, err)
	d, err := other.Transform("123")
	require.NoError(t, err)
	assert.NotEqual(t, a, d)
}

func TestKeyedLongKey(t *testing.T) {
	tr, err := Keyed([]byte(strings.Repeat("k", 200)))
	require.NoError(t, err)
	_, err = tr.Transform("123")
	assert.NoError(t, err)

	_, err = Keyed(nil)
	assert.ErrorIs(t, err, ErrNoKey)
}

func TestNew(t *testing.T) {
	tr, err := New("")
	require.NoError(t, err)
	assert.IsType(t, Passthrough{}, tr)

	tr, err = New("key")
	require.NoError(t, err)
	_, ok := tr.(Reverser)
	assert.False(t, ok)
}

func TestTransformerFunc(t *testing.T) {
	tr := TransformerFunc(func(id string) (string, error) { return "x" + id, nil })
	out, err := tr.Transform("1")
	require.NoError(t, err)
	assert.Equal(t, "x1", out)
}
