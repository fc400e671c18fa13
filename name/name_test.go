package name_test

import (
	"testing"

	"github.com/nomis52/msc/name"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOfAndString(t *testing.T) {
	n := name.Of("db", "primary")
	assert.Equal(t, "db.primary", n.String())
	assert.Equal(t, "primary", n.ShortString())
}

func TestParse(t *testing.T) {
	n, err := name.Parse("db.primary")
	require.NoError(t, err)
	assert.True(t, n.Equal(name.Of("db", "primary")))

	_, err = name.Parse("")
	assert.Error(t, err)

	_, err = name.Parse("a..b")
	assert.Error(t, err)
}

func TestEqual(t *testing.T) {
	a := name.Of("a", "b")
	b := name.Of("a", "b")
	c := name.Of("a", "c")
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestChild(t *testing.T) {
	parent := name.Of("db")
	child := parent.Child("replica")
	assert.Equal(t, "db.replica", child.String())
	assert.Equal(t, "db", parent.String(), "Child must not mutate the receiver")
}

func TestKeyUsableAsMapKey(t *testing.T) {
	m := map[string]int{}
	m[name.Of("a", "b").Key()] = 1
	assert.Equal(t, 1, m[name.Of("a", "b").Key()])
}
