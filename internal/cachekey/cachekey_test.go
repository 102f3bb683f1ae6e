package cachekey_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mna/tangle/internal/cachekey"
)

func TestSumIsOrderIndependent(t *testing.T) {
	a := []cachekey.File{
		{Path: "b.md", Content: []byte("two")},
		{Path: "a.md", Content: []byte("one")},
	}
	b := []cachekey.File{
		{Path: "a.md", Content: []byte("one")},
		{Path: "b.md", Content: []byte("two")},
	}

	sumA, err := cachekey.Sum(a)
	require.NoError(t, err)
	sumB, err := cachekey.Sum(b)
	require.NoError(t, err)
	require.Equal(t, sumA, sumB)
}

func TestSumChangesWithContent(t *testing.T) {
	base := []cachekey.File{{Path: "a.md", Content: []byte("one")}}
	changed := []cachekey.File{{Path: "a.md", Content: []byte("two")}}

	sumBase, err := cachekey.Sum(base)
	require.NoError(t, err)
	sumChanged, err := cachekey.Sum(changed)
	require.NoError(t, err)
	require.NotEqual(t, sumBase, sumChanged)
}

func TestSumChangesWithPath(t *testing.T) {
	a := []cachekey.File{{Path: "a.md", Content: []byte("same")}}
	b := []cachekey.File{{Path: "b.md", Content: []byte("same")}}

	sumA, err := cachekey.Sum(a)
	require.NoError(t, err)
	sumB, err := cachekey.Sum(b)
	require.NoError(t, err)
	require.NotEqual(t, sumA, sumB)
}

func TestSumEmpty(t *testing.T) {
	sum, err := cachekey.Sum(nil)
	require.NoError(t, err)
	require.NotEmpty(t, sum)
}
