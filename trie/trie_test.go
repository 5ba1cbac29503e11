package trie

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInsertLookupRoundTrip(t *testing.T) {
	const k = 19
	const depthLimit = k - 9 - 3
	r := &Root{}
	seen := map[uint64]bool{}
	rng := rand.New(rand.NewSource(1))
	var words []uint64
	for i := 0; i < 500; i++ {
		w := rng.Uint64() & (uint64(1)<<uint(2*k) - 1)
		words = append(words, w)
	}
	for i, w := range words {
		isNew := Insert(r, w, k, depthLimit)
		if seen[w] {
			require.False(t, isNew, "duplicate word reported new")
		} else {
			require.True(t, isNew, "new word %d reported duplicate", i)
			seen[w] = true
		}
		ok := PatchID(r, w, k, 0, uint32(i))
		require.True(t, ok)
	}
	for w := range seen {
		_, ok := Lookup(r, w, k)
		require.True(t, ok)
	}
}

func TestBurstInvariant(t *testing.T) {
	const k = 19
	const depthLimit = k - 9 - 3
	r := &Root{}
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 2000; i++ {
		w := rng.Uint64() & (uint64(1)<<uint(2*k) - 1)
		Insert(r, w, k, depthLimit)
	}
	var walk func(n *Node, depth int)
	walk = func(n *Node, depth int) {
		switch n.Tag {
		case TrieTag:
			require.Len(t, n.Children, 4)
			for _, c := range n.Children {
				if c != nil {
					walk(c, depth+1)
				}
			}
		case BucketTag:
			slen := suffixLen(depth, k)
			require.GreaterOrEqual(t, slen, 3, "bucket suffix shorter than 3 bases at depth %d", depth)
		}
	}
	if r.Node != nil {
		walk(r.Node, 0)
	}
}

func TestSerializeDeserialize(t *testing.T) {
	const k = 19
	const depthLimit = k - 9 - 3
	r := &Root{}
	rng := rand.New(rand.NewSource(3))
	words := map[uint64]uint32{}
	for i := 0; i < 300; i++ {
		w := rng.Uint64() & (uint64(1)<<uint(2*k) - 1)
		Insert(r, w, k, depthLimit)
		words[w] = uint32(i)
	}
	for w, id := range words {
		require.True(t, PatchID(r, w, k, 0, id))
	}

	var buf bytes.Buffer
	_, err := Serialize(&buf, r)
	require.NoError(t, err)

	got, err := Deserialize(&buf)
	require.NoError(t, err)

	for w, id := range words {
		gotID, ok := Lookup(got, w, k)
		require.True(t, ok)
		require.Equal(t, id, gotID)
	}
}

func TestEmptyTrie(t *testing.T) {
	r := &Root{}
	var buf bytes.Buffer
	_, err := Serialize(&buf, r)
	require.NoError(t, err)
	got, err := Deserialize(&buf)
	require.NoError(t, err)
	require.Nil(t, got.Node)
}
