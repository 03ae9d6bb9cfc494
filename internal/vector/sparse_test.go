package vector

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	terms := tokenize("Refund Policy: 退款政策, v2!")
	require.Equal(t, []string{"refund", "policy", "退", "款", "政", "策", "v2"}, terms)
}

func TestEncodeSparse_Deterministic(t *testing.T) {
	a, err := EncodeSparse("refund policy refund")
	require.NoError(t, err)
	b, err := EncodeSparse("refund policy refund")
	require.NoError(t, err)

	require.Equal(t, a.Len(), b.Len())
	for i := 0; i < a.Len(); i++ {
		posA, valA, okA := a.Get(i)
		posB, valB, okB := b.Get(i)
		require.True(t, okA)
		require.True(t, okB)
		require.Equal(t, posA, posB)
		require.Equal(t, valA, valB)
	}
}

func TestEncodeSparse_EmptyText(t *testing.T) {
	emb, err := EncodeSparse("  ...  ")
	require.NoError(t, err)
	require.Equal(t, 1, emb.Len())
}

func TestCollectionName(t *testing.T) {
	require.Equal(t, "kb_a1b2_c3d4", CollectionName("kb", "a1b2-c3d4"))
	// 同一知识库ID总是派生同一集合名
	require.Equal(t, CollectionName("kb", "x-y"), CollectionName("kb", "x-y"))
}
