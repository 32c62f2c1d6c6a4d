package ring

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRingReset(t *testing.T) {
	var r Ring
	r.Reset(8)
	require.True(t, r.Empty())
	require.Equal(t, uint32(8), r.Cap())
	require.Equal(t, uint32(0), r.WriteIndex())
	require.Equal(t, uint32(0), r.ReadIndex())

	require.Panics(t, func() { r.Reset(6) })
	require.Panics(t, func() { r.Reset(1) })
}

func TestRingWriteRead(t *testing.T) {
	for _, n := range []int{1, 3, 7} {
		var r Ring
		r.Reset(8)
		for i := 0; i < n; i++ {
			r.Write()
		}
		require.False(t, r.Empty())
		require.Equal(t, uint32(n), r.Len())
		for i := 0; i < n; i++ {
			r.Read()
		}
		require.True(t, r.Empty())
		require.Equal(t, r.WriteIndex(), r.ReadIndex())
	}
}

func TestRingWraps(t *testing.T) {
	var r Ring
	r.Reset(4)
	for i := 0; i < 11; i++ {
		r.Write()
		require.Equal(t, uint32(1), r.Len())
		r.Read()
		require.True(t, r.Empty())
	}
	require.Equal(t, uint32(11%4), r.WriteIndex())
	require.Equal(t, uint32(11%4), r.ReadIndex())
}
