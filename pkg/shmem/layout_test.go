package shmem

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var testCaps = Capacity{TypeBool: 4, TypeU8: 2, TypeFloat: 8, TypeBits: 1}

func TestMapInitData(t *testing.T) {
	r, err := Map(testCaps)
	require.NoError(t, err)
	defer r.Close()

	l := r.Layout()
	require.True(t, l.Requests.Empty())
	require.True(t, l.Payloads.Empty())
	require.True(t, l.Responses.Empty())
	require.Equal(t, uint32(RequestSlots), l.Requests.Cap())
	for i := range l.Messages {
		require.Equal(t, NoResponse, l.Messages[i].ResponseIndex.Load())
	}
	require.Equal(t, 4, r.View().Capacity(TypeBool))
	require.Equal(t, 0, r.View().Capacity(TypeS32))
}

func TestRegionOwnerOnce(t *testing.T) {
	r := New(testCaps)
	v, err := r.Owner()
	require.NoError(t, err)
	require.NotNil(t, v)
	_, err = r.Owner()
	require.Equal(t, ErrOwnerTaken, err)
}

func TestRegionSharedValues(t *testing.T) {
	r, err := Map(testCaps)
	require.NoError(t, err)
	defer r.Close()
	owner, err := r.Owner()
	require.NoError(t, err)
	owner.SetFloat(3, 52.345)
	owner.SetBool(1, true)
	view := r.View()
	require.Equal(t, float32(52.345), WordFloat(view.Load(TypeFloat, 3)))
	require.True(t, WordBool(view.Load(TypeBool, 1)))
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
}
