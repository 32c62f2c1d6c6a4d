package param

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/corelink.go/pkg/rpc"
	"github.com/robotalks/corelink.go/pkg/shmem"
)

func TestNewTable(t *testing.T) {
	table, err := NewTable(
		Descriptor{Name: "b", Type: shmem.TypeBool},
		Descriptor{Name: "a", Type: shmem.TypeFloat, Aux: Precision(2)},
	)
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())
	require.Equal(t, "b", table.All()[0].Name)
	d, ok := table.Lookup("a")
	require.True(t, ok)
	require.Equal(t, "a(float[0] precision=2)", d.String())
	_, err = table.Find("missing")
	require.ErrorIs(t, err, rpc.Illegal)
}

func TestNewTableRejects(t *testing.T) {
	tests := []struct {
		name  string
		descs []Descriptor
	}{
		{"duplicate", []Descriptor{{Name: "x", Type: shmem.TypeU8}, {Name: "x", Type: shmem.TypeU16}}},
		{"no name", []Descriptor{{Type: shmem.TypeU8}}},
		{"bad type", []Descriptor{{Name: "x", Type: shmem.NumTypes}}},
		{"bits without mask", []Descriptor{{Name: "x", Type: shmem.TypeBits}}},
		{"zero mask", []Descriptor{{Name: "x", Type: shmem.TypeBits, Aux: BitMask(0)}}},
		{"multi-bit mask", []Descriptor{{Name: "x", Type: shmem.TypeBits, Aux: BitMask(0x3)}}},
		{"precision on int", []Descriptor{{Name: "x", Type: shmem.TypeU16, Aux: Precision(1)}}},
		{"case on u16", []Descriptor{{Name: "x", Type: shmem.TypeU16, Aux: SubCase(0)}}},
		{"case out of byte", []Descriptor{{Name: "x", Type: shmem.TypeU8, Aux: SubCase(2)}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewTable(tc.descs...)
			require.Error(t, err)
		})
	}
	require.Panics(t, func() { MustNewTable(Descriptor{}) })
}

func TestAux(t *testing.T) {
	m, ok := BitMask(0x10).Mask()
	require.True(t, ok)
	require.EqualValues(t, 0x10, m)
	_, ok = BitMask(0x10).Decimals()
	require.False(t, ok)
	n, ok := SubCase(1).Case()
	require.True(t, ok)
	require.EqualValues(t, 1, n)
	require.Equal(t, AuxNone, Aux{}.Kind())
	require.Equal(t, "°C", Celsius.Suffix())
	require.Equal(t, "Wh", WattHour.Suffix())
	require.Equal(t, "", UnitNone.Suffix())
}
