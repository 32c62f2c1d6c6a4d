package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/corelink.go/pkg/framework"
	"github.com/robotalks/corelink.go/pkg/shmem"
)

func TestImageCodec(t *testing.T) {
	words := []uint32{1, 0xdeadbeef, 0}
	b := EncodeImage(words)
	decoded, err := DecodeImage(b)
	require.NoError(t, err)
	require.Equal(t, words, decoded)

	b[9] ^= 0xff
	_, err = DecodeImage(b)
	require.ErrorIs(t, err, ErrBadImage)
	_, err = DecodeImage(b[:10])
	require.ErrorIs(t, err, ErrBadImage)
	_, err = DecodeImage(nil)
	require.ErrorIs(t, err, ErrBadImage)
}

func TestFileFlash(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flash.img")
	f := &FileFlash{Path: path}

	_, valid, err := f.Load()
	require.NoError(t, err)
	require.False(t, valid)

	require.NoError(t, f.Program([]uint32{4, 5, 6}))
	words, valid, err := f.Load()
	require.NoError(t, err)
	require.True(t, valid)
	require.Equal(t, []uint32{4, 5, 6}, words)

	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0644))
	_, valid, err = f.Load()
	require.NoError(t, err)
	require.False(t, valid)
}

type failingFlash struct {
	MemFlash
	fail bool
}

func (f *failingFlash) Program(words []uint32) error {
	if f.fail {
		return errors.New("program failed")
	}
	return f.MemFlash.Program(words)
}

func TestRefresherSync(t *testing.T) {
	h, v := newHooks(t)
	flash := &failingFlash{}
	r := NewRefresher(h, flash)
	r.Boot()
	require.EqualValues(t, 100, v.U16(0))

	n, err := r.Sync()
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, 1, flash.Programs())

	v.Store(shmem.TypeU16, 0, 300)
	flash.fail = true
	_, err = r.Sync()
	require.Error(t, err)
	flash.fail = false
	n, err = r.Sync()
	require.NoError(t, err)
	require.Equal(t, 4, n)

	words, valid, err := flash.Load()
	require.NoError(t, err)
	require.True(t, valid)
	require.EqualValues(t, 300, words[1])

	// a reboot restores the programmed values
	h2, v2 := newHooks(t)
	NewRefresher(h2, flash).Boot()
	require.EqualValues(t, 300, v2.U16(0))
}

func TestRefresherInLoop(t *testing.T) {
	h, _ := newHooks(t)
	flash := &MemFlash{}
	r := NewRefresher(h, flash)
	r.Period = time.Hour
	r.Boot()

	l := fx.NewLoop().Add(r)
	l.Interval = time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, l.Run(ctx), context.DeadlineExceeded)
	require.Greater(t, l.Iterations(), uint64(1))
	require.Equal(t, 1, flash.Programs(), "period limits programming")
}
