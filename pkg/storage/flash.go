package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"sync"
)

// Flash is the block store the snapshot lives in.
type Flash interface {
	// Load returns the stored words; valid is false if nothing usable
	// is stored.
	Load() (words []uint32, valid bool, err error)
	// Program replaces the stored words.
	Program(words []uint32) error
}

// ImageMagic starts every flash image.
const ImageMagic uint32 = 0x4b4e4c43

const imageHeaderSize = 8

var (
	// ErrBadImage indicates a corrupted flash image.
	ErrBadImage = errors.New("bad flash image")
)

// EncodeImage encodes words as magic, count, words and a trailing CRC32,
// all little-endian.
func EncodeImage(words []uint32) []byte {
	b := make([]byte, imageHeaderSize+4*len(words)+4)
	binary.LittleEndian.PutUint32(b[0:4], ImageMagic)
	binary.LittleEndian.PutUint32(b[4:8], uint32(len(words)))
	for i, w := range words {
		binary.LittleEndian.PutUint32(b[imageHeaderSize+4*i:], w)
	}
	crcAt := len(b) - 4
	binary.LittleEndian.PutUint32(b[crcAt:], crc32.ChecksumIEEE(b[:crcAt]))
	return b
}

// DecodeImage is the inverse of EncodeImage.
func DecodeImage(b []byte) ([]uint32, error) {
	if len(b) < imageHeaderSize+4 || binary.LittleEndian.Uint32(b[0:4]) != ImageMagic {
		return nil, ErrBadImage
	}
	count := binary.LittleEndian.Uint32(b[4:8])
	if uint64(len(b)) != imageHeaderSize+4*uint64(count)+4 {
		return nil, fmt.Errorf("%w: %d words in %d bytes", ErrBadImage, count, len(b))
	}
	crcAt := len(b) - 4
	if crc32.ChecksumIEEE(b[:crcAt]) != binary.LittleEndian.Uint32(b[crcAt:]) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrBadImage)
	}
	words := make([]uint32, count)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(b[imageHeaderSize+4*i:])
	}
	return words, nil
}

// FileFlash keeps the image in a file, replaced atomically on Program.
type FileFlash struct {
	Path string
}

// Load implements Flash. A missing or corrupted file is not an error,
// only an invalid snapshot.
func (f *FileFlash) Load() ([]uint32, bool, error) {
	b, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	words, err := DecodeImage(b)
	if err != nil {
		return nil, false, nil
	}
	return words, true, nil
}

// Program implements Flash.
func (f *FileFlash) Program(words []uint32) error {
	tmp, err := os.CreateTemp(filepath.Dir(f.Path), filepath.Base(f.Path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err = tmp.Write(EncodeImage(words)); err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.Path)
}

// MemFlash keeps the image in memory.
type MemFlash struct {
	lock     sync.Mutex
	image    []byte
	programs int
}

// Load implements Flash.
func (f *MemFlash) Load() ([]uint32, bool, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.image == nil {
		return nil, false, nil
	}
	words, err := DecodeImage(f.image)
	return words, err == nil, nil
}

// Program implements Flash.
func (f *MemFlash) Program(words []uint32) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.image = EncodeImage(words)
	f.programs++
	return nil
}

// Programs returns how many times the image was programmed.
func (f *MemFlash) Programs() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.programs
}
