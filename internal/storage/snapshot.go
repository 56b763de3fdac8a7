package storage

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// magic starts every snapshot file; the last byte is the format version.
var magic = [...]byte{'S', 'D', 'F', 'T', 1}

// WriteSnapshot stores t zstd-compressed at path. The file is written next
// to path and renamed into place.
func WriteSnapshot(path string, t *Tree) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create snapshot dir")
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "create temp snapshot")
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = writeCompressed(tmp, t); err != nil {
		return multierr.Combine(err, tmp.Close())
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp snapshot")
	}
	return errors.Wrap(os.Rename(tmp.Name(), path), "rename snapshot")
}

func writeCompressed(w io.Writer, t *Tree) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.Write(magic[:]); err != nil {
		return errors.Wrap(err, "write magic")
	}
	enc, err := zstd.NewWriter(bw, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return errors.Wrap(err, "zstd writer")
	}
	if err := Encode(enc, t); err != nil {
		return multierr.Combine(err, enc.Close())
	}
	if err := enc.Close(); err != nil {
		return errors.Wrap(err, "close zstd")
	}
	return errors.Wrap(bw.Flush(), "flush snapshot")
}

// ReadSnapshot loads a tree written by WriteSnapshot.
func ReadSnapshot(path string) (*Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open snapshot")
	}
	defer f.Close()
	return readCompressed(f)
}

func readCompressed(r io.Reader) (*Tree, error) {
	br := bufio.NewReader(r)
	var head [len(magic)]byte
	if _, err := io.ReadFull(br, head[:]); err != nil {
		return nil, errors.Wrap(eof(err), "read magic")
	}
	if head != magic {
		return nil, errors.Errorf("not a terrain snapshot (header %q)", head[:])
	}
	dec, err := zstd.NewReader(br)
	if err != nil {
		return nil, errors.Wrap(err, "zstd reader")
	}
	defer dec.Close()
	t, err := Decode(dec)
	return t, errors.Wrap(err, "decode snapshot")
}
