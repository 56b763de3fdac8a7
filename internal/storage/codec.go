// Package storage persists the edited part of a terrain octree.
package storage

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// Kind is the tag byte that starts every encoded node.
type Kind uint8

const (
	// Unedited nodes carry no payload; the generator reproduces them.
	Unedited Kind = iota
	// Inner nodes are followed by their 8 children.
	Inner
	// Leaf nodes carry value, normal and material.
	Leaf
)

func (k Kind) String() string {
	switch k {
	case Unedited:
		return "unedited"
	case Inner:
		return "inner"
	case Leaf:
		return "leaf"
	}
	return "invalid"
}

// maxDepth bounds decoding recursion; a root of size 2^63 cannot be deeper.
const maxDepth = 64

// leafPayload is value, normal and material.
const leafPayload = 4 + 3*4 + 4

// Tree is the persisted form of an octree.
type Tree struct {
	Kind     Kind
	Children [8]*Tree
	Value    float32
	Normal   mgl32.Vec3
	Material uint32
}

// Count returns the number of encoded nodes. A nil tree encodes as one
// Unedited node.
func (t *Tree) Count() int {
	if t == nil {
		return 1
	}
	n := 1
	if t.Kind == Inner {
		for _, c := range t.Children {
			n += c.Count()
		}
	}
	return n
}

// Encode writes t in depth-first order, little endian. A nil tree or child
// is written as Unedited.
func Encode(w io.Writer, t *Tree) error {
	bw := bufio.NewWriter(w)
	if err := encode(bw, t); err != nil {
		return err
	}
	return errors.Wrap(bw.Flush(), "flush tree")
}

func encode(w *bufio.Writer, t *Tree) error {
	if t == nil {
		return w.WriteByte(byte(Unedited))
	}
	if err := w.WriteByte(byte(t.Kind)); err != nil {
		return errors.Wrap(err, "write tag")
	}
	switch t.Kind {
	case Unedited:
		return nil
	case Inner:
		for _, c := range t.Children {
			if err := encode(w, c); err != nil {
				return err
			}
		}
		return nil
	case Leaf:
		var buf [leafPayload]byte
		binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(t.Value))
		for i := 0; i < 3; i++ {
			binary.LittleEndian.PutUint32(buf[4+4*i:], math.Float32bits(t.Normal[i]))
		}
		binary.LittleEndian.PutUint32(buf[16:], t.Material)
		_, err := w.Write(buf[:])
		return errors.Wrap(err, "write leaf")
	}
	return errors.Errorf("cannot encode node kind %d", t.Kind)
}

// Decode reads one tree.
func Decode(r io.Reader) (*Tree, error) {
	return decode(bufio.NewReader(r), 0)
}

func decode(r *bufio.Reader, depth int) (*Tree, error) {
	if depth > maxDepth {
		return nil, errors.Errorf("tree deeper than %d levels", maxDepth)
	}
	tag, err := r.ReadByte()
	if err != nil {
		return nil, errors.Wrapf(eof(err), "read tag at depth %d", depth)
	}
	t := &Tree{Kind: Kind(tag)}
	switch t.Kind {
	case Unedited:
	case Inner:
		for i := range t.Children {
			if t.Children[i], err = decode(r, depth+1); err != nil {
				return nil, errors.Wrapf(err, "child %d", i)
			}
		}
	case Leaf:
		var buf [leafPayload]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, errors.Wrapf(eof(err), "read leaf at depth %d", depth)
		}
		t.Value = math.Float32frombits(binary.LittleEndian.Uint32(buf[0:]))
		for i := 0; i < 3; i++ {
			t.Normal[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4+4*i:]))
		}
		t.Material = binary.LittleEndian.Uint32(buf[16:])
	default:
		return nil, errors.Errorf("unknown node tag %d at depth %d", tag, depth)
	}
	return t, nil
}

// A tree that ends early is always truncated, never a clean end.
func eof(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

// Marshal encodes t into a byte slice.
func Marshal(t *Tree) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a tree and rejects trailing bytes.
func Unmarshal(data []byte) (*Tree, error) {
	r := bytes.NewReader(data)
	br := bufio.NewReader(r)
	t, err := decode(br, 0)
	if err != nil {
		return nil, err
	}
	if _, err := br.ReadByte(); err != io.EOF {
		return nil, errors.New("trailing bytes after tree")
	}
	return t, nil
}
