package index

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

const (
	tagNone uint8 = 0
	tagSome uint8 = 1

	// Upper bound for a single length prefix. Anything larger is treated as
	// corruption instead of an allocation request.
	maxLength = 1 << 31

	// Largest dimension accepted from a stream.
	maxDimension = 1 << 20

	// Sequences are read in chunks of at most this many elements, so a
	// truncated stream fails before a large length turns into a large
	// allocation.
	chunkSize = 4096
)

// Persist writes the whole index to w as one record:
//
//	dimension u64 | next_id u64 | vectors | root
//
// Integers are little endian, sequences carry a u64 length prefix and
// optional nodes a u8 tag. A node is point, id, metadata, left, right.
func (idx *Index) Persist(w io.Writer) error {
	bw := bufio.NewWriter(w)
	enc := &encoder{w: bw}

	enc.u64(uint64(idx.dimension))
	enc.u64(uint64(idx.nextID))

	enc.u64(uint64(len(idx.vectors)))
	for _, vec := range idx.vectors {
		enc.floats(vec)
	}

	enc.node(idx.root)

	if enc.err != nil {
		return fmt.Errorf("persist index: %w", enc.err)
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("persist index: %w", err)
	}

	return nil
}

type encoder struct {
	w   *bufio.Writer
	buf [8]byte
	err error
}

func (e *encoder) write(p []byte) {
	if e.err != nil {
		return
	}

	_, e.err = e.w.Write(p)
}

func (e *encoder) u64(v uint64) {
	binary.LittleEndian.PutUint64(e.buf[:], v)
	e.write(e.buf[:8])
}

func (e *encoder) tag(t uint8) {
	e.buf[0] = t
	e.write(e.buf[:1])
}

func (e *encoder) floats(vec []float32) {
	e.u64(uint64(len(vec)))
	for _, f := range vec {
		binary.LittleEndian.PutUint32(e.buf[:], math.Float32bits(f))
		e.write(e.buf[:4])
	}
}

func (e *encoder) str(s string) {
	e.u64(uint64(len(s)))
	e.write([]byte(s))
}

func (e *encoder) node(n *node) {
	if n == nil {
		e.tag(tagNone)
		return
	}

	e.tag(tagSome)
	e.floats(n.point)
	e.u64(uint64(n.id))
	e.str(n.metadata)
	e.node(n.left)
	e.node(n.right)
}

// Restore replaces the index with the record read from r. The stream is
// decoded and checked into a fresh index first; on any error the receiver is
// left exactly as it was.
func (idx *Index) Restore(r io.Reader) error {
	dec := &decoder{r: bufio.NewReader(r)}

	restored, err := dec.index()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDeserialize, err)
	}

	*idx = *restored
	return nil
}

type decoder struct {
	r   *bufio.Reader
	buf [8]byte
}

func (d *decoder) read(n int) ([]byte, error) {
	if _, err := io.ReadFull(d.r, d.buf[:n]); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}

	return d.buf[:n], nil
}

func (d *decoder) u64() (uint64, error) {
	b, err := d.read(8)
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint64(b), nil
}

func (d *decoder) length() (int, error) {
	n, err := d.u64()
	if err != nil {
		return 0, err
	}

	if n > maxLength {
		return 0, fmt.Errorf("length %d out of range", n)
	}

	return int(n), nil
}

func (d *decoder) tag() (uint8, error) {
	b, err := d.read(1)
	if err != nil {
		return 0, err
	}

	switch t := b[0]; t {
	case tagNone, tagSome:
		return t, nil
	default:
		return 0, fmt.Errorf("invalid option tag %d", t)
	}
}

func (d *decoder) floats(dimension int) ([]float32, error) {
	n, err := d.length()
	if err != nil {
		return nil, err
	}

	if n != dimension {
		return nil, fmt.Errorf("vector has %d coordinates, expected %d", n, dimension)
	}

	vec := make([]float32, 0, min(n, chunkSize))
	for len(vec) < n {
		b, err := d.read(4)
		if err != nil {
			return nil, err
		}

		vec = append(vec, math.Float32frombits(binary.LittleEndian.Uint32(b)))
	}

	return vec, nil
}

func (d *decoder) str() (string, error) {
	n, err := d.length()
	if err != nil {
		return "", err
	}

	b := make([]byte, 0, min(n, chunkSize))
	for len(b) < n {
		chunk := min(n-len(b), chunkSize)

		start := len(b)
		b = append(b, make([]byte, chunk)...)
		if _, err := io.ReadFull(d.r, b[start:]); err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return "", err
		}
	}

	return string(b), nil
}

func (d *decoder) index() (*Index, error) {
	dimension, err := d.length()
	if err != nil {
		return nil, err
	}

	if dimension == 0 || dimension > maxDimension {
		return nil, fmt.Errorf("dimension %d out of range", dimension)
	}

	nextID, err := d.length()
	if err != nil {
		return nil, err
	}

	count, err := d.length()
	if err != nil {
		return nil, err
	}

	if count != nextID {
		return nil, fmt.Errorf("%d vectors for next id %d", count, nextID)
	}

	idx := New(dimension)
	idx.nextID = nextID

	for i := 0; i < count; i++ {
		vec, err := d.floats(dimension)
		if err != nil {
			return nil, fmt.Errorf("vector %d: %w", i, err)
		}

		idx.vectors = append(idx.vectors, vec)
	}

	seen := make([]bool, nextID)
	root, err := d.node(idx, seen)
	if err != nil {
		return nil, err
	}

	for id, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("id %d has no node", id)
		}
	}

	idx.root = root

	// Every id must be reachable by the insertion descent or Metadata would
	// silently miss it.
	for id := range seen {
		if idx.find(id) == nil {
			return nil, fmt.Errorf("node %d is not on its descent path", id)
		}
	}

	return idx, nil
}

func sameBits(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if math.Float32bits(a[i]) != math.Float32bits(b[i]) {
			return false
		}
	}

	return true
}

// node decodes one optional node. A node's point must match the stored
// vector for its id bit for bit; the node then references that vector.
func (d *decoder) node(idx *Index, seen []bool) (*node, error) {
	t, err := d.tag()
	if err != nil {
		return nil, err
	}

	if t == tagNone {
		return nil, nil
	}

	point, err := d.floats(idx.dimension)
	if err != nil {
		return nil, err
	}

	rawID, err := d.u64()
	if err != nil {
		return nil, err
	}

	if rawID >= uint64(len(seen)) {
		return nil, fmt.Errorf("node id %d out of range", rawID)
	}

	id := int(rawID)
	if seen[id] {
		return nil, fmt.Errorf("duplicate node id %d", id)
	}
	seen[id] = true

	if !sameBits(point, idx.vectors[id]) {
		return nil, fmt.Errorf("node %d point differs from stored vector", id)
	}

	metadata, err := d.str()
	if err != nil {
		return nil, err
	}

	n := &node{
		point:    idx.vectors[id],
		id:       id,
		metadata: metadata,
	}

	if n.left, err = d.node(idx, seen); err != nil {
		return nil, err
	}

	if n.right, err = d.node(idx, seen); err != nil {
		return nil, err
	}

	return n, nil
}
