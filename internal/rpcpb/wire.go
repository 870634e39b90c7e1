package rpcpb

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// writer is a tiny big-endian, length-prefixed binary writer shared by
// every message's Marshal method.
type writer struct {
	buf bytes.Buffer
}

func (w *writer) byte(b byte) { w.buf.WriteByte(b) }

func (w *writer) uint64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

func (w *writer) uint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *writer) fixed(b []byte) { w.buf.Write(b) }

func (w *writer) bytesField(b []byte) {
	w.uint32(uint32(len(b)))
	w.buf.Write(b)
}

func (w *writer) bytes() []byte { return w.buf.Bytes() }

// reader is the corresponding unmarshaling cursor.
type reader struct {
	b   []byte
	pos int
}

func newReader(b []byte) *reader { return &reader{b: b} }

func (r *reader) byte() (byte, error) {
	if r.pos+1 > len(r.b) {
		return 0, fmt.Errorf("rpcpb: truncated byte")
	}
	v := r.b[r.pos]
	r.pos++
	return v, nil
}

func (r *reader) uint64() (uint64, error) {
	if r.pos+8 > len(r.b) {
		return 0, fmt.Errorf("rpcpb: truncated uint64")
	}
	v := binary.BigEndian.Uint64(r.b[r.pos : r.pos+8])
	r.pos += 8
	return v, nil
}

func (r *reader) uint32() (uint32, error) {
	if r.pos+4 > len(r.b) {
		return 0, fmt.Errorf("rpcpb: truncated uint32")
	}
	v := binary.BigEndian.Uint32(r.b[r.pos : r.pos+4])
	r.pos += 4
	return v, nil
}

func (r *reader) fixed(n int) ([]byte, error) {
	if r.pos+n > len(r.b) {
		return nil, fmt.Errorf("rpcpb: truncated fixed(%d)", n)
	}
	v := r.b[r.pos : r.pos+n]
	r.pos += n
	return v, nil
}

func (r *reader) bytesField() ([]byte, error) {
	n, err := r.uint32()
	if err != nil {
		return nil, err
	}
	return r.fixed(int(n))
}
