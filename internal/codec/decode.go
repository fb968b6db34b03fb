package codec

import "encoding/binary"

// Reader walks bytes EncodeUniverse produced, in the same field order.
// It exists solely for internal/snapshot to rehydrate a Universe after
// a restart; the hash chain never decodes, it only compares freshly
// re-encoded bytes, so this reverse direction has exactly one caller.
type Reader struct {
	b   []byte
	pos int
}

// NewReader wraps b for sequential decoding.
func NewReader(b []byte) *Reader { return &Reader{b: b} }

func (r *Reader) U8() uint8 {
	v := r.b[r.pos]
	r.pos++
	return v
}

func (r *Reader) U32() uint32 {
	v := binary.LittleEndian.Uint32(r.b[r.pos : r.pos+4])
	r.pos += 4
	return v
}

func (r *Reader) U64() uint64 {
	v := binary.LittleEndian.Uint64(r.b[r.pos : r.pos+8])
	r.pos += 8
	return v
}

func (r *Reader) I32() int32 { return int32(r.U32()) }

func (r *Reader) Str() string {
	n := r.U32()
	s := string(r.b[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s
}

func (r *Reader) BytesPrefixed() []byte {
	n := r.U32()
	v := make([]byte, n)
	copy(v, r.b[r.pos:r.pos+int(n)])
	r.pos += int(n)
	return v
}

// Done reports whether every byte has been consumed.
func (r *Reader) Done() bool { return r.pos == len(r.b) }
