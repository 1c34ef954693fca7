package bits

// Writer - MSB-first bit writer, the counterpart of Reader.
// Used mostly by tests to build syntactically exact bitstreams.
type Writer struct {
	buf  []byte // total buf
	byte byte   // current byte
	bits byte   // bits left in byte
	len  int    // current len of buf
}

func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) WriteBit(b byte) {
	if w.bits == 0 {
		if w.len != 0 {
			w.buf = append(w.buf, w.byte)
		}

		w.byte = 0
		w.bits = 7
		w.len++
	} else {
		w.bits--
	}

	w.byte |= (b & 0b1) << w.bits
}

func (w *Writer) WriteBits(v uint32, n byte) {
	for i := n - 1; i != 255; i-- {
		w.WriteBit(byte(v>>i) & 0b1)
	}
}

// WriteUEGolomb - write one unsigned Exp-Golomb value
func (w *Writer) WriteUEGolomb(v uint32) {
	v++

	var n byte
	for m := v; m > 1; m >>= 1 {
		n++
	}

	w.WriteBits(0, n)
	w.WriteBits(v, n+1)
}

// Bytes - written bits padded with zeros to a byte boundary
func (w *Writer) Bytes() []byte {
	// the current byte is flushed lazily, even when it is full
	if w.len > len(w.buf) {
		return append(w.buf, w.byte)
	}
	return w.buf
}
