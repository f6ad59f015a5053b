package terminal

import "unicode/utf8"

// maxCarry is the longest incomplete UTF-8 tail that can survive a chunk boundary.
const maxCarry = utf8.UTFMax - 1

// Decoder turns a byte stream, delivered in arbitrary chunks, into runes.
// An incomplete trailing sequence is held until the next chunk arrives.
type Decoder struct {
	carry [maxCarry]byte
	n     int
}

// Decode appends the runes decoded from p, prefixed by any pending tail, to dst.
// Invalid bytes decode as utf8.RuneError and consume one byte each.
func (d *Decoder) Decode(dst []rune, p []byte) []rune {
	buf := p
	if d.n > 0 {
		buf = make([]byte, 0, d.n+len(p))
		buf = append(buf, d.carry[:d.n]...)
		buf = append(buf, p...)
		d.n = 0
	}
	for len(buf) > 0 {
		if !utf8.FullRune(buf) {
			// FullRune only reports false for a valid prefix shorter than UTFMax.
			d.n = copy(d.carry[:], buf)
			break
		}
		r, size := utf8.DecodeRune(buf)
		dst = append(dst, r)
		buf = buf[size:]
	}
	return dst
}

// Pending reports how many undecoded bytes are held.
func (d *Decoder) Pending() int { return d.n }

// Flush discards the pending tail and returns its length.
func (d *Decoder) Flush() int {
	n := d.n
	d.n = 0
	return n
}
