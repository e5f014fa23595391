// Package hash provides hashing utilities.
package hash

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	gohash "hash"
	"math"
)

// Digest accumulates a SHA256 over a sequence of typed fields. Every field
// is length- or width-prefixed, so ("ab", "c") and ("a", "bc") differ.
type Digest struct {
	h   gohash.Hash
	buf [8]byte
}

// NewDigest starts an empty digest.
func NewDigest() *Digest {
	return &Digest{h: sha256.New()}
}

// Int adds an integer field.
func (d *Digest) Int(v int64) *Digest {
	binary.BigEndian.PutUint64(d.buf[:], uint64(v))
	d.h.Write(d.buf[:])
	return d
}

// Float adds a float field by its bit pattern.
func (d *Digest) Float(v float64) *Digest {
	binary.BigEndian.PutUint64(d.buf[:], math.Float64bits(v))
	d.h.Write(d.buf[:])
	return d
}

// String adds a string field.
func (d *Digest) String(s string) *Digest {
	d.Int(int64(len(s)))
	d.h.Write([]byte(s))
	return d
}

// Sum returns the hex digest. The digest can keep accumulating afterwards.
func (d *Digest) Sum() string {
	return hex.EncodeToString(d.h.Sum(nil))
}

// Short returns the first n characters of Sum.
func (d *Digest) Short(n int) string {
	s := d.Sum()
	if n > len(s) {
		return s
	}
	return s[:n]
}
