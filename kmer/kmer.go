// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package kmer implements the 2-bit nucleotide encoding, window masks and
// reverse-complement arithmetic that the burst-trie index and the seed
// search are built on.
package kmer

import (
	"github.com/pkg/errors"
)

// MinL and MaxL bound the supported seed window length. L must be even.
const (
	MinL     = 8
	MaxL     = 26
	DefaultL = 18
)

// ErrOddLength is returned when L is not even.
var ErrOddLength = errors.New("kmer: seed length L must be even")

// ErrOutOfRange is returned when L falls outside [MinL, MaxL].
var ErrOutOfRange = errors.New("kmer: seed length L out of range [8,26]")

// Params holds the derived quantities of spec.md section 3: P = L/2,
// K = L+1, and the two masks.
type Params struct {
	L      int
	P      int
	K      int
	Mask32 uint32
	Mask64 uint64
}

// NewParams validates L and computes the derived seed-window constants.
func NewParams(l int) (Params, error) {
	if l < MinL || l > MaxL {
		return Params{}, ErrOutOfRange
	}
	if l%2 != 0 {
		return Params{}, ErrOddLength
	}
	k := l + 1
	var mask32 uint32
	if l >= 32 {
		mask32 = ^uint32(0)
	} else {
		mask32 = uint32(1)<<uint(l) - 1
	}
	mask64 := uint64(2)<<uint(2*k-1) - 1
	return Params{L: l, P: l / 2, K: k, Mask32: mask32, Mask64: mask64}, nil
}

// base2bit maps an ASCII nucleotide code to its 2-bit value. N (and any
// unrecognized byte) maps to A (0), matching spec.md section 3: "ambiguous
// maps to A for indexing".
var base2bit = [256]byte{}

// isACGT records, per ASCII byte, whether the base is one of A/C/G/T (upper
// or lower case), used by the ambiguous-base filter during scanning.
var isACGT = [256]bool{}

func init() {
	for i := range base2bit {
		base2bit[i] = 0
	}
	set := func(ch byte, v byte) {
		base2bit[ch] = v
		isACGT[ch] = true
	}
	set('A', 0)
	set('a', 0)
	set('C', 1)
	set('c', 1)
	set('G', 2)
	set('g', 2)
	set('T', 3)
	set('t', 3)
	set('U', 3)
	set('u', 3)
}

// Encode2Bit returns the 2-bit code for a single ASCII nucleotide byte.
// N, and any other ambiguous byte, encodes as 0 (A), per spec.md section 3.
func Encode2Bit(b byte) byte {
	return base2bit[b]
}

// IsDefinite reports whether b is an unambiguous A/C/G/T/U base.
func IsDefinite(b byte) bool {
	return isACGT[b]
}

// Encode32 packs every base of seq (2 bits each, first base in the
// highest-order pair) into a uint32; for more than 16 bases only the last
// 16 remain. Used for the L/2-mer half-window.
func Encode32(seq []byte) uint32 {
	var v uint32
	for _, b := range seq {
		v = v<<2 | uint32(Encode2Bit(b))
	}
	return v
}

// Encode64 packs up to 32 bases of seq into a uint64. Used for the full
// (L+1)-mer window.
func Encode64(seq []byte) uint64 {
	var v uint64
	for _, b := range seq {
		v = v<<2 | uint64(Encode2Bit(b))
	}
	return v
}

// complement2 complements a single 2-bit base: A<->T, C<->G.
func complement2(v byte) byte {
	return v ^ 3
}

// RevComp32 reverse-complements a packed n-base kmer stored in the low 2n
// bits of v.
func RevComp32(v uint32, n int) uint32 {
	var out uint32
	for i := 0; i < n; i++ {
		base := byte(v & 3)
		v >>= 2
		out = out<<2 | uint32(complement2(base))
	}
	return out
}

// RevComp64 reverse-complements a packed n-base kmer stored in the low 2n
// bits of v.
func RevComp64(v uint64, n int) uint64 {
	var out uint64
	for i := 0; i < n; i++ {
		base := byte(v & 3)
		v >>= 2
		out = out<<2 | uint64(complement2(base))
	}
	return out
}

// complementTable maps an ASCII nucleotide byte to its complement, used by
// ReverseComplementSeq. Matches A<->T, C<->G, N<->N and preserves case.
var complementTable = buildComplementTable()

func buildComplementTable() [256]byte {
	var t [256]byte
	for i := range t {
		t[i] = 'N'
	}
	pairs := []struct{ a, b byte }{
		{'A', 'T'}, {'a', 't'},
		{'C', 'G'}, {'c', 'g'},
		{'N', 'N'}, {'n', 'n'},
	}
	for _, p := range pairs {
		t[p.a] = p.b
		t[p.b] = p.a
	}
	return t
}

// ReverseComplementSeq returns the reverse complement of an ASCII sequence,
// using the A<->T, C<->G, N<->N table of spec.md section 3.
func ReverseComplementSeq(seq []byte) []byte {
	out := make([]byte, len(seq))
	n := len(seq)
	for i, b := range seq {
		out[n-1-i] = complementTable[b]
	}
	return out
}

// Encode5 encodes seq into the 5-letter indexing alphabet (A=0,C=1,G=2,T=3,
// N=4) used by Read.isequence before flip34 is applied.
func Encode5(seq []byte) []byte {
	out := make([]byte, len(seq))
	for i, b := range seq {
		if IsDefinite(b) {
			out[i] = Encode2Bit(b)
		} else {
			out[i] = 4
		}
	}
	return out
}
