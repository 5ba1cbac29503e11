package read

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

var order = binary.BigEndian

// MarshalState encodes the alignment state the KVDB carries between
// phases: the flags, counters and Alignv vector of spec.md section 4.8,
// each Align size-prefixed and the vector itself length-prefixed.
func (r *Read) MarshalState() []byte {
	buf := make([]byte, 0, 32+len(r.Alignv)*48)
	var flags byte
	if r.IsHit {
		flags |= 1
	}
	if r.IsDenovo {
		flags |= 2
	}
	if r.IsIDCov {
		flags |= 4
	}
	if r.Is03 {
		flags |= 8
	}
	buf = append(buf, flags)
	buf = appendU32(buf, uint32(r.CYidYcov))
	buf = appendU32(buf, uint32(r.MaxSWScore))
	buf = appendI32(buf, int32(r.MaxIndex))
	buf = appendI32(buf, int32(r.MinIndex))

	buf = appendU32(buf, uint32(len(r.Alignv)))
	for _, a := range r.Alignv {
		enc := marshalAlign(a)
		buf = appendU32(buf, uint32(len(enc)))
		buf = append(buf, enc...)
	}
	return buf
}

// UnmarshalState decodes a buffer written by MarshalState, replacing r's
// alignment state in place. The read's identity fields (ID, Header,
// Sequence, ...) are left untouched.
func (r *Read) UnmarshalState(data []byte) error {
	if len(data) < 1 {
		return errors.New("read: state buffer too short")
	}
	flags := data[0]
	r.IsHit = flags&1 != 0
	r.IsDenovo = flags&2 != 0
	r.IsIDCov = flags&4 != 0
	r.Is03 = flags&8 != 0
	data = data[1:]

	var err error
	var cYidYcov, maxSW uint32
	if cYidYcov, data, err = readU32(data); err != nil {
		return err
	}
	r.CYidYcov = int(cYidYcov)
	if maxSW, data, err = readU32(data); err != nil {
		return err
	}
	r.MaxSWScore = int(maxSW)
	var maxIdx, minIdx int32
	if maxIdx, data, err = readI32(data); err != nil {
		return err
	}
	r.MaxIndex = int(maxIdx)
	if minIdx, data, err = readI32(data); err != nil {
		return err
	}
	r.MinIndex = int(minIdx)

	var n uint32
	if n, data, err = readU32(data); err != nil {
		return err
	}
	r.Alignv = make([]Align, 0, n)
	for i := uint32(0); i < n; i++ {
		var size uint32
		if size, data, err = readU32(data); err != nil {
			return err
		}
		if uint32(len(data)) < size {
			return errors.New("read: truncated align record")
		}
		a, err := unmarshalAlign(data[:size])
		if err != nil {
			return err
		}
		r.Alignv = append(r.Alignv, a)
		data = data[size:]
	}
	return nil
}

func marshalAlign(a Align) []byte {
	buf := make([]byte, 0, 48)
	buf = appendU32(buf, a.RefNum)
	buf = appendU16(buf, a.IndexNum)
	buf = appendU16(buf, a.Part)
	if a.Strand {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	buf = appendI32(buf, a.RefBegin1)
	buf = appendI32(buf, a.RefEnd1)
	buf = appendI32(buf, a.ReadBegin1)
	buf = appendI32(buf, a.ReadEnd1)
	buf = appendU16(buf, a.Score1)
	buf = appendU32(buf, a.ReadLen)
	buf = appendU32(buf, a.Mismatches)
	buf = appendU32(buf, uint32(len(a.Cigar)))
	for _, c := range a.Cigar {
		buf = appendU32(buf, c)
	}
	return buf
}

func unmarshalAlign(data []byte) (Align, error) {
	var a Align
	var err error
	if a.RefNum, data, err = readU32(data); err != nil {
		return a, err
	}
	if a.IndexNum, data, err = readU16(data); err != nil {
		return a, err
	}
	if a.Part, data, err = readU16(data); err != nil {
		return a, err
	}
	if len(data) < 1 {
		return a, errors.New("read: truncated align strand byte")
	}
	a.Strand = data[0] != 0
	data = data[1:]
	if a.RefBegin1, data, err = readI32(data); err != nil {
		return a, err
	}
	if a.RefEnd1, data, err = readI32(data); err != nil {
		return a, err
	}
	if a.ReadBegin1, data, err = readI32(data); err != nil {
		return a, err
	}
	if a.ReadEnd1, data, err = readI32(data); err != nil {
		return a, err
	}
	if a.Score1, data, err = readU16(data); err != nil {
		return a, err
	}
	if a.ReadLen, data, err = readU32(data); err != nil {
		return a, err
	}
	if a.Mismatches, data, err = readU32(data); err != nil {
		return a, err
	}
	var n uint32
	if n, data, err = readU32(data); err != nil {
		return a, err
	}
	a.Cigar = make([]uint32, 0, n)
	for i := uint32(0); i < n; i++ {
		var c uint32
		if c, data, err = readU32(data); err != nil {
			return a, err
		}
		a.Cigar = append(a.Cigar, c)
	}
	return a, nil
}

func appendU16(buf []byte, v uint16) []byte {
	var b [2]byte
	order.PutUint16(b[:], v)
	return append(buf, b[:]...)
}

func appendU32(buf []byte, v uint32) []byte {
	var b [4]byte
	order.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func appendI32(buf []byte, v int32) []byte {
	return appendU32(buf, uint32(v))
}

func readU16(data []byte) (uint16, []byte, error) {
	if len(data) < 2 {
		return 0, nil, errors.New("read: truncated uint16 field")
	}
	return order.Uint16(data[:2]), data[2:], nil
}

func readU32(data []byte) (uint32, []byte, error) {
	if len(data) < 4 {
		return 0, nil, errors.New("read: truncated uint32 field")
	}
	return order.Uint32(data[:4]), data[4:], nil
}

func readI32(data []byte) (int32, []byte, error) {
	v, rest, err := readU32(data)
	return int32(v), rest, err
}
