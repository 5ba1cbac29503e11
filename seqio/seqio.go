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

// Package seqio provides a single-pass scanner over FASTA or FASTQ streams,
// including the gzip/format auto-detection of spec.md section 4.7.
package seqio

import (
	"bufio"
	"bytes"
	"io"
	"unicode"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// Format identifies the record framing of the underlying stream.
type Format int

const (
	// FASTA is the 2-line-per-record format ('>' header, sequence).
	FASTA Format = iota
	// FASTQ is the 4-line-per-record format ('@' header, sequence, '+'
	// line, quality).
	FASTQ
)

var (
	// ErrInvalid is returned when a record does not follow its format's
	// framing rules.
	ErrInvalid = errors.New("seqio: invalid record")
	// ErrShort is returned when a stream ends mid-record.
	ErrShort = errors.New("seqio: truncated record")
	// ErrFormatDetection is returned when the stream is neither
	// printable ASCII nor a valid gzip stream, per spec.md section 4.7.
	ErrFormatDetection = errors.New("seqio: cannot detect gzip or ASCII format")
)

// Record is one parsed FASTA or FASTQ entry.
type Record struct {
	Header   string // without the leading '>' or '@'
	Sequence string
	Quality  string // empty for FASTA
}

// Scanner reads successive Records from a single underlying stream.
type Scanner struct {
	b      *bufio.Scanner
	format Format
	err    error
}

// NewScanner creates a Scanner over r, which must already be decompressed.
func NewScanner(r io.Reader, format Format) *Scanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	return &Scanner{b: s, format: format}
}

// Scan reads the next record into rec. It returns false at EOF or on error;
// callers must check Err() after a false return.
func (s *Scanner) Scan(rec *Record) bool {
	if s.err != nil {
		return false
	}
	if !s.b.Scan() {
		if s.err = s.b.Err(); s.err == nil {
			s.err = io.EOF
		}
		return false
	}
	header := s.b.Text()
	switch s.format {
	case FASTA:
		if len(header) == 0 || header[0] != '>' {
			s.err = ErrInvalid
			return false
		}
		rec.Header = header[1:]
		if !s.mustScan() {
			return false
		}
		rec.Sequence = s.b.Text()
		rec.Quality = ""
	case FASTQ:
		if len(header) == 0 || header[0] != '@' {
			s.err = ErrInvalid
			return false
		}
		rec.Header = header[1:]
		if !s.mustScan() {
			return false
		}
		rec.Sequence = s.b.Text()
		if !s.mustScan() {
			return false
		}
		plus := s.b.Text()
		if len(plus) == 0 || plus[0] != '+' {
			s.err = ErrInvalid
			return false
		}
		if !s.mustScan() {
			return false
		}
		rec.Quality = s.b.Text()
	}
	return true
}

func (s *Scanner) mustScan() bool {
	if !s.b.Scan() {
		if s.err = s.b.Err(); s.err == nil {
			s.err = ErrShort
		}
		return false
	}
	return true
}

// Err returns the scanning error, if any (nil at clean EOF).
func (s *Scanner) Err() error {
	if s.err == io.EOF {
		return nil
	}
	return s.err
}

// sniffWindow is the number of leading bytes inspected by Detect, per
// spec.md section 4.7 ("read up to 100 bytes").
const sniffWindow = 100

// Detect peeks at the start of r to decide whether it is gzip-compressed
// and whether its payload is FASTA or FASTQ, returning a Reader positioned
// at the start of the (possibly decompressed) stream. It implements the
// exact rule of spec.md section 4.7: inspect up to 100 bytes; any byte
// outside printable/whitespace ASCII means gzip; otherwise the first
// non-empty line's leading byte ('>' or '@') decides FASTA vs FASTQ.
func Detect(r io.Reader) (io.Reader, Format, bool, error) {
	br := bufio.NewReaderSize(r, 4096)
	peek, err := br.Peek(sniffWindow)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, 0, false, errors.Wrap(err, "seqio: peek")
	}
	if looksGzip(peek) {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, 0, false, errors.Wrap(err, "seqio: gzip header")
		}
		inner := bufio.NewReaderSize(gz, 4096)
		innerPeek, _ := inner.Peek(sniffWindow)
		format, ok := sniffFormat(innerPeek)
		if !ok {
			return nil, 0, false, ErrFormatDetection
		}
		return inner, format, true, nil
	}
	format, ok := sniffFormat(peek)
	if !ok {
		return nil, 0, false, ErrFormatDetection
	}
	return br, format, false, nil
}

// looksGzip reports whether buf contains a byte outside printable ASCII or
// common whitespace, which spec.md section 4.7 treats as a gzip signal.
func looksGzip(buf []byte) bool {
	for _, b := range buf {
		if b == '\n' || b == '\r' || b == '\t' {
			continue
		}
		if b < 0x20 || b > 0x7e {
			return true
		}
	}
	return false
}

func sniffFormat(buf []byte) (Format, bool) {
	lines := bytes.Split(buf, []byte("\n"))
	for _, line := range lines {
		trimmed := bytes.TrimRightFunc(line, unicode.IsSpace)
		if len(trimmed) == 0 {
			continue
		}
		switch trimmed[0] {
		case '>':
			return FASTA, true
		case '@':
			return FASTQ, true
		default:
			return 0, false
		}
	}
	return 0, false
}
