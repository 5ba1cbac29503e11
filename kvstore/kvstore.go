// Package kvstore implements C7 KVDB (spec.md section 4.8): an ordered,
// transactionally durable key-value store carrying a Read's alignment
// state across the align / post-process / report phases. Keys are the
// read's numeric id, big-endian encoded so byte order matches numeric
// order; values are read.Read's MarshalState encoding.
package kvstore

import (
	"encoding/binary"
	"io"
	"sync"

	"github.com/golang/snappy"
	"github.com/pkg/errors"
	"modernc.org/kv"

	"github.com/biotools/rnafilter/read"
)

var order = binary.BigEndian

// DB wraps a modernc.org/kv store. modernc.org/kv does not support
// concurrent transactions on one handle, and spec.md section 5 only
// guarantees "each read id is written by at most one thread" — it does not
// make the store itself safe for concurrent transactions, so every write
// is serialized behind mu.
type DB struct {
	mu  sync.Mutex
	kv  *kv.DB
}

// Open opens the store at path, creating the store file if it does not
// already exist. The directory holding path is not created here.
func Open(path string) (*DB, error) {
	opts := &kv.Options{}
	db, err := kv.Open(path, opts)
	if err == nil {
		return &DB{kv: db}, nil
	}
	db, err = kv.Create(path, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "kvstore: create %s", path)
	}
	return &DB{kv: db}, nil
}

// keyFor encodes a read id as an 8-byte big-endian key, per spec.md
// section 4.8 ("Keys: decimal read ids") — big-endian bytes rather than
// ASCII decimal digits, so the store's natural byte-lexicographic default
// compare still orders keys numerically (spec.md never requires a range
// scan over KVDB, but there is no reason to give up that property).
func keyFor(id uint64) []byte {
	var b [8]byte
	order.PutUint64(b[:], id)
	return b[:]
}

// Put persists r's alignment state under id, overwriting any prior state
// for that id. Called after each read is aligned against a given shard,
// per spec.md section 4.8's usage note.
func (d *DB) Put(id uint64, r *read.Read) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.kv.BeginTransaction(); err != nil {
		return errors.Wrap(err, "kvstore: begin transaction")
	}
	if err := d.kv.Set(keyFor(id), snappy.Encode(nil, r.MarshalState())); err != nil {
		d.kv.Rollback()
		return errors.Wrapf(err, "kvstore: set id %d", id)
	}
	if err := d.kv.Commit(); err != nil {
		return errors.Wrapf(err, "kvstore: commit id %d", id)
	}
	return nil
}

// Get loads id's alignment state into r, reporting found=false if no
// state has been written for that id yet.
func (d *DB) Get(id uint64, r *read.Read) (found bool, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	v, err := d.kv.Get(nil, keyFor(id))
	if err != nil {
		return false, errors.Wrapf(err, "kvstore: get id %d", id)
	}
	if v == nil {
		return false, nil
	}
	raw, err := snappy.Decode(nil, v)
	if err != nil {
		return false, errors.Wrapf(err, "kvstore: decompress id %d", id)
	}
	if err := r.UnmarshalState(raw); err != nil {
		return false, errors.Wrapf(err, "kvstore: decode id %d", id)
	}
	return true, nil
}

// ForEach walks every (id, Read) pair in ascending id order, stopping at
// the first error fn returns. It is used by post-process to build the OTU
// map and de-novo set over the whole KVDB without holding every read in
// memory at once (spec.md section 4.8's "keeps per-read memory bounded").
func (d *DB) ForEach(fn func(id uint64, r *read.Read) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	it, err := d.kv.SeekFirst()
	if err != nil {
		if err == io.EOF {
			return nil
		}
		return errors.Wrap(err, "kvstore: seek first")
	}
	for {
		k, v, err := it.Next()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return errors.Wrap(err, "kvstore: iterate")
		}
		if len(k) != 8 {
			return errors.Errorf("kvstore: malformed key length %d", len(k))
		}
		id := order.Uint64(k)
		raw, err := snappy.Decode(nil, v)
		if err != nil {
			return errors.Wrapf(err, "kvstore: decompress id %d", id)
		}
		r := &read.Read{}
		if err := r.UnmarshalState(raw); err != nil {
			return errors.Wrapf(err, "kvstore: decode id %d", id)
		}
		if err := fn(id, r); err != nil {
			return err
		}
	}
}

// Close flushes and closes the underlying store.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.kv.Close()
}
