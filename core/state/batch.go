package state

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
)

var errBatchClosed = errors.New("kv batch: already committed or discarded")

type stagedWrite struct {
	key     []byte
	encoded rlp.RawValue
	deleted bool
}

// Batch stages KV writes on top of a parent store. Reads observe the staged
// writes first. Nothing reaches the parent until Commit; a discarded batch
// leaves the parent untouched.
//
// Commit replays the final value of every touched key in first-touch order so
// the resulting state root does not depend on map iteration.
type Batch struct {
	parent KVStore
	writes map[string]*stagedWrite
	order  []string
	closed bool
}

// NewBatch opens a write-set over parent.
func NewBatch(parent KVStore) *Batch {
	return &Batch{
		parent: parent,
		writes: make(map[string]*stagedWrite),
	}
}

func (b *Batch) stage(key []byte) *stagedWrite {
	k := string(key)
	w, ok := b.writes[k]
	if !ok {
		w = &stagedWrite{key: append([]byte(nil), key...)}
		b.writes[k] = w
		b.order = append(b.order, k)
	}
	return w
}

// KVGet implements KVStore.
func (b *Batch) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	if w, ok := b.writes[string(key)]; ok {
		if w.deleted {
			return false, nil
		}
		if out == nil {
			return true, nil
		}
		if err := rlp.DecodeBytes(w.encoded, out); err != nil {
			return false, err
		}
		return true, nil
	}
	return b.parent.KVGet(key, out)
}

// KVPut implements KVStore. The value is encoded immediately so later
// mutations of the caller's copy do not leak into the batch.
func (b *Batch) KVPut(key []byte, value interface{}) error {
	if b.closed {
		return errBatchClosed
	}
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	w := b.stage(key)
	w.encoded = encoded
	w.deleted = false
	return nil
}

// KVDelete implements KVStore.
func (b *Batch) KVDelete(key []byte) error {
	if b.closed {
		return errBatchClosed
	}
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	w := b.stage(key)
	w.encoded = nil
	w.deleted = true
	return nil
}

// Len reports the number of distinct keys touched.
func (b *Batch) Len() int { return len(b.order) }

// Commit flushes the staged writes into the parent store.
func (b *Batch) Commit() error {
	if b.closed {
		return errBatchClosed
	}
	b.closed = true
	for _, k := range b.order {
		w := b.writes[k]
		if w.deleted {
			if err := b.parent.KVDelete(w.key); err != nil {
				return err
			}
			continue
		}
		if err := b.parent.KVPut(w.key, w.encoded); err != nil {
			return err
		}
	}
	return nil
}

// Discard drops every staged write.
func (b *Batch) Discard() {
	b.closed = true
	b.writes = nil
	b.order = nil
}
