package eventlog

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"custodychain/core/types"
)

var (
	bucketHeights = []byte("heights")

	// ErrClosed is returned when the journal handle has been released.
	ErrClosed = errors.New("eventlog: journal closed")
)

// Record is one journaled event.
type Record struct {
	ID         string            `json:"id"`
	Height     uint64            `json:"height"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Journal persists the rendered events of every committed block in a BoltDB
// file. Each height gets its own bucket; records keep their emission order.
type Journal struct {
	db *bolt.DB
}

// Open initialises the journal at path.
func Open(path string, options *bolt.Options) (*Journal, error) {
	if options == nil {
		options = &bolt.Options{Timeout: time.Second}
	} else if options.Timeout == 0 {
		options.Timeout = time.Second
	}
	db, err := bolt.Open(path, 0o600, options)
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketHeights)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Journal{db: db}, nil
}

// Close releases the underlying Bolt database handle.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	err := j.db.Close()
	j.db = nil
	return err
}

func heightKey(height uint64) []byte {
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], height)
	return key[:]
}

// Append stores evts under height and returns the assigned records. Appending
// to a height that already holds events extends it.
func (j *Journal) Append(height uint64, evts []types.Event) ([]Record, error) {
	if j == nil || j.db == nil {
		return nil, ErrClosed
	}
	if len(evts) == 0 {
		return nil, nil
	}
	records := make([]Record, 0, len(evts))
	err := j.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.Bucket(bucketHeights).CreateBucketIfNotExists(heightKey(height))
		if err != nil {
			return err
		}
		for _, evt := range evts {
			seq, err := bucket.NextSequence()
			if err != nil {
				return err
			}
			rec := Record{
				ID:         uuid.NewString(),
				Height:     height,
				Type:       evt.Type,
				Attributes: evt.Attributes,
			}
			payload, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("eventlog: encode %s: %w", evt.Type, err)
			}
			if err := bucket.Put(heightKey(seq), payload); err != nil {
				return err
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// DropHeight deletes every record journaled for height. Unknown heights are
// ignored.
func (j *Journal) DropHeight(height uint64) error {
	if j == nil || j.db == nil {
		return ErrClosed
	}
	return j.db.Update(func(tx *bolt.Tx) error {
		heights := tx.Bucket(bucketHeights)
		if heights.Bucket(heightKey(height)) == nil {
			return nil
		}
		return heights.DeleteBucket(heightKey(height))
	})
}

// ByHeight returns the events journaled for height in emission order.
func (j *Journal) ByHeight(height uint64) ([]Record, error) {
	if j == nil || j.db == nil {
		return nil, ErrClosed
	}
	var records []Record
	err := j.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketHeights).Bucket(heightKey(height))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(_, raw []byte) error {
			var rec Record
			if err := json.Unmarshal(raw, &rec); err != nil {
				return err
			}
			records = append(records, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// LastHeight returns the highest height holding events.
func (j *Journal) LastHeight() (uint64, bool, error) {
	if j == nil || j.db == nil {
		return 0, false, ErrClosed
	}
	var (
		height uint64
		found  bool
	)
	err := j.db.View(func(tx *bolt.Tx) error {
		key, _ := tx.Bucket(bucketHeights).Cursor().Last()
		if key == nil {
			return nil
		}
		height = binary.BigEndian.Uint64(key)
		found = true
		return nil
	})
	return height, found, err
}
