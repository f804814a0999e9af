// Package badger implements a persistent change-feed journal backed by
// BadgerDB.
//
// Events are stored under zero-padded sequence keys so the natural key
// order of the database is the event order, making replay a single
// range scan. Sequence numbers resume from the highest stored key on
// reopen, so the feed stays monotonic across restarts.
package badger

import (
	"encoding/json"
	"fmt"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/datahaven/aclfs/pkg/feed"
)

// keyPrefix namespaces feed entries inside the database.
// Key format: ev:<20-digit zero-padded sequence>, value is the Event as JSON.
const keyPrefix = "ev:"

// Journal is a BadgerDB-backed feed.Journal.
//
// Thread Safety:
// Appends are serialized by a mutex so sequence assignment and the
// corresponding write commit in order. Replays run on read-only
// transactions and may proceed concurrently.
type Journal struct {
	db *badger.DB

	mu   sync.Mutex
	next uint64
}

// Config holds journal-specific BadgerDB settings.
type Config struct {
	// Path is the database directory.
	Path string

	// InMemory runs BadgerDB without disk persistence (tests).
	InMemory bool
}

// Open opens (or creates) a journal at the configured path.
func Open(config Config) (*Journal, error) {
	var opts badger.Options
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(config.Path)
	}

	// The journal workload is small sequential values; compression and
	// verbose logging are not worth their overhead here.
	opts = opts.WithLoggingLevel(badger.WARNING)
	opts = opts.WithCompression(options.None)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open feed journal at %s: %w", config.Path, err)
	}

	j := &Journal{db: db, next: 1}
	if err := j.loadNextSeq(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return j, nil
}

// loadNextSeq positions the sequence counter after the highest stored
// event, scanning the keyspace in reverse for the last entry.
func (j *Journal) loadNextSeq() error {
	return j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		// Seek past the end of the prefix range.
		it.Seek([]byte(keyPrefix + "\xff"))
		if !it.ValidForPrefix([]byte(keyPrefix)) {
			return nil
		}

		var last uint64
		key := string(it.Item().Key())
		if _, err := fmt.Sscanf(key, keyPrefix+"%020d", &last); err != nil {
			return fmt.Errorf("malformed feed journal key %q: %w", key, err)
		}
		j.next = last + 1
		return nil
	})
}

func seqKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", keyPrefix, seq))
}

// Append stores the event and returns its assigned sequence number.
func (j *Journal) Append(event feed.Event) (uint64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	event.Seq = j.next

	value, err := json.Marshal(event)
	if err != nil {
		return 0, fmt.Errorf("failed to encode feed event: %w", err)
	}

	err = j.db.Update(func(txn *badger.Txn) error {
		return txn.Set(seqKey(event.Seq), value)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to persist feed event: %w", err)
	}

	j.next++
	return event.Seq, nil
}

// ReplaySince returns all stored events with Seq > since, in order.
func (j *Journal) ReplaySince(since uint64) ([]feed.Event, error) {
	out := make([]feed.Event, 0)

	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(seqKey(since + 1)); it.ValidForPrefix([]byte(keyPrefix)); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var ev feed.Event
				if err := json.Unmarshal(value, &ev); err != nil {
					return fmt.Errorf("malformed feed event at %s: %w", it.Item().Key(), err)
				}
				out = append(out, ev)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}
