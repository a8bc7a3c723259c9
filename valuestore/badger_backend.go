package valuestore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/ruteri/entropy-vault/interfaces"
)

var (
	recordPrefix = []byte("rec/")
	countKey     = []byte("meta/count")
)

// BadgerBackend persists records in a Badger database. A batch is written in
// a single transaction that re-checks every key, so concurrent writers from
// other processes cannot both succeed.
type BadgerBackend struct {
	db *badger.DB
}

// OpenBadgerBackend opens the database at path. An empty path opens an
// in-memory database.
func OpenBadgerBackend(path string) (*BadgerBackend, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil
	opts.SyncWrites = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("could not open badger at %q: %w", path, err)
	}
	return &BadgerBackend{db: db}, nil
}

func recordKey(key uint64) []byte {
	k := make([]byte, len(recordPrefix)+8)
	copy(k, recordPrefix)
	binary.BigEndian.PutUint64(k[len(recordPrefix):], key)
	return k
}

func (b *BadgerBackend) Get(ctx context.Context, key uint64) (interfaces.EncryptedRecord, error) {
	var record interfaces.EncryptedRecord
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return interfaces.EncryptedRecord{}, interfaces.ErrKeyNotInitialized
	}
	if err != nil {
		return interfaces.EncryptedRecord{}, fmt.Errorf("could not read record %d: %w", key, err)
	}
	return record, nil
}

func (b *BadgerBackend) Has(ctx context.Context, key uint64) (bool, error) {
	err := b.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(recordKey(key))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (b *BadgerBackend) Insert(ctx context.Context, records []interfaces.EncryptedRecord) error {
	return b.db.Update(func(txn *badger.Txn) error {
		seen := make(map[uint64]struct{}, len(records))
		for _, record := range records {
			if _, ok := seen[record.Key]; ok {
				return fmt.Errorf("%w: key %d repeated in batch", interfaces.ErrKeyAlreadyInitialized, record.Key)
			}
			seen[record.Key] = struct{}{}

			k := recordKey(record.Key)
			if _, err := txn.Get(k); err == nil {
				return interfaces.ErrKeyAlreadyInitialized
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}

			encoded, err := json.Marshal(record)
			if err != nil {
				return fmt.Errorf("could not encode record %d: %w", record.Key, err)
			}
			if err := txn.Set(k, encoded); err != nil {
				return err
			}
		}

		count, err := readCount(txn)
		if err != nil {
			return err
		}
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], count+uint64(len(records)))
		return txn.Set(countKey, buf[:])
	})
}

func (b *BadgerBackend) Count(ctx context.Context) (uint64, error) {
	var count uint64
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		count, err = readCount(txn)
		return err
	})
	return count, err
}

func readCount(txn *badger.Txn) (uint64, error) {
	item, err := txn.Get(countKey)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	} else if err != nil {
		return 0, err
	}

	var count uint64
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("corrupt record count of %d bytes", len(val))
		}
		count = binary.BigEndian.Uint64(val)
		return nil
	})
	return count, err
}

func (b *BadgerBackend) Close() error {
	return b.db.Close()
}
