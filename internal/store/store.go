// Package store persists market snapshots in an embedded badger database so
// the registry can be rebuilt after a restart. Writes happen after a mutation
// commits, off the market's critical section.
package store

import (
	"encoding/json"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"predictionmarket-backend/internal/market"
)

const marketPrefix = "market/"

// Store is a badger-backed snapshot store.
type Store struct {
	db  *badger.DB
	log *logrus.Entry
}

// Open opens (or creates) the database at dir.
func Open(dir string, log *logrus.Logger) (*Store, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", dir, err)
	}
	return &Store{db: db, log: log.WithField("component", "store")}, nil
}

// SaveMarket upserts one market snapshot.
func (s *Store) SaveMarket(snap market.Snapshot) error {
	value, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	key := []byte(marketPrefix + snap.ID)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

// LoadMarkets returns every persisted market snapshot.
func (s *Store) LoadMarkets() ([]market.Snapshot, error) {
	var snaps []market.Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(marketPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var snap market.Snapshot
				if err := json.Unmarshal(value, &snap); err != nil {
					return fmt.Errorf("unmarshal snapshot %s: %w", it.Item().Key(), err)
				}
				snaps = append(snaps, snap)
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
	return snaps, nil
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
