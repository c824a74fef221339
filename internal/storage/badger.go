package storage

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/writeway/personalization/internal/models"
)

const affinityKeyPrefix = "affinity:"

// BadgerStore persists affinity maps in a BadgerDB database, one record per
// user.
type BadgerStore struct {
	db *badger.DB
}

var _ Store = (*BadgerStore)(nil)

// NewBadgerStore creates a store over an already-opened database. The caller
// owns the database lifecycle.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// Open opens a BadgerDB database at dir with logging routed through logrus.
func Open(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(badgerLogger{})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening affinity database at %s: %w", dir, err)
	}
	return db, nil
}

func (s *BadgerStore) LoadAffinities(ctx context.Context, userID string) (map[string]models.HashtagAffinity, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(affinityKeyPrefix + userID))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})

	if err == badger.ErrKeyNotFound {
		return map[string]models.HashtagAffinity{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: loading affinities for %s: %v", ErrPersistence, userID, err)
	}

	var affinities map[string]models.HashtagAffinity
	if err := json.Unmarshal(data, &affinities); err != nil {
		return nil, fmt.Errorf("%w: decoding affinities for %s: %v", ErrPersistence, userID, err)
	}
	if affinities == nil {
		affinities = map[string]models.HashtagAffinity{}
	}

	return affinities, nil
}

func (s *BadgerStore) SaveAffinities(ctx context.Context, userID string, affinities map[string]models.HashtagAffinity) error {
	data, err := json.Marshal(affinities)
	if err != nil {
		return fmt.Errorf("%w: encoding affinities for %s: %v", ErrPersistence, userID, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(affinityKeyPrefix+userID), data)
	})
	if err != nil {
		return fmt.Errorf("%w: saving affinities for %s: %v", ErrPersistence, userID, err)
	}

	return nil
}

func (s *BadgerStore) Reset(ctx context.Context, userID string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(affinityKeyPrefix + userID))
	})
	if err != nil {
		return fmt.Errorf("%w: resetting affinities for %s: %v", ErrPersistence, userID, err)
	}

	logrus.Infof("Reset personalization data for user %s", userID)
	return nil
}

// badgerLogger adapts badger's logger interface onto logrus.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{})   { logrus.Errorf(format, args...) }
func (badgerLogger) Warningf(format string, args ...interface{}) { logrus.Warnf(format, args...) }
func (badgerLogger) Infof(format string, args ...interface{})    { logrus.Debugf(format, args...) }
func (badgerLogger) Debugf(format string, args ...interface{})   { logrus.Debugf(format, args...) }
