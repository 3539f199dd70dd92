// Package storage provides an optional persistent journal for the bot.
// It uses BoltDB to record opened positions and claimed task rewards so a
// run's activity can be inspected after the fact. When no data path is
// configured the bot runs without it.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const (
	ordersBucket  = "orders"  // Bucket for opened position records
	rewardsBucket = "rewards" // Bucket for claimed task reward records
)

// OrderRecord is one successfully opened position.
type OrderRecord struct {
	Account   string    `json:"account"`
	Product   string    `json:"product"`
	Side      string    `json:"side"`
	Margin    float64   `json:"margin"`
	Leverage  float64   `json:"leverage"`
	CloseTime int64     `json:"closeTime"`
	Ts        time.Time `json:"ts"`
}

// RewardRecord is one claimed task reward.
type RewardRecord struct {
	Account string    `json:"account"`
	Task    string    `json:"task"`
	Points  float64   `json:"points"`
	Ts      time.Time `json:"ts"`
}

// Store journals bot activity in BoltDB, keyed "account_timestamp" for
// per-account range queries.
type Store struct {
	db *bbolt.DB
}

// New opens (or creates) the journal database under dataPath.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, "kiloex-data.db")

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(ordersBucket)); err != nil {
			return fmt.Errorf("create orders bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(rewardsBucket)); err != nil {
			return fmt.Errorf("create rewards bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// StoreOrder journals an opened position.
func (s *Store) StoreOrder(rec OrderRecord) error {
	return s.put(ordersBucket, rec.Account, rec.Ts, rec)
}

// StoreReward journals a claimed task reward.
func (s *Store) StoreReward(rec RewardRecord) error {
	return s.put(rewardsBucket, rec.Account, rec.Ts, rec)
}

func (s *Store) put(bucket, account string, ts time.Time, v any) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucket))

		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}

		key := fmt.Sprintf("%s_%d", account, ts.UnixNano())
		return b.Put([]byte(key), data)
	})
}

// GetOrders retrieves order records for an account within a time range,
// inclusive of both ends.
func (s *Store) GetOrders(account string, start, end time.Time) ([]OrderRecord, error) {
	var orders []OrderRecord
	err := s.scan(ordersBucket, account, start, end, func(v []byte) error {
		var rec OrderRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			return err
		}
		orders = append(orders, rec)
		return nil
	})
	return orders, err
}

// GetRewards retrieves reward records for an account within a time range,
// inclusive of both ends.
func (s *Store) GetRewards(account string, start, end time.Time) ([]RewardRecord, error) {
	var rewards []RewardRecord
	err := s.scan(rewardsBucket, account, start, end, func(v []byte) error {
		var rec RewardRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			return err
		}
		rewards = append(rewards, rec)
		return nil
	})
	return rewards, err
}

func (s *Store) scan(bucket, account string, start, end time.Time, fn func([]byte) error) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(bucket)).Cursor()

		prefix := []byte(account + "_")
		startKey := []byte(fmt.Sprintf("%s_%d", account, start.UnixNano()))
		endKey := []byte(fmt.Sprintf("%s_%d", account, end.UnixNano()))

		for k, v := c.Seek(startKey); k != nil && bytes.Compare(k, endKey) <= 0; k, v = c.Next() {
			if !bytes.HasPrefix(k, prefix) {
				continue
			}
			if err := fn(v); err != nil {
				continue // skip malformed records
			}
		}
		return nil
	})
}
