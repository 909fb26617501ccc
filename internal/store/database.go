package store

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/zombor/billed/internal/bill"
)

const (
	billsBucket = "bills"
	ownerBucket = "bills_by_owner"
)

// DB defines the interface for bill record persistence
type DB interface {
	// SaveBill saves a bill to the database
	SaveBill(b *bill.Bill) error

	// GetBill retrieves a bill by ID
	GetBill(id string) (*bill.Bill, error)

	// ListBills returns all bills owned by owner
	ListBills(owner string) ([]*bill.Bill, error)

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(billsBucket)); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(ownerBucket)); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SaveBill saves a bill and indexes it under its owner
func (b *BoltDB) SaveBill(bl *bill.Bill) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(bl)
		if err != nil {
			return fmt.Errorf("marshaling bill: %w", err)
		}
		if err := tx.Bucket([]byte(billsBucket)).Put([]byte(bl.ID), data); err != nil {
			return err
		}

		owners, err := tx.Bucket([]byte(ownerBucket)).CreateBucketIfNotExists([]byte(bl.Email))
		if err != nil {
			return fmt.Errorf("creating owner index: %w", err)
		}
		return owners.Put([]byte(bl.ID), nil)
	})
}

// GetBill retrieves a bill by ID
func (b *BoltDB) GetBill(id string) (*bill.Bill, error) {
	var bl *bill.Bill
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(billsBucket)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return json.Unmarshal(data, &bl)
	})
	if err != nil {
		return nil, err
	}
	return bl, nil
}

// ListBills returns all bills indexed under owner
func (b *BoltDB) ListBills(owner string) ([]*bill.Bill, error) {
	bills := make([]*bill.Bill, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		owners := tx.Bucket([]byte(ownerBucket)).Bucket([]byte(owner))
		if owners == nil {
			return nil
		}
		records := tx.Bucket([]byte(billsBucket))
		return owners.ForEach(func(k, _ []byte) error {
			v := records.Get(k)
			if v == nil {
				return nil
			}
			var bl bill.Bill
			if err := json.Unmarshal(v, &bl); err != nil {
				return fmt.Errorf("unmarshaling bill: %w", err)
			}
			bills = append(bills, &bl)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return bills, nil
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
