package passkey

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.etcd.io/bbolt"
)

// Credential is a locally held passkey: the private key plus the metadata
// needed to answer ceremonies for one relying party.
type Credential struct {
	ID         []byte    `json:"id"`
	RPID       string    `json:"rp_id"`
	UserHandle []byte    `json:"user_handle"`
	PrivateKey []byte    `json:"private_key"` // SEC 1 DER, ES256
	SignCount  uint32    `json:"sign_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store persists locally created passkeys, keyed by relying party.
type Store interface {
	// ForRP returns every credential held for the relying party.
	ForRP(rpID string) ([]Credential, error)
	// Save persists a credential, replacing any with the same ID.
	Save(cred Credential) error
	// SetSignCount updates the signature counter after an assertion.
	SetSignCount(rpID string, id []byte, count uint32) error
}

// MemoryStore is an in-process Store. Credentials are lost on exit.
type MemoryStore struct {
	mu    sync.Mutex
	creds map[string][]Credential
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory credential store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{creds: make(map[string][]Credential)}
}

func (s *MemoryStore) ForRP(rpID string) ([]Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Credential, len(s.creds[rpID]))
	copy(out, s.creds[rpID])
	return out, nil
}

func (s *MemoryStore) Save(cred Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.creds[cred.RPID]
	for i := range list {
		if bytes.Equal(list[i].ID, cred.ID) {
			list[i] = cred
			return nil
		}
	}
	s.creds[cred.RPID] = append(list, cred)
	return nil
}

func (s *MemoryStore) SetSignCount(rpID string, id []byte, count uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.creds[rpID] {
		if bytes.Equal(s.creds[rpID][i].ID, id) {
			s.creds[rpID][i].SignCount = count
			return nil
		}
	}
	return fmt.Errorf("credential not found for rp %q", rpID)
}

// BoltStore is a Store backed by a bbolt database: one nested bucket per
// relying party, keyed by credential ID.
type BoltStore struct {
	db *bbolt.DB
}

var _ Store = (*BoltStore)(nil)

var passkeyBucket = []byte("passkeys")

// NewBoltStore opens (or creates) a credential store database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening passkey store: %w", err)
	}
	return &BoltStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) ForRP(rpID string) ([]Credential, error) {
	var out []Credential
	err := s.db.View(func(tx *bbolt.Tx) error {
		root := tx.Bucket(passkeyBucket)
		if root == nil {
			return nil
		}
		b := root.Bucket([]byte(rpID))
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			var cred Credential
			if err := json.Unmarshal(v, &cred); err != nil {
				return fmt.Errorf("corrupt credential record: %w", err)
			}
			out = append(out, cred)
			return nil
		})
	})
	return out, err
}

func (s *BoltStore) Save(cred Credential) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		root, err := tx.CreateBucketIfNotExists(passkeyBucket)
		if err != nil {
			return err
		}
		b, err := root.CreateBucketIfNotExists([]byte(cred.RPID))
		if err != nil {
			return err
		}
		data, err := json.Marshal(cred)
		if err != nil {
			return err
		}
		return b.Put(cred.ID, data)
	})
}

func (s *BoltStore) SetSignCount(rpID string, id []byte, count uint32) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket(passkeyBucket)
		if root == nil {
			return fmt.Errorf("credential not found for rp %q", rpID)
		}
		b := root.Bucket([]byte(rpID))
		if b == nil {
			return fmt.Errorf("credential not found for rp %q", rpID)
		}
		data := b.Get(id)
		if data == nil {
			return fmt.Errorf("credential not found for rp %q", rpID)
		}
		var cred Credential
		if err := json.Unmarshal(data, &cred); err != nil {
			return fmt.Errorf("corrupt credential record: %w", err)
		}
		cred.SignCount = count
		updated, err := json.Marshal(cred)
		if err != nil {
			return err
		}
		return b.Put(id, updated)
	})
}
