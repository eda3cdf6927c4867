package persistence

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"go.etcd.io/bbolt"

	"github.com/ctxrelay/rlm-server/internal/apperrors"
)

var validID = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

var (
	bucketContexts  = []byte("contexts")
	bucketSnapshots = []byte("snapshots")
)

type record struct {
	Content   string                 `json:"content"`
	Metadata  map[string]interface{} `json:"metadata"`
	CreatedAt time.Time              `json:"createdAt"`
}

// BoltStore is the optional on-disk backend, an embedded B+tree KV store
// (go.etcd.io/bbolt), repurposed here as the opaque snapshot store
// (grounded on evalgo-org-eve's direct dependency on bbolt for local
// caching/session state).
type BoltStore struct {
	db           *bbolt.DB
	snapshots    bool
	maxSnapshots int
}

// OpenBoltStore opens (creating if absent) a bbolt file at path and
// ensures its buckets exist.
func OpenBoltStore(path string, opts Options) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt store: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, e := tx.CreateBucketIfNotExists(bucketContexts); e != nil {
			return e
		}
		if _, e := tx.CreateBucketIfNotExists(bucketSnapshots); e != nil {
			return e
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	max := opts.MaxSnapshots
	if max <= 0 {
		max = 10
	}
	return &BoltStore{db: db, snapshots: opts.Snapshots, maxSnapshots: max}, nil
}

func (b *BoltStore) Close() error { return b.db.Close() }

func key(sessionID, contextID string) ([]byte, error) {
	if !validID.MatchString(sessionID) || !validID.MatchString(contextID) {
		return nil, apperrors.New(apperrors.ValidationInvalidInput, "session/context id fails persistence validation")
	}
	return []byte(sessionID + "/" + contextID), nil
}

func (b *BoltStore) Save(sessionID, contextID, content string, metadata map[string]interface{}, createdAt time.Time) error {
	k, err := key(sessionID, contextID)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(record{Content: content, Metadata: metadata, CreatedAt: createdAt})
	if err != nil {
		return err
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketContexts).Put(k, payload)
	})
}

func (b *BoltStore) Load(sessionID, contextID string) (string, map[string]interface{}, time.Time, bool, error) {
	k, err := key(sessionID, contextID)
	if err != nil {
		return "", nil, time.Time{}, false, err
	}
	var rec record
	var found bool
	err = b.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketContexts).Get(k)
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &rec)
	})
	if err != nil {
		return "", nil, time.Time{}, false, err
	}
	return rec.Content, rec.Metadata, rec.CreatedAt, found, nil
}

func (b *BoltStore) DeleteContext(sessionID, contextID string) error {
	k, err := key(sessionID, contextID)
	if err != nil {
		return err
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketContexts).Delete(k)
	})
}

func (b *BoltStore) SaveSnapshot(sessionID, contextID, content string, metadata map[string]interface{}, createdAt time.Time) error {
	if !b.snapshots {
		return nil
	}
	base, err := key(sessionID, contextID)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(record{Content: content, Metadata: metadata, CreatedAt: createdAt})
	if err != nil {
		return err
	}
	snapKey := append(append([]byte{}, base...), []byte(fmt.Sprintf("/%d", createdAt.UnixNano()))...)
	return b.db.Update(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket(bucketSnapshots)
		if err := bkt.Put(snapKey, payload); err != nil {
			return err
		}
		return pruneSnapshots(bkt, append(append([]byte{}, base...), '/'), b.maxSnapshots)
	})
}

// pruneSnapshots keeps at most maxSnapshots entries per (session,context)
// prefix, dropping the oldest (bbolt keys with the timestamp suffix sort
// lexicographically in creation order).
func pruneSnapshots(bkt *bbolt.Bucket, prefix []byte, max int) error {
	c := bkt.Cursor()
	var keys [][]byte
	for k, _ := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, _ = c.Next() {
		keys = append(keys, append([]byte{}, k...))
	}
	if len(keys) <= max {
		return nil
	}
	for _, k := range keys[:len(keys)-max] {
		if err := bkt.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func hasPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i := range prefix {
		if b[i] != prefix[i] {
			return false
		}
	}
	return true
}

func (b *BoltStore) ClearChunkMetadata(sessionID, contextID string) error {
	// Chunk metadata lives only in the in-process caches (internal/cache);
	// the snapshot store has nothing to clear beyond acknowledging the
	// call, so this is a deliberate no-op rather than a stub.
	return nil
}
