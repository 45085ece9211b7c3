package archive

import (
	"encoding/json"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	bolt "go.etcd.io/bbolt"

	"hashesdb/internal/hdb"
)

// Cache remembers definite lookup answers. Unresolved answers are never stored.
type Cache interface {
	Get(identifier string) (hdb.ArchiveStatus, bool)
	Put(identifier string, status hdb.ArchiveStatus) error
	Close() error
}

type noCache struct{}

func (noCache) Get(string) (hdb.ArchiveStatus, bool) { return hdb.ArchiveUnresolved, false }
func (noCache) Put(string, hdb.ArchiveStatus) error  { return nil }
func (noCache) Close() error                         { return nil }

// DefaultMemoryCacheSize is used when no size is configured.
const DefaultMemoryCacheSize = 4096

// MemoryCache keeps the most recently used answers for the lifetime of the process.
type MemoryCache struct {
	entries *lru.Cache[string, hdb.ArchiveStatus]
}

func NewMemoryCache(size int) (*MemoryCache, error) {
	if size <= 0 {
		size = DefaultMemoryCacheSize
	}
	entries, err := lru.New[string, hdb.ArchiveStatus](size)
	if err != nil {
		return nil, fmt.Errorf("creating lru cache: %w", err)
	}
	return &MemoryCache{entries: entries}, nil
}

func (c *MemoryCache) Get(identifier string) (hdb.ArchiveStatus, bool) {
	return c.entries.Get(identifier)
}

func (c *MemoryCache) Put(identifier string, status hdb.ArchiveStatus) error {
	if status == hdb.ArchiveUnresolved {
		return nil
	}
	c.entries.Add(identifier, status)
	return nil
}

func (c *MemoryCache) Close() error { return nil }

const resolutionsBucket = "resolutions"

// DefaultBoltTTL is how long a persisted answer is trusted when no TTL is configured.
const DefaultBoltTTL = 7 * 24 * time.Hour

type boltEntry struct {
	Known     bool      `json:"known"`
	CheckedAt time.Time `json:"checked_at"`
}

// BoltCache persists answers across runs in a bbolt file. Entries older than
// the TTL are treated as absent.
type BoltCache struct {
	db    *bolt.DB
	ttl   time.Duration
	clock hdb.Clock
}

// OpenBoltCache opens or creates the cache file at path.
func OpenBoltCache(path string, ttl time.Duration, clock hdb.Clock) (*BoltCache, error) {
	if ttl <= 0 {
		ttl = DefaultBoltTTL
	}
	if clock == nil {
		clock = hdb.RealClock{}
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening archive cache %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(resolutionsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating archive cache bucket: %w", err)
	}

	return &BoltCache{db: db, ttl: ttl, clock: clock}, nil
}

func (c *BoltCache) Get(identifier string) (hdb.ArchiveStatus, bool) {
	var data []byte
	c.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket([]byte(resolutionsBucket)).Get([]byte(identifier)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if data == nil {
		return hdb.ArchiveUnresolved, false
	}

	var e boltEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return hdb.ArchiveUnresolved, false
	}
	if c.clock.Now().Sub(e.CheckedAt) > c.ttl {
		return hdb.ArchiveUnresolved, false
	}
	if e.Known {
		return hdb.ArchiveKnown, true
	}
	return hdb.ArchiveNotKnown, true
}

func (c *BoltCache) Put(identifier string, status hdb.ArchiveStatus) error {
	if status == hdb.ArchiveUnresolved {
		return nil
	}
	encoded, err := json.Marshal(boltEntry{Known: status == hdb.ArchiveKnown, CheckedAt: c.clock.Now()})
	if err != nil {
		return err
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(resolutionsBucket)).Put([]byte(identifier), encoded)
	})
}

func (c *BoltCache) Close() error {
	return c.db.Close()
}

// TieredCache consults a fast cache before a persistent one and fills the
// fast cache from persistent hits.
type TieredCache struct {
	front Cache
	back  Cache
}

func NewTieredCache(front, back Cache) *TieredCache {
	return &TieredCache{front: front, back: back}
}

func (c *TieredCache) Get(identifier string) (hdb.ArchiveStatus, bool) {
	if status, ok := c.front.Get(identifier); ok {
		return status, true
	}
	status, ok := c.back.Get(identifier)
	if ok {
		c.front.Put(identifier, status)
	}
	return status, ok
}

func (c *TieredCache) Put(identifier string, status hdb.ArchiveStatus) error {
	if err := c.front.Put(identifier, status); err != nil {
		return err
	}
	return c.back.Put(identifier, status)
}

func (c *TieredCache) Close() error {
	c.front.Close()
	return c.back.Close()
}
