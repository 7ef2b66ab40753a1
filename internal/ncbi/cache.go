package ncbi

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"
	"github.com/vmihailenco/msgpack/v5"
)

// DefaultCacheTTL is how long a cached page stays fresh (7 days).
const DefaultCacheTTL = 7 * 24 * time.Hour

var pagesBucket = []byte("dataset_report_pages")

type cachedPage struct {
	Body        []byte `msgpack:"body"`
	RetrievedAt int64  `msgpack:"retrieved_at"`
}

// Cache stores raw dataset_report pages keyed by request URL in a bolt file.
// A zero or negative TTL keeps entries forever.
type Cache struct {
	db  *bolt.DB
	ttl time.Duration
	now func() time.Time
}

// DefaultCachePath returns a per-user cache location, falling back to the
// temp dir when the user cache dir is unknown.
func DefaultCachePath() string {
	if dir, err := os.UserCacheDir(); err == nil {
		p := filepath.Join(dir, "delftia")
		_ = os.MkdirAll(p, 0o755)
		return filepath.Join(p, "datasets_cache.db")
	}
	return filepath.Join(os.TempDir(), "delftia_datasets_cache.db")
}

// OpenCache opens (creating if needed) the cache file at path.
func OpenCache(path string, ttl time.Duration) (*Cache, error) {
	if path == "" {
		path = DefaultCachePath()
	}
	db, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(pagesBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Cache{db: db, ttl: ttl, now: time.Now}, nil
}

// Get returns the cached body for key if it exists and has not expired.
func (c *Cache) Get(key string) ([]byte, bool) {
	var entry cachedPage
	found := false
	_ = c.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(pagesBucket).Get([]byte(key))
		if v == nil {
			return nil
		}
		if err := msgpack.Unmarshal(v, &entry); err != nil {
			return err
		}
		found = true
		return nil
	})
	if !found {
		return nil, false
	}
	if c.ttl > 0 && c.now().Unix()-entry.RetrievedAt > int64(c.ttl.Seconds()) {
		return nil, false
	}
	return entry.Body, true
}

// Put stores body under key.
func (c *Cache) Put(key string, body []byte) error {
	if key == "" || len(body) == 0 {
		return errors.New("ncbi cache: empty key or body")
	}
	b, err := msgpack.Marshal(cachedPage{Body: body, RetrievedAt: c.now().Unix()})
	if err != nil {
		return err
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(pagesBucket).Put([]byte(key), b)
	})
}

// Close releases the cache file.
func (c *Cache) Close() error {
	return c.db.Close()
}
