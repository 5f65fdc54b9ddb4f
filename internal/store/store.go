// Package store provides a thin bbolt wrapper for campcheck's local data.
//
// Availability is always fetched live; the results bucket only keeps the
// last answer per query so it can be re-rendered offline or diffed by watch.
//
// Buckets:
//
//	session  — the backend session token
//	saved    — saved searches keyed by id
//	names    — campground names seen in suggestions and checks
//	watches  — watch definitions and their last-seen available dates
//	results  — last availability result per campground+year+months
//	_meta    — internal: schema version, created_at
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/derickschaefer/campcheck/internal/model"
)

// Current schema version. Bump when bucket layout or key format changes.
const SchemaVersion = 2

// Bucket name constants.
var (
	bucketSession  = []byte("session")
	bucketSaved    = []byte("saved")
	bucketNames    = []byte("names")
	bucketWatches  = []byte("watches")
	bucketResults  = []byte("results")
	bucketInternal = []byte("_meta")
)

// AllBuckets lists every user-facing bucket for stats and clear operations.
var AllBuckets = []string{"session", "saved", "names", "watches", "results"}

// ErrNotFound is returned by lookups by id that match nothing.
var ErrNotFound = errors.New("not found")

// Store wraps a bbolt database.
type Store struct {
	db   *bolt.DB
	path string
}

// Open opens (or creates) the bbolt database at path.
// Parent directories are created automatically.
// Runs schema migrations on every open.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration: %w", err)
	}
	return s, nil
}

func openDB(path string) (*bolt.DB, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening db %s: %w", path, err)
	}
	return db, nil
}

// Close closes the database. Closing twice is harmless.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Path returns the filesystem path of the database.
func (s *Store) Path() string {
	return s.path
}

// ─── Migrations ───────────────────────────────────────────────────────────────

// migrate ensures all buckets exist and schema is current.
func (s *Store) migrate() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketSession, bucketSaved, bucketNames, bucketWatches, bucketResults, bucketInternal} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("creating bucket %s: %w", name, err)
			}
		}

		meta := tx.Bucket(bucketInternal)
		raw := meta.Get([]byte("schema_version"))
		if raw == nil {
			if err := meta.Put([]byte("schema_version"), []byte(strconv.Itoa(SchemaVersion))); err != nil {
				return err
			}
			return meta.Put([]byte("created_at"), []byte(time.Now().UTC().Format(time.RFC3339)))
		}
		version, err := strconv.Atoi(string(raw))
		if err != nil {
			return fmt.Errorf("bad schema_version %q: %w", raw, err)
		}
		if version < 2 {
			// Version 1 keyed watch state by site label alone.
			if err := tx.DeleteBucket(bucketWatches); err != nil {
				return fmt.Errorf("dropping v1 watches: %w", err)
			}
			if _, err := tx.CreateBucket(bucketWatches); err != nil {
				return fmt.Errorf("recreating watches: %w", err)
			}
		}
		if version < SchemaVersion {
			return meta.Put([]byte("schema_version"), []byte(strconv.Itoa(SchemaVersion)))
		}
		return nil
	})
}

// ─── Generic helpers ──────────────────────────────────────────────────────────

func (s *Store) put(bucket []byte, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s/%s: %w", bucket, key, err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), data)
	})
}

// get decodes key into out. It reports false when the key is absent.
func (s *Store) get(bucket []byte, key string, out interface{}) (bool, error) {
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucket).Get([]byte(key))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, out)
	})
	return found, err
}

func (s *Store) delete(bucket []byte, key string) (bool, error) {
	found := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b.Get([]byte(key)) == nil {
			return nil
		}
		found = true
		return b.Delete([]byte(key))
	})
	return found, err
}

// ─── Session ──────────────────────────────────────────────────────────────────

var sessionTokenKey = []byte("token")

// PutToken stores the session token.
func (s *Store) PutToken(token string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSession).Put(sessionTokenKey, []byte(token))
	})
}

// GetToken returns the stored session token, if any.
func (s *Store) GetToken() (string, bool, error) {
	var token string
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketSession).Get(sessionTokenKey); v != nil {
			token = string(v)
		}
		return nil
	})
	return token, token != "", err
}

// DeleteToken removes the session token.
func (s *Store) DeleteToken() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSession).Delete(sessionTokenKey)
	})
}

// ─── Saved searches ───────────────────────────────────────────────────────────

// SavedSearch is a named availability query that can be re-run.
type SavedSearch struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Campground string    `json:"campground"`
	Year       int       `json:"year"`
	Months     []int     `json:"months"`
	Site       string    `json:"site,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// PutSavedSearch stores ss, assigning an id and creation time when unset.
func (s *Store) PutSavedSearch(ss *SavedSearch) error {
	if ss.ID == "" {
		ss.ID = uuid.NewString()
	}
	if ss.CreatedAt.IsZero() {
		ss.CreatedAt = time.Now().UTC()
	}
	return s.put(bucketSaved, ss.ID, ss)
}

// GetSavedSearch finds a saved search by id, id prefix, or exact name.
func (s *Store) GetSavedSearch(ref string) (SavedSearch, error) {
	all, err := s.ListSavedSearches()
	if err != nil {
		return SavedSearch{}, err
	}
	var matches []SavedSearch
	for _, ss := range all {
		if ss.ID == ref || ss.Name == ref {
			return ss, nil
		}
		if len(ref) >= 4 && strings.HasPrefix(ss.ID, ref) {
			matches = append(matches, ss)
		}
	}
	switch len(matches) {
	case 0:
		return SavedSearch{}, fmt.Errorf("saved search %q: %w", ref, ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return SavedSearch{}, fmt.Errorf("saved search %q is ambiguous (%d matches)", ref, len(matches))
	}
}

// ListSavedSearches returns all saved searches, oldest first.
func (s *Store) ListSavedSearches() ([]SavedSearch, error) {
	var out []SavedSearch
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSaved).ForEach(func(k, v []byte) error {
			var ss SavedSearch
			if err := json.Unmarshal(v, &ss); err != nil {
				return fmt.Errorf("saved search %s: %w", k, err)
			}
			out = append(out, ss)
			return nil
		})
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, err
}

// DeleteSavedSearch removes a saved search by id.
func (s *Store) DeleteSavedSearch(id string) error {
	found, err := s.delete(bucketSaved, id)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("saved search %q: %w", id, ErrNotFound)
	}
	return nil
}

// ─── Campground names ─────────────────────────────────────────────────────────

// NameRecord is one remembered campground name.
type NameRecord struct {
	Name     string    `json:"name"`
	Hits     int       `json:"hits"`
	LastSeen time.Time `json:"last_seen"`
}

// RememberNames records names, bumping the hit count of ones already known.
// Keys are case-insensitive; the latest spelling wins.
func (s *Store) RememberNames(names ...string) error {
	now := time.Now().UTC()
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNames)
		for _, name := range names {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			key := []byte(strings.ToLower(name))
			rec := NameRecord{}
			if v := b.Get(key); v != nil {
				if err := json.Unmarshal(v, &rec); err != nil {
					return err
				}
			}
			rec.Name = name
			rec.Hits++
			rec.LastSeen = now
			data, err := json.Marshal(rec)
			if err != nil {
				return err
			}
			if err := b.Put(key, data); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListNames returns remembered names, most used first.
func (s *Store) ListNames() ([]NameRecord, error) {
	var out []NameRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketNames).ForEach(func(k, v []byte) error {
			var rec NameRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			out = append(out, rec)
			return nil
		})
	})
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Hits != out[j].Hits {
			return out[i].Hits > out[j].Hits
		}
		return out[i].Name < out[j].Name
	})
	return out, err
}

// ─── Results ──────────────────────────────────────────────────────────────────

// ResultKey builds the canonical key for a stored availability result.
// Format: camp:<lower name>|year:<y>|months:<m,m,...> with months sorted.
func ResultKey(campground string, year int, months []int) string {
	ms := append([]int(nil), months...)
	sort.Ints(ms)
	parts := make([]string, len(ms))
	for i, m := range ms {
		parts[i] = strconv.Itoa(m)
	}
	return fmt.Sprintf("camp:%s|year:%d|months:%s",
		strings.ToLower(strings.TrimSpace(campground)), year, strings.Join(parts, ","))
}

// PutResult stores the latest result for its query.
func (s *Store) PutResult(res *model.AvailabilityResult, months []int) error {
	return s.put(bucketResults, ResultKey(res.CampgroundName, res.Year, months), res)
}

// GetResult returns the stored result for a query, if any.
func (s *Store) GetResult(campground string, year int, months []int) (*model.AvailabilityResult, bool, error) {
	var res model.AvailabilityResult
	found, err := s.get(bucketResults, ResultKey(campground, year, months), &res)
	if err != nil || !found {
		return nil, false, err
	}
	return &res, true, nil
}

// ─── Watches ──────────────────────────────────────────────────────────────────

// Watch is a scheduled re-check and what it last saw.
type Watch struct {
	ID         string `json:"id"`
	Campground string `json:"campground"`
	Year       int    `json:"year"`
	Months     []int  `json:"months"`
	Site       string `json:"site,omitempty"`
	// Seen maps site key (see model.SiteKey) to the available date labels
	// of the last run.
	Seen map[string][]string `json:"seen"`
	// Sites holds the label and loop behind each key of Seen.
	Sites   map[string]WatchedSite `json:"sites,omitempty"`
	LastRun time.Time              `json:"last_run"`
}

// WatchedSite names one site a watch has seen.
type WatchedSite struct {
	Site string `json:"site"`
	Loop string `json:"loop"`
}

// WatchID derives a stable id for a watch query so re-running the same
// watch resumes its state.
func WatchID(campground string, year int, months []int, site string) string {
	key := ResultKey(campground, year, months) + "|site:" + strings.ToLower(site)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

// PutWatch stores w.
func (s *Store) PutWatch(w Watch) error {
	return s.put(bucketWatches, w.ID, w)
}

// GetWatch returns the watch with id, if any.
func (s *Store) GetWatch(id string) (Watch, bool, error) {
	var w Watch
	found, err := s.get(bucketWatches, id, &w)
	return w, found, err
}

// ListWatches returns every stored watch.
func (s *Store) ListWatches() ([]Watch, error) {
	var out []Watch
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketWatches).ForEach(func(k, v []byte) error {
			var w Watch
			if err := json.Unmarshal(v, &w); err != nil {
				return err
			}
			out = append(out, w)
			return nil
		})
	})
	return out, err
}

// DeleteWatch removes a watch by id.
func (s *Store) DeleteWatch(id string) error {
	found, err := s.delete(bucketWatches, id)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("watch %q: %w", id, ErrNotFound)
	}
	return nil
}

// ─── Stats & Maintenance ──────────────────────────────────────────────────────

// Meta is what the store records about itself.
type Meta struct {
	SchemaVersion int    `json:"schema_version"`
	CreatedAt     string `json:"created_at"`
}

// Meta returns the schema version and creation time recorded in the store.
func (s *Store) Meta() (Meta, error) {
	var m Meta
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketInternal)
		v, err := strconv.Atoi(string(b.Get([]byte("schema_version"))))
		if err != nil {
			return fmt.Errorf("reading schema_version: %w", err)
		}
		m.SchemaVersion = v
		m.CreatedAt = string(b.Get([]byte("created_at")))
		return nil
	})
	return m, err
}

// BucketStats holds row count and byte size for a single bucket.
type BucketStats struct {
	Name  string
	Count int
	Bytes int64
}

// Stats returns row counts and approximate sizes for all buckets.
func (s *Store) Stats() ([]BucketStats, error) {
	var stats []BucketStats
	err := s.db.View(func(tx *bolt.Tx) error {
		for _, name := range AllBuckets {
			b := tx.Bucket([]byte(name))
			if b == nil {
				continue
			}
			var count int
			var size int64
			if err := b.ForEach(func(k, v []byte) error {
				count++
				size += int64(len(k) + len(v))
				return nil
			}); err != nil {
				return err
			}
			stats = append(stats, BucketStats{Name: name, Count: count, Bytes: size})
		}
		return nil
	})
	return stats, err
}

// ClearBucket deletes all entries in the named bucket.
func (s *Store) ClearBucket(name string) error {
	if !isUserBucket(name) {
		return fmt.Errorf("unknown bucket %q (buckets: %s)", name, strings.Join(AllBuckets, ", "))
	}
	bname := []byte(name)
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bname); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return fmt.Errorf("clearing bucket %s: %w", name, err)
		}
		_, err := tx.CreateBucket(bname)
		return err
	})
}

// ClearAll deletes all entries from every user-facing bucket.
func (s *Store) ClearAll() error {
	for _, name := range AllBuckets {
		if err := s.ClearBucket(name); err != nil {
			return err
		}
	}
	return nil
}

func isUserBucket(name string) bool {
	for _, b := range AllBuckets {
		if b == name {
			return true
		}
	}
	return false
}

// compactTxMaxSize bounds each copy transaction during Compact.
const compactTxMaxSize = 64 << 20

// Compact rewrites the database into a fresh file and swaps it in,
// returning the file sizes before and after.
func (s *Store) Compact() (before, after int64, err error) {
	fi, err := os.Stat(s.path)
	if err != nil {
		return 0, 0, err
	}
	before = fi.Size()

	tmpPath := s.path + ".compact"
	_ = os.Remove(tmpPath)
	dst, err := openDB(tmpPath)
	if err != nil {
		return 0, 0, err
	}
	if err := bolt.Compact(dst, s.db, compactTxMaxSize); err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return 0, 0, fmt.Errorf("copying data: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, 0, err
	}
	if err := s.db.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, 0, err
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		// Reopen the original so the handle stays usable.
		if db, oerr := openDB(s.path); oerr == nil {
			s.db = db
		}
		return 0, 0, fmt.Errorf("replacing database: %w", err)
	}
	db, err := openDB(s.path)
	if err != nil {
		return 0, 0, err
	}
	s.db = db

	fi, err = os.Stat(s.path)
	if err != nil {
		return before, 0, err
	}
	return before, fi.Size(), nil
}
