package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"codegraph/internal/adapter/graph"
	"codegraph/internal/domain"
)

var (
	bucketChunks   = []byte("chunks")
	bucketVectors  = []byte("vectors")
	bucketRegistry = []byte("registry")
	bucketGraph    = []byte("graph")
	bucketMeta     = []byte("meta")

	keyGraph = []byte("callgraph")
	keyReady = []byte("ready")
	keyStats = []byte("corpus_stats")
)

var allBuckets = [][]byte{bucketChunks, bucketVectors, bucketRegistry, bucketGraph, bucketMeta}

// ErrLocked is returned when another process holds the database, for example
// an indexing run while the MCP server is up.
var ErrLocked = errors.New("index database is locked by another process")

var openTimeout = time.Second

// BoltStore is the on-disk home of chunks, vectors, the delta registry and
// the call graph. Chunk keys are "<path>\x00<seq>" so a file's chunks are a
// contiguous, ordered key range.
type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: openTimeout})
	if errors.Is(err, bbolt.ErrTimeout) {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) DB() *bbolt.DB {
	return s.db
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

type storedVector struct {
	Vector []float32 `json:"v"`
}

func filePrefix(path string) []byte {
	return append([]byte(path), 0)
}

func chunkKey(path string, seq int) []byte {
	return append(filePrefix(path), []byte(fmt.Sprintf("%06d", seq))...)
}

// putFileTx replaces every chunk and vector stored for path.
func putFileTx(tx *bbolt.Tx, path string, chunks []domain.Chunk) error {
	if err := deleteFileTx(tx, path); err != nil {
		return err
	}
	cb := tx.Bucket(bucketChunks)
	vb := tx.Bucket(bucketVectors)
	for i, c := range chunks {
		key := chunkKey(path, i)

		vec := c.Vector
		c.Vector = nil
		data, err := json.Marshal(c)
		if err != nil {
			return err
		}
		if err := cb.Put(key, data); err != nil {
			return err
		}

		if len(vec) == 0 {
			continue
		}
		data, err = json.Marshal(storedVector{Vector: vec})
		if err != nil {
			return err
		}
		if err := vb.Put(key, data); err != nil {
			return err
		}
	}
	return nil
}

func deleteFileTx(tx *bbolt.Tx, path string) error {
	prefix := filePrefix(path)
	for _, name := range [][]byte{bucketChunks, bucketVectors} {
		b := tx.Bucket(name)
		var keys [][]byte
		c := b.Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			keys = append(keys, append([]byte(nil), k...))
		}
		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
	}
	return nil
}

// PutFile stores chunks for path in one transaction, removing the previous set.
func (s *BoltStore) PutFile(path string, chunks []domain.Chunk) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return putFileTx(tx, path, chunks)
	})
}

func (s *BoltStore) DeleteFile(path string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return deleteFileTx(tx, path)
	})
}

// LoadChunks returns every stored chunk grouped by file, in stored order,
// with vectors attached.
func (s *BoltStore) LoadChunks() (map[string][]domain.Chunk, error) {
	out := make(map[string][]domain.Chunk)
	err := s.db.View(func(tx *bbolt.Tx) error {
		vb := tx.Bucket(bucketVectors)
		return tx.Bucket(bucketChunks).ForEach(func(k, v []byte) error {
			var c domain.Chunk
			if err := json.Unmarshal(v, &c); err != nil {
				return fmt.Errorf("decode chunk %q: %w", k, err)
			}
			if data := vb.Get(k); data != nil {
				var sv storedVector
				if err := json.Unmarshal(data, &sv); err != nil {
					return fmt.Errorf("decode vector %q: %w", k, err)
				}
				c.Vector = sv.Vector
			}
			out[c.FilePath] = append(out[c.FilePath], c)
			return nil
		})
	})
	return out, err
}

// SaveGraph rewrites the persisted call graph.
func (s *BoltStore) SaveGraph(g *graph.Graph) error {
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("encode graph: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketGraph).Put(keyGraph, data)
	})
}

// LoadGraph returns the persisted graph, or an empty graph when none is stored.
func (s *BoltStore) LoadGraph() (*graph.Graph, error) {
	g := graph.New()
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketGraph).Get(keyGraph)
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, g)
	})
	if err != nil {
		return nil, fmt.Errorf("load graph: %w", err)
	}
	return g, nil
}

// LoadRegistry reads the whole path -> hash mapping.
func (s *BoltStore) LoadRegistry() (map[string]string, error) {
	out := make(map[string]string)
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRegistry).ForEach(func(k, v []byte) error {
			out[string(k)] = string(v)
			return nil
		})
	})
	return out, err
}

// SaveRegistry rewrites the registry bucket with entries.
func (s *BoltStore) SaveRegistry(entries map[string]string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketRegistry); err != nil && err != bbolt.ErrBucketNotFound {
			return err
		}
		b, err := tx.CreateBucket(bucketRegistry)
		if err != nil {
			return err
		}
		for path, hash := range entries {
			if err := b.Put([]byte(path), []byte(hash)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) Ready() (bool, error) {
	var ready bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		ready = tx.Bucket(bucketMeta).Get(keyReady) != nil
		return nil
	})
	return ready, err
}

func (s *BoltStore) MarkReady() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMeta).Put(keyReady, []byte("1"))
	})
}

func (s *BoltStore) GetStats() (domain.Stats, error) {
	var stats domain.Stats
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketMeta).Get(keyStats)
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &stats)
	})
	return stats, err
}

func (s *BoltStore) UpdateStats(stats domain.Stats) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(stats)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Put(keyStats, data)
	})
}
