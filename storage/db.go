package storage

import (
	"fmt"

	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/ethdb"
	gethleveldb "github.com/ethereum/go-ethereum/ethdb/leveldb"
	"github.com/ethereum/go-ethereum/triedb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

const (
	levelDBNamespace = "curvefoundry/db/"
	levelDBCacheMiB  = 64
	levelDBHandles   = 256
)

// Database is a generic interface for a key-value store backing the state
// trie. Raw Put/Get access is reserved for node metadata (committed roots,
// block headers); engine state always goes through the trie.
type Database interface {
	Put(key []byte, value []byte) error
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	// TrieDB returns the node database shared by every trie opened on the store.
	TrieDB() *triedb.Database
	Close() // A way to gracefully shut down the database connection.
}

// --- In-Memory DB (for testing) ---

// MemDB keeps trie nodes and metadata in process memory.
type MemDB struct {
	disk   ethdb.Database
	trieDB *triedb.Database
}

func NewMemDB() *MemDB {
	disk := rawdb.NewMemoryDatabase()
	return &MemDB{
		disk:   disk,
		trieDB: triedb.NewDatabase(disk, triedb.HashDefaults),
	}
}

func (db *MemDB) Put(key []byte, value []byte) error {
	return db.disk.Put(key, value)
}

func (db *MemDB) Get(key []byte) ([]byte, error) {
	value, err := db.disk.Get(key)
	if err != nil {
		return nil, fmt.Errorf("key not found")
	}
	return value, nil
}

func (db *MemDB) Has(key []byte) (bool, error) {
	return db.disk.Has(key)
}

func (db *MemDB) TrieDB() *triedb.Database { return db.trieDB }

// Close satisfies the Database interface for MemDB.
func (db *MemDB) Close() {
	db.trieDB.Close()
	db.disk.Close()
}

// --- Persistent DB ---

// LevelDB is a persistent key-value store using LevelDB.
type LevelDB struct {
	disk   ethdb.Database
	trieDB *triedb.Database
}

// NewLevelDB creates or opens a LevelDB database at the specified path.
func NewLevelDB(path string) (*LevelDB, error) {
	kv, err := gethleveldb.NewCustom(path, levelDBNamespace, func(options *opt.Options) {
		options.ErrorIfMissing = false
		options.BlockCacheCapacity = levelDBCacheMiB * opt.MiB
		options.WriteBuffer = levelDBCacheMiB / 4 * opt.MiB
		options.OpenFilesCacheCapacity = levelDBHandles
	})
	if err != nil {
		return nil, err
	}
	disk := rawdb.NewDatabase(kv)
	return &LevelDB{
		disk:   disk,
		trieDB: triedb.NewDatabase(disk, triedb.HashDefaults),
	}, nil
}

// Put inserts or updates a key-value pair.
func (ldb *LevelDB) Put(key []byte, value []byte) error {
	return ldb.disk.Put(key, value)
}

// Get retrieves a value for a given key.
func (ldb *LevelDB) Get(key []byte) ([]byte, error) {
	return ldb.disk.Get(key)
}

// Has reports whether the key exists.
func (ldb *LevelDB) Has(key []byte) (bool, error) {
	return ldb.disk.Has(key)
}

func (ldb *LevelDB) TrieDB() *triedb.Database { return ldb.trieDB }

// Close closes the database connection.
func (ldb *LevelDB) Close() {
	ldb.trieDB.Close()
	ldb.disk.Close()
}
