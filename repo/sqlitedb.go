package repo

import (
	"fmt"
	"math/rand"
	"path"
	"sync"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const dbName = "openlar.db"

// SqliteDB is an implementation of the Database interface using
// the gorm ORM with sqlite.
type SqliteDB struct {
	db  *gorm.DB
	mtx sync.RWMutex
}

// NewSqliteDB instantiates a new db which satisfies the Database interface.
func NewSqliteDB(dataDir string) (*SqliteDB, error) {
	pth := path.Join(dataDir, "datastore", dbName)
	if dataDir == ":memory:" {
		// A uniquely named shared-cache memory db so the connection pool
		// sees a single database but separate opens remain isolated.
		pth = fmt.Sprintf("file:memdb%d?mode=memory&cache=shared", rand.Int63())
	}
	db, err := gorm.Open(sqlite.Open(pth), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	return &SqliteDB{db: db}, nil
}

// View invokes the passed function in the context of a managed
// read-only transaction.
func (s *SqliteDB) View(fn func(tx *gorm.DB) error) error {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	return fn(s.db)
}

// Update invokes the passed function in the context of a managed
// read-write transaction. Any error returned by the function rolls
// the transaction back; a nil return commits it.
func (s *SqliteDB) Update(fn func(tx *gorm.DB) error) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	tx := s.db.Begin()
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

// Close cleanly shuts down the database and syncs all data.
func (s *SqliteDB) Close() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
