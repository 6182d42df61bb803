package repo

import (
	"fmt"
	"os"
	"path"
	"strconv"

	"io/ioutil"

	"github.com/op/go-logging"
	"github.com/openlar/openlar/models"
	"gorm.io/gorm"
)

const (
	// defaultRepoVersion is the current repo version used for migrations.
	defaultRepoVersion = 0

	// versionFileName is the name of the version file.
	versionFileName = "version"
)

var log = logging.MustGetLogger("REPO")

// Repo is a representation of an openlar data directory.
// In this we store:
// - The openlar.conf file
// - The log directory
// - The sqlite database
type Repo struct {
	db      Database
	dataDir string
}

// NewRepo returns a new Repo for the given data directory. It will
// be initialized if it is not already.
func NewRepo(dataDir string) (*Repo, error) {
	return newRepo(dataDir, false)
}

// DB returns the database implementation.
func (r *Repo) DB() Database {
	return r.db
}

// DataDir returns the data directory associated with this repo.
func (r *Repo) DataDir() string {
	return r.dataDir
}

// Close will close the repo and associated databases.
func (r *Repo) Close() {
	if err := r.db.Close(); err != nil {
		log.Errorf("Error closing database: %s", err)
	}
}

// DestroyRepo deletes the entire directory. Do NOT use this unless you are
// positive you want to wipe all data.
func (r *Repo) DestroyRepo() error {
	if err := r.db.Close(); err != nil {
		return err
	}
	return os.RemoveAll(r.dataDir)
}

// writeVersion writes the version number to file.
func (r *Repo) writeVersion(version int) error {
	versionStr := strconv.Itoa(version)
	return ioutil.WriteFile(path.Join(r.dataDir, versionFileName), []byte(versionStr), os.ModePerm)
}

func newRepo(dataDir string, inMemoryDB bool) (*Repo, error) {
	var (
		db  Database
		err error
	)
	if inMemoryDB {
		db, err = NewSqliteDB(":memory:")
	} else {
		if err := checkWriteable(dataDir); err != nil {
			return nil, err
		}
		if err := os.MkdirAll(path.Join(dataDir, "datastore"), os.ModePerm); err != nil {
			return nil, err
		}
		db, err = NewSqliteDB(dataDir)
	}
	if err != nil {
		return nil, err
	}

	if err := autoMigrateDatabase(db); err != nil {
		return nil, err
	}

	r := &Repo{db: db, dataDir: dataDir}
	if !inMemoryDB {
		if err := r.writeVersion(defaultRepoVersion); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func checkWriteable(dir string) error {
	_, err := os.Stat(dir)
	if err == nil {
		// Directory exists, make sure we can write to it.
		testfile := path.Join(dir, "test")
		fi, err := os.Create(testfile)
		if err != nil {
			if os.IsPermission(err) {
				return fmt.Errorf("%s is not writeable by the current user", dir)
			}
			return fmt.Errorf("unexpected error while checking writeablility of repo root: %s", err)
		}
		fi.Close()
		return os.Remove(testfile)
	}

	if os.IsNotExist(err) {
		// Directory does not exist, check that we can create it.
		return os.MkdirAll(dir, 0775)
	}

	if os.IsPermission(err) {
		return fmt.Errorf("cannot write to %s, incorrect permissions", err)
	}

	return err
}

func autoMigrateDatabase(db Database) error {
	dbModels := []interface{}{
		&models.Notification{},
		&models.User{},
		&models.Session{},
		&models.Employee{},
		&models.Resident{},
		&models.Appointment{},
		&models.Medicament{},
		&models.MedicamentAdministration{},
		&models.Message{},
	}
	return db.Update(func(tx *gorm.DB) error {
		for _, m := range dbModels {
			if err := tx.AutoMigrate(m); err != nil {
				return err
			}
		}
		return nil
	})
}
