package tracker

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/shopmonkeyus/go-common/logger"
	"github.com/tidwall/buntdb"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	// SchemaKeyPrefix prefixes the cached schema document of a sensor type.
	SchemaKeyPrefix = "schema:"
	// EntitiesKey holds the entities of the last conversion.
	EntitiesKey = "convert:entities"
	// FingerprintKey holds the fingerprint of the entities of the last conversion.
	FingerprintKey = "convert:fingerprint"
)

// SchemaKey returns the key of the cached schema document of a sensor type.
func SchemaKey(sensorType string) string {
	return SchemaKeyPrefix + sensorType
}

type TrackerConfig struct {
	Context context.Context
	Logger  logger.Logger
	Dir     string
}

type Tracker struct {
	ctx    context.Context
	logger logger.Logger
	db     *buntdb.DB
	once   sync.Once
}

// Close will close the tracker and the underlying database.
func (t *Tracker) Close() error {
	t.logger.Debug("closing")
	t.once.Do(func() {
		t.db.Shrink()
		t.db.Close()
	})
	t.logger.Debug("closed")
	return nil
}

// GetKey will return the value of the key from the database.
func (t *Tracker) GetKey(key string) (bool, string, error) {
	var value string
	var found bool
	err := t.db.View(func(tx *buntdb.Tx) error {
		val, err := tx.Get(key, false)
		if err != nil {
			if err == buntdb.ErrNotFound {
				return nil
			}
			return err
		}
		value = val
		found = true
		return nil
	})
	if err != nil {
		return found, "", fmt.Errorf("failed to get key: %w", err)
	}
	return found, value, nil
}

// SetKey will set the key to the value in the database. An expires of 0 never expires.
func (t *Tracker) SetKey(key, value string, expires time.Duration) error {
	err := t.db.Update(func(tx *buntdb.Tx) error {
		var opts *buntdb.SetOptions
		if expires > 0 {
			opts = &buntdb.SetOptions{Expires: true, TTL: expires}
		}
		_, _, err := tx.Set(key, value, opts)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}
	return nil
}

// GetObject decodes the msgpack value of key into val. Returns false if the key isn't found.
func (t *Tracker) GetObject(key string, val any) (bool, error) {
	found, buf, err := t.GetKey(key)
	if err != nil || !found {
		return found, err
	}
	if err := msgpack.Unmarshal([]byte(buf), val); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

// SetObject stores val encoded with msgpack under key.
func (t *Tracker) SetObject(key string, val any, expires time.Duration) error {
	buf, err := msgpack.Marshal(val)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return t.SetKey(key, string(buf), expires)
}

// Keys returns the keys that start with prefix, sorted.
func (t *Tracker) Keys(prefix string) ([]string, error) {
	var keys []string
	err := t.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(prefix+"*", func(key, _ string) bool {
			if strings.HasPrefix(key, prefix) {
				keys = append(keys, key)
			}
			return true
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	return keys, nil
}

// DeleteKey will delete the keys from the database. Keys that don't exist are ignored.
func (t *Tracker) DeleteKey(keys ...string) error {
	return t.db.Update(func(tx *buntdb.Tx) error {
		for _, key := range keys {
			if _, err := tx.Delete(key); err != nil && err != buntdb.ErrNotFound {
				return err
			}
		}
		return nil
	})
}

// TrackerFilenameFromDir returns the filename for the tracker database based on a specific directory.
func TrackerFilenameFromDir(dir string) string {
	return filepath.Join(dir, "eds-sensors-data.db")
}

// NewTracker will create a new tracker with the given configuration.
func NewTracker(config TrackerConfig) (*Tracker, error) {
	var tracker Tracker

	db, err := buntdb.Open(TrackerFilenameFromDir(config.Dir))
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	var dbcfg buntdb.Config
	if err := db.ReadConfig(&dbcfg); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read db config: %w", err)
	}
	dbcfg.SyncPolicy = buntdb.EverySecond
	if err := db.SetConfig(dbcfg); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set db config: %w", err)
	}

	tracker.db = db
	tracker.ctx = config.Context
	tracker.logger = config.Logger.WithPrefix("[tracker]")

	return &tracker, nil
}
