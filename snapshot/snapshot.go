// Package snapshot persists a store's state in a bbolt database so a daemon
// can pick up where it left off. Values are stored as JSON: numbers come back
// as float64, except that Restore turns whole numbers in class slots back into
// ints so a component setting the same int does not see a change.
package snapshot

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"

	"github.com/delaneyj/strux/changes"
	"github.com/delaneyj/strux/store"
	"github.com/golang/glog"
	bolt "go.etcd.io/bbolt"
	"golang.org/x/exp/maps"
)

const (
	bucketApp     = "app"
	bucketClasses = "classes"
)

type DB struct {
	db *bolt.DB
}

func Open(path string) (*DB, error) {
	db, err := bolt.Open(path, 0o644, nil)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{bucketApp, bucketClasses} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing snapshot %s: %w", path, err)
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Save replaces the stored snapshot with state. Class slots are keyed by the
// name names gives them; unnamed classes are skipped.
func (d *DB) Save(state store.State, names func(changes.ClassID) string) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		app, err := resetBucket(tx, bucketApp)
		if err != nil {
			return err
		}
		for _, key := range state.App.Keys() {
			data, err := json.Marshal(state.App[key])
			if err != nil {
				return fmt.Errorf("encoding %s: %w", key, err)
			}
			if err := app.Put([]byte(key), data); err != nil {
				return err
			}
		}

		classes, err := resetBucket(tx, bucketClasses)
		if err != nil {
			return err
		}
		for id, slot := range state.Components {
			name := names(id)
			if name == "" {
				glog.Warningf("strux: not saving unnamed %s", id)
				continue
			}
			data, err := json.Marshal(slot)
			if err != nil {
				return fmt.Errorf("encoding class %s: %w", name, err)
			}
			if err := classes.Put([]byte(name), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func resetBucket(tx *bolt.Tx, name string) (*bolt.Bucket, error) {
	if err := tx.DeleteBucket([]byte(name)); err != nil && err != bolt.ErrBucketNotFound {
		return nil, err
	}
	return tx.CreateBucket([]byte(name))
}

// Saved is a snapshot as read back from disk.
type Saved struct {
	App     changes.Values
	Classes map[string]changes.Values
}

func (d *DB) Load() (Saved, error) {
	saved := Saved{
		App:     changes.Values{},
		Classes: map[string]changes.Values{},
	}
	err := d.db.View(func(tx *bolt.Tx) error {
		err := tx.Bucket([]byte(bucketApp)).ForEach(func(k, v []byte) error {
			var val any
			if err := json.Unmarshal(v, &val); err != nil {
				return fmt.Errorf("decoding %s: %w", k, err)
			}
			saved.App[string(k)] = val
			return nil
		})
		if err != nil {
			return err
		}
		return tx.Bucket([]byte(bucketClasses)).ForEach(func(k, v []byte) error {
			var slot changes.Values
			if err := json.Unmarshal(v, &slot); err != nil {
				return fmt.Errorf("decoding class %s: %w", k, err)
			}
			saved.Classes[string(k)] = slot
			return nil
		})
	})
	return saved, err
}

// Restore loads the snapshot into s. The application state becomes the
// store's initial state and each class slot is replayed as a state change,
// defining classes the table does not know yet.
func (d *DB) Restore(s *store.Store, classes *changes.ClassTable) error {
	saved, err := d.Load()
	if err != nil {
		return err
	}
	if len(saved.App) > 0 {
		if _, err := s.SetInitialState(saved.App); err != nil {
			return fmt.Errorf("restoring application state: %w", err)
		}
	}
	for _, name := range sortedNames(saved.Classes) {
		id, ok := classes.Lookup(name)
		if !ok {
			id = classes.Define(name)
		}
		slot, _ := wholeNumbers(saved.Classes[name]).(changes.Values)
		if err := s.Dispatch(store.StateChange{Class: id, New: slot}); err != nil {
			return fmt.Errorf("restoring class %s: %w", name, err)
		}
	}
	glog.Infof("strux: restored %d keys and %d classes", len(saved.App), len(saved.Classes))
	return nil
}

func sortedNames(m map[string]changes.Values) []string {
	names := maps.Keys(m)
	slices.Sort(names)
	return names
}

func wholeNumbers(v any) any {
	switch val := v.(type) {
	case float64:
		if val == math.Trunc(val) && math.Abs(val) <= math.MaxInt32 {
			return int(val)
		}
	case changes.Values:
		out := make(changes.Values, len(val))
		for k, item := range val {
			out[k] = wholeNumbers(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = wholeNumbers(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = wholeNumbers(item)
		}
		return out
	}
	return v
}
