package badgerdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/shelfwise/shelfwise-server/internal/store"
)

// maxConflictRetries bounds how often a read-modify-write transaction is
// retried after badger reports a conflicting concurrent commit.
const maxConflictRetries = 8

// Entity provides generic JSON document CRUD with secondary indexes.
//
// Keys are laid out as:
//
//	<prefix><id>                          document
//	<prefix>idx:<name>:<value>            unique index -> id
//	<prefix>idx:<name>:<value>:<id>       non-unique index -> id
type Entity[T any] struct {
	db      *badger.DB
	prefix  string
	idOf    func(*T) string
	indexes []Index[T]
}

// Index defines a secondary index on an entity.
type Index[T any] struct {
	name            string
	unique          bool
	keyGen          func(*T) []string
	lookupTransform func(string) string // applied to lookup values, e.g. case folding
}

// NewEntity creates a new Entity for type T stored under prefix.
func NewEntity[T any](db *badger.DB, prefix string, idOf func(*T) string) *Entity[T] {
	return &Entity[T]{db: db, prefix: prefix, idOf: idOf}
}

// WithUniqueIndex adds an index whose values may belong to one entity only.
// Writes that would reuse a value return store.ErrAlreadyExists.
func (e *Entity[T]) WithUniqueIndex(name string, keyGen func(*T) []string, lookupTransform func(string) string) *Entity[T] {
	e.indexes = append(e.indexes, Index[T]{name: name, unique: true, keyGen: keyGen, lookupTransform: lookupTransform})
	return e
}

// WithIndex adds a non-unique index used for prefix scans such as "all reviews of a book".
func (e *Entity[T]) WithIndex(name string, keyGen func(*T) []string) *Entity[T] {
	e.indexes = append(e.indexes, Index[T]{name: name, keyGen: keyGen})
	return e
}

func (e *Entity[T]) key(id string) []byte {
	return []byte(e.prefix + id)
}

func (e *Entity[T]) indexKey(idx Index[T], value, id string) []byte {
	if idx.unique {
		return []byte(e.prefix + "idx:" + idx.name + ":" + value)
	}
	return []byte(e.prefix + "idx:" + idx.name + ":" + value + ":" + id)
}

func (e *Entity[T]) indexPrefix(name, value string) []byte {
	return []byte(e.prefix + "idx:" + name + ":" + value + ":")
}

// Create stores a new entity. Returns store.ErrAlreadyExists on an ID or unique index collision.
func (e *Entity[T]) Create(ctx context.Context, entity *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.update(func(txn *badger.Txn) error {
		_, err := txn.Get(e.key(e.idOf(entity)))
		if err == nil {
			return store.ErrAlreadyExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("failed to check existing key: %w", err)
		}
		return e.putTxn(txn, nil, entity)
	})
}

// Get retrieves an entity by ID. Returns store.ErrNotFound if it does not exist.
func (e *Entity[T]) Get(ctx context.Context, id string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var entity *T
	err := e.db.View(func(txn *badger.Txn) error {
		var err error
		entity, err = e.getTxn(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// GetByIndex retrieves an entity through a unique index.
func (e *Entity[T]) GetByIndex(ctx context.Context, indexName, value string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx, ok := e.findIndex(indexName)
	if !ok || !idx.unique {
		return nil, fmt.Errorf("no unique index %q on %s", indexName, e.prefix)
	}
	if idx.lookupTransform != nil {
		value = idx.lookupTransform(value)
	}

	var entity *T
	err := e.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(e.indexKey(idx, value, ""))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return store.ErrNotFound
		}
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		entity, err = e.getTxn(txn, string(id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// ListByIndex returns every entity whose non-unique index has the given value.
func (e *Entity[T]) ListByIndex(ctx context.Context, indexName, value string) ([]*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []*T
	err := e.db.View(func(txn *badger.Txn) error {
		ids, err := e.idsByIndexTxn(txn, indexName, value)
		if err != nil {
			return err
		}
		for _, id := range ids {
			entity, err := e.getTxn(txn, id)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			out = append(out, entity)
		}
		return nil
	})
	return out, err
}

// Update overwrites an existing entity. Returns store.ErrNotFound if it does not exist.
func (e *Entity[T]) Update(ctx context.Context, entity *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.update(func(txn *badger.Txn) error {
		old, err := e.getTxn(txn, e.idOf(entity))
		if err != nil {
			return err
		}
		return e.putTxn(txn, old, entity)
	})
}

// Mutate applies fn to the current version of an entity and writes the result
// in the same transaction. Conflicting concurrent commits are retried, so fn
// always observes the latest committed state and may run more than once.
func (e *Entity[T]) Mutate(ctx context.Context, id string, fn func(*T) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.update(func(txn *badger.Txn) error {
		old, err := e.getTxn(txn, id)
		if err != nil {
			return err
		}
		// Decode a second copy so fn cannot disturb the index cleanup of old.
		current, err := e.getTxn(txn, id)
		if err != nil {
			return err
		}
		if err := fn(current); err != nil {
			return err
		}
		return e.putTxn(txn, old, current)
	})
}

// Delete removes an entity and its index entries. Returns store.ErrNotFound if it does not exist.
func (e *Entity[T]) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.update(func(txn *badger.Txn) error {
		return e.deleteTxn(txn, id)
	})
}

// List returns an iterator over all entities.
func (e *Entity[T]) List(ctx context.Context) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		//nolint:errcheck // errors are delivered through yield
		e.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = []byte(e.prefix)

			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Rewind(); it.Valid(); it.Next() {
				if err := ctx.Err(); err != nil {
					yield(nil, err)
					return err
				}

				// Skip index keys
				if strings.HasPrefix(string(it.Item().Key()[len(e.prefix):]), "idx:") {
					continue
				}

				var entity T
				err := it.Item().Value(func(val []byte) error {
					return json.Unmarshal(val, &entity)
				})
				if err != nil {
					yield(nil, fmt.Errorf("failed to unmarshal entity: %w", err))
					return err
				}

				if !yield(&entity, nil) {
					return nil
				}
			}
			return nil
		})
	}
}

// update runs fn in a read-write transaction, retrying on badger.ErrConflict.
func (e *Entity[T]) update(fn func(txn *badger.Txn) error) error {
	return retryOnConflict(func() error {
		return e.db.Update(fn)
	})
}

func retryOnConflict(fn func() error) error {
	var err error
	for range maxConflictRetries {
		err = fn()
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

func (e *Entity[T]) findIndex(name string) (Index[T], bool) {
	for _, idx := range e.indexes {
		if idx.name == name {
			return idx, true
		}
	}
	return Index[T]{}, false
}

func (e *Entity[T]) getTxn(txn *badger.Txn, id string) (*T, error) {
	item, err := txn.Get(e.key(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}

	var entity T
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &entity)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal entity: %w", err)
	}
	return &entity, nil
}

// putTxn writes entity and reconciles its index entries against old (nil for a new entity).
func (e *Entity[T]) putTxn(txn *badger.Txn, old, entity *T) error {
	id := e.idOf(entity)

	for _, idx := range e.indexes {
		var oldValues map[string]bool
		if old != nil {
			oldValues = make(map[string]bool)
			for _, v := range idx.keyGen(old) {
				oldValues[v] = true
			}
		}
		newValues := make(map[string]bool)
		for _, v := range idx.keyGen(entity) {
			newValues[v] = true
		}

		for v := range oldValues {
			if newValues[v] {
				continue
			}
			if err := txn.Delete(e.indexKey(idx, v, id)); err != nil {
				return fmt.Errorf("failed to delete old index key: %w", err)
			}
		}

		for v := range newValues {
			if oldValues[v] {
				continue
			}
			if idx.unique {
				_, err := txn.Get(e.indexKey(idx, v, id))
				if err == nil {
					return fmt.Errorf("index %s conflict on key %s: %w", idx.name, v, store.ErrAlreadyExists)
				}
				if !errors.Is(err, badger.ErrKeyNotFound) {
					return fmt.Errorf("failed to check index key: %w", err)
				}
			}
			if err := txn.Set(e.indexKey(idx, v, id), []byte(id)); err != nil {
				return fmt.Errorf("failed to set index key: %w", err)
			}
		}
	}

	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("failed to marshal entity: %w", err)
	}
	if err := txn.Set(e.key(id), data); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}
	return nil
}

func (e *Entity[T]) deleteTxn(txn *badger.Txn, id string) error {
	entity, err := e.getTxn(txn, id)
	if err != nil {
		return err
	}
	for _, idx := range e.indexes {
		for _, v := range idx.keyGen(entity) {
			if err := txn.Delete(e.indexKey(idx, v, id)); err != nil {
				return fmt.Errorf("failed to delete index key: %w", err)
			}
		}
	}
	if err := txn.Delete(e.key(id)); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}

func (e *Entity[T]) idsByIndexTxn(txn *badger.Txn, indexName, value string) ([]string, error) {
	idx, ok := e.findIndex(indexName)
	if !ok || idx.unique {
		return nil, fmt.Errorf("no non-unique index %q on %s", indexName, e.prefix)
	}
	prefix := e.indexPrefix(idx.name, value)

	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var ids []string
	for it.Rewind(); it.Valid(); it.Next() {
		id, err := it.Item().ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		ids = append(ids, string(id))
	}
	return ids, nil
}
