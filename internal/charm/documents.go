// ABOUTME: Tracker document operations using Charm KV
// ABOUTME: Stores each document as JSON under its path and merges in one transaction

package charm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/charmbracelet/charm/kv"
	"github.com/harper/beacon/internal/storage"
)

// Compile-time check that Client implements storage.DocumentStore.
var _ storage.DocumentStore = (*Client)(nil)

// Get retrieves the document stored at path.
func (c *Client) Get(ctx context.Context, path string) (storage.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := c.get([]byte(path))
	if err != nil {
		if isMissingKey(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return decode(data)
}

// Merge applies fields on top of the existing document inside a single
// write transaction.
func (c *Client) Merge(ctx context.Context, path string, fields storage.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := storage.ValidatePath(path); err != nil {
		return err
	}

	key := []byte(path)
	return c.do(func(k *kv.KV) error {
		existing := storage.Document{}
		data, err := k.Get(key)
		switch {
		case err == nil:
			if existing, err = decode(data); err != nil {
				return err
			}
		case !isMissingKey(err):
			return fmt.Errorf("read document: %w", err)
		}

		encoded, err := json.Marshal(storage.MergeFields(existing, fields))
		if err != nil {
			return fmt.Errorf("marshal document: %w", err)
		}
		if err := k.Set(key, encoded); err != nil {
			return fmt.Errorf("set document: %w", err)
		}
		return nil
	})
}

// Delete removes the document at path.
func (c *Client) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.do(func(k *kv.KV) error {
		if err := k.Delete([]byte(path)); err != nil && !isMissingKey(err) {
			return fmt.Errorf("delete document: %w", err)
		}
		return nil
	})
}

// List returns the ids of documents directly under collection.
func (c *Client) List(ctx context.Context, collection string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	keys, err := c.keys()
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}

	prefix := []byte(collection + "/")
	paths := make([]string, 0, len(keys))
	for _, key := range keys {
		if bytes.HasPrefix(key, prefix) {
			paths = append(paths, string(key))
		}
	}

	ids := storage.ChildIDs(collection, paths)
	sort.Strings(ids)
	return ids, nil
}

func decode(data []byte) (storage.Document, error) {
	var doc storage.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	if doc == nil {
		doc = storage.Document{}
	}
	return doc, nil
}
