package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/cgscacau/green-belt-app-sub001/internal/tabular"
)

const (
	docKeyPrefix        = "doc:"  // JSON document: doc:{collection}:{id}
	collectionSetPrefix = "docs:" // Set of document IDs: docs:{collection}
	maxUpdateAttempts   = 3
)

// RedisStore keeps each document as a JSON string and tracks collection
// membership in a set so queries can scan a collection.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, collection, id string) (map[string]any, error) {
	data, err := s.client.Get(ctx, s.docKey(collection, id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return decodeJSONDoc(data)
}

func (s *RedisStore) Set(ctx context.Context, collection, id string, doc map[string]any) error {
	data, err := encodeJSONDoc(doc)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.docKey(collection, id), data, 0)
	pipe.SAdd(ctx, s.collectionKey(collection), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to set document: %w", err)
	}
	return nil
}

// Update applies the field paths under WATCH so a concurrent writer to the
// same document aborts the transaction instead of being overwritten.
func (s *RedisStore) Update(ctx context.Context, collection, id string, updates map[string]any) error {
	norm, err := tabular.NormalizeDocument(updates)
	if err != nil {
		return fmt.Errorf("failed to normalize update: %w", err)
	}
	key := s.docKey(collection, id)

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		doc, err := decodeJSONDoc(raw)
		if err != nil {
			return err
		}

		paths := make([]string, 0, len(norm))
		for p := range norm {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		for _, p := range paths {
			SetPath(doc, p, norm[p])
		}

		data, err := encodeJSONDoc(doc)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err = s.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, collection, id string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.docKey(collection, id))
	pipe.SRem(ctx, s.collectionKey(collection), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

func (s *RedisStore) Query(ctx context.Context, collection, field, op string, value any) ([]Document, error) {
	if op != OpEqual {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOperator, op)
	}
	want, err := tabular.Normalize(value)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize query value: %w", err)
	}

	ids, err := s.client.SMembers(ctx, s.collectionKey(collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list collection: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	sort.Strings(ids)

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.docKey(collection, id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read collection: %w", err)
	}

	var out []Document
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			// Member left behind by an interrupted delete.
			continue
		}
		doc, err := decodeJSONDoc([]byte(str))
		if err != nil {
			return nil, err
		}
		if got, ok := GetPath(doc, field); ok && ValuesEqual(got, want) {
			out = append(out, Document{ID: ids[i], Data: doc})
		}
	}
	return out, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) docKey(collection, id string) string {
	return docKeyPrefix + collection + ":" + id
}

func (s *RedisStore) collectionKey(collection string) string {
	return collectionSetPrefix + collection
}

func encodeJSONDoc(doc map[string]any) ([]byte, error) {
	norm, err := tabular.NormalizeDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize document: %w", err)
	}
	if norm == nil {
		norm = map[string]any{}
	}
	data, err := json.Marshal(norm)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	return data, nil
}

// decodeJSONDoc keeps integers as int64 rather than letting encoding/json
// turn every number into float64.
func decodeJSONDoc(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	doc, err := tabular.NormalizeDocument(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize document: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}
