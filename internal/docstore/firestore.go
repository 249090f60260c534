package docstore

import (
	"context"
	"fmt"
	"sort"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/cgscacau/green-belt-app-sub001/internal/tabular"
)

const healthCollection = "_health"

// FirestoreStore adapts a Firestore client to Store. Field paths in
// updates use Firestore's own dotted-path semantics.
type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) Get(ctx context.Context, collection, id string) (map[string]any, error) {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return fromSnapshot(snap)
}

func (s *FirestoreStore) Set(ctx context.Context, collection, id string, doc map[string]any) error {
	norm, err := tabular.NormalizeDocument(doc)
	if err != nil {
		return fmt.Errorf("failed to normalize document: %w", err)
	}
	if norm == nil {
		norm = map[string]any{}
	}
	if _, err := s.client.Collection(collection).Doc(id).Set(ctx, norm); err != nil {
		return fmt.Errorf("failed to set document: %w", err)
	}
	return nil
}

func (s *FirestoreStore) Update(ctx context.Context, collection, id string, updates map[string]any) error {
	norm, err := tabular.NormalizeDocument(updates)
	if err != nil {
		return fmt.Errorf("failed to normalize update: %w", err)
	}

	paths := make([]string, 0, len(norm))
	for p := range norm {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	fu := make([]firestore.Update, 0, len(paths))
	for _, p := range paths {
		fu = append(fu, firestore.Update{Path: p, Value: norm[p]})
	}

	_, err = s.client.Collection(collection).Doc(id).Update(ctx, fu)
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	return nil
}

func (s *FirestoreStore) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.client.Collection(collection).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

func (s *FirestoreStore) Query(ctx context.Context, collection, field, op string, value any) ([]Document, error) {
	want, err := tabular.Normalize(value)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize query value: %w", err)
	}

	iter := s.client.Collection(collection).Where(field, op, want).Documents(ctx)
	defer iter.Stop()

	var out []Document
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to query documents: %w", err)
		}
		doc, err := fromSnapshot(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, Document{ID: snap.Ref.ID, Data: doc})
	}
	return out, nil
}

// Ping reads a sentinel document; a missing document still proves the
// backend answered.
func (s *FirestoreStore) Ping(ctx context.Context) error {
	_, err := s.client.Collection(healthCollection).Doc("ping").Get(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return err
	}
	return nil
}

// fromSnapshot normalizes Firestore's native values (time.Time, nested
// maps, int64) into the document value set.
func fromSnapshot(snap *firestore.DocumentSnapshot) (map[string]any, error) {
	doc, err := tabular.NormalizeDocument(snap.Data())
	if err != nil {
		return nil, fmt.Errorf("failed to normalize document: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}
