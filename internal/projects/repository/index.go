package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/cgscacau/green-belt-app-sub001/internal/docstore"
	"github.com/cgscacau/green-belt-app-sub001/internal/projects/domain"
)

// The owner index lives at users/{owner_id} as {projects: [ids], updated_at}.
const indexField = "projects"

func (r *ProjectRepository) addToIndex(ctx context.Context, ownerID, projectID string) error {
	now := domain.FormatTimestamp(r.sync.Now())
	doc, err := r.store.Get(ctx, domain.UsersCollection, ownerID)
	if errors.Is(err, docstore.ErrNotFound) {
		err = r.store.Set(ctx, domain.UsersCollection, ownerID, map[string]any{
			indexField:   []any{projectID},
			"updated_at": now,
		})
		if err != nil {
			return fmt.Errorf("failed to create project index: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read project index: %w", err)
	}

	ids := indexIDs(doc)
	for _, id := range ids {
		if id == projectID {
			return nil
		}
	}
	ids = append(ids, projectID)
	if err := r.store.Update(ctx, domain.UsersCollection, ownerID, map[string]any{
		indexField:   toAnySlice(ids),
		"updated_at": now,
	}); err != nil {
		return fmt.Errorf("failed to update project index: %w", err)
	}
	return nil
}

func (r *ProjectRepository) removeFromIndex(ctx context.Context, ownerID, projectID string) error {
	doc, err := r.store.Get(ctx, domain.UsersCollection, ownerID)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read project index: %w", err)
	}

	ids := indexIDs(doc)
	kept := ids[:0]
	for _, id := range ids {
		if id != projectID {
			kept = append(kept, id)
		}
	}
	if err := r.store.Update(ctx, domain.UsersCollection, ownerID, map[string]any{
		indexField:   toAnySlice(kept),
		"updated_at": domain.FormatTimestamp(r.sync.Now()),
	}); err != nil {
		return fmt.Errorf("failed to update project index: %w", err)
	}
	return nil
}

// IndexedProjects returns the project ids recorded for the owner.
func (r *ProjectRepository) IndexedProjects(ctx context.Context, ownerID string) ([]string, error) {
	doc, err := r.store.Get(ctx, domain.UsersCollection, ownerID)
	if errors.Is(err, docstore.ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read project index: %w", err)
	}
	return indexIDs(doc), nil
}

func indexIDs(doc map[string]any) []string {
	raw, _ := doc[indexField].([]any)
	ids := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			ids = append(ids, s)
		}
	}
	return ids
}

func toAnySlice(ids []string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
