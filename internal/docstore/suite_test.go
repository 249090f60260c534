package docstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreSuite exercises the Store contract against one backend.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, "projects", "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("set and get normalizes values", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "projects", "p1", map[string]any{
			"name":    "Reduce Cycle Time",
			"savings": 1500.5,
			"count":   3,
			"tags":    []string{"a", "b"},
			"define":  map[string]any{"charter": map[string]any{"completed": false, "data": map[string]any{}}},
		}))

		doc, err := s.Get(ctx, "projects", "p1")
		require.NoError(t, err)
		assert.Equal(t, "Reduce Cycle Time", doc["name"])
		assert.Equal(t, 1500.5, doc["savings"])
		assert.Equal(t, int64(3), doc["count"])
		assert.Equal(t, []any{"a", "b"}, doc["tags"])
		completed, ok := GetPath(doc, "define.charter.completed")
		require.True(t, ok)
		assert.Equal(t, false, completed)
	})

	t.Run("update writes only named paths", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "projects", "p1", map[string]any{
			"measure": map[string]any{
				"file_upload":   map[string]any{"completed": false},
				"baseline_data": map[string]any{"completed": true, "data": map[string]any{"mean": 4.5}},
			},
		}))
		require.NoError(t, s.Update(ctx, "projects", "p1", map[string]any{
			"measure.file_upload.completed": true,
			"updated_at":                    "2024-01-01T00:00:00Z",
		}))

		doc, err := s.Get(ctx, "projects", "p1")
		require.NoError(t, err)
		v, _ := GetPath(doc, "measure.file_upload.completed")
		assert.Equal(t, true, v)
		v, _ = GetPath(doc, "measure.baseline_data.data.mean")
		assert.Equal(t, 4.5, v)
		assert.Equal(t, "2024-01-01T00:00:00Z", doc["updated_at"])
	})

	t.Run("update missing", func(t *testing.T) {
		s := newStore(t)
		err := s.Update(ctx, "projects", "ghost", map[string]any{"name": "x"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "projects", "p1", map[string]any{"owner_id": "u1"}))
		require.NoError(t, s.Delete(ctx, "projects", "p1"))

		_, err := s.Get(ctx, "projects", "p1")
		assert.ErrorIs(t, err, ErrNotFound)
		docs, err := s.Query(ctx, "projects", "owner_id", OpEqual, "u1")
		require.NoError(t, err)
		assert.Empty(t, docs)
		assert.NoError(t, s.Delete(ctx, "projects", "p1"))
	})

	t.Run("query by field", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "projects", "a", map[string]any{"owner_id": "u1", "n": 1}))
		require.NoError(t, s.Set(ctx, "projects", "b", map[string]any{"owner_id": "u2", "n": 2}))
		require.NoError(t, s.Set(ctx, "projects", "c", map[string]any{"owner_id": "u1", "n": 3}))
		require.NoError(t, s.Set(ctx, "users", "u1", map[string]any{"owner_id": "u1"}))

		docs, err := s.Query(ctx, "projects", "owner_id", OpEqual, "u1")
		require.NoError(t, err)
		ids := make([]string, 0, len(docs))
		for _, d := range docs {
			ids = append(ids, d.ID)
		}
		assert.ElementsMatch(t, []string{"a", "c"}, ids)
	})

	t.Run("returned documents are copies", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "projects", "p1", map[string]any{"inner": map[string]any{"k": "v"}}))

		doc, err := s.Get(ctx, "projects", "p1")
		require.NoError(t, err)
		doc["inner"].(map[string]any)["k"] = "changed"

		again, err := s.Get(ctx, "projects", "p1")
		require.NoError(t, err)
		v, _ := GetPath(again, "inner.k")
		assert.Equal(t, "v", v)
	})
}
