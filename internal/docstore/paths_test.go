package docstore

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestSetAndGetPath(t *testing.T) {
	doc := map[string]any{"measure": "not a map"}
	SetPath(doc, "measure.file_upload.completed", true)
	SetPath(doc, "name", "x")

	v, ok := GetPath(doc, "measure.file_upload.completed")
	assert.True(t, ok)
	assert.Equal(t, true, v)
	assert.Equal(t, "x", doc["name"])

	_, ok = GetPath(doc, "measure.file_upload.completed.deeper")
	assert.False(t, ok)
	_, ok = GetPath(doc, "missing")
	assert.False(t, ok)
}

func TestExpandPaths(t *testing.T) {
	got := ExpandPaths(map[string]any{
		"measure.file_upload.completed": true,
		"measure.file_upload":           map[string]any{"data": "d"},
		"updated_at":                    "t",
	})
	assert.Equal(t, map[string]any{
		"measure":    map[string]any{"file_upload": map[string]any{"data": "d", "completed": true}},
		"updated_at": "t",
	}, got)
}

func TestClone_IsDeep(t *testing.T) {
	orig := map[string]any{"a": []any{map[string]any{"b": 1}}}
	cp := CloneDoc(orig)
	cp["a"].([]any)[0].(map[string]any)["b"] = 2

	assert.Equal(t, 1, orig["a"].([]any)[0].(map[string]any)["b"])
	assert.Nil(t, CloneDoc(nil))
}

func TestValuesEqual(t *testing.T) {
	assert.True(t, ValuesEqual(int64(3), 3.0))
	assert.True(t, ValuesEqual(3.0, int64(3)))
	assert.False(t, ValuesEqual(int64(3), "3"))
	assert.True(t, ValuesEqual("u1", "u1"))
	assert.True(t, ValuesEqual([]any{"a"}, []any{"a"}))
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want Category
	}{
		{status.Error(codes.PermissionDenied, "missing or insufficient permissions"), CategoryPermission},
		{status.Error(codes.Unauthenticated, "token expired"), CategoryPermission},
		{status.Error(codes.Unavailable, "backend down"), CategoryConnectivity},
		{status.Error(codes.ResourceExhausted, "slow down"), CategoryQuota},
		{fmt.Errorf("failed to get document: %w", status.Error(codes.DeadlineExceeded, "x")), CategoryConnectivity},
		{errors.New("dial tcp 127.0.0.1:6379: connect: connection refused"), CategoryConnectivity},
		{errors.New("Quota exceeded for project"), CategoryQuota},
		{errors.New("PERMISSION denied by rules"), CategoryPermission},
		{errors.New("something odd"), CategoryUnknown},
		{nil, CategoryUnknown},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.err), "%v", tc.err)
	}
}
