package docstore

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Category is the coarse class of a store failure.
type Category string

const (
	CategoryPermission   Category = "permission"
	CategoryConnectivity Category = "connectivity"
	CategoryQuota        Category = "quota"
	CategoryUnknown      Category = "unknown"
)

var (
	permissionHints   = []string{"permission", "unauthenticated", "unauthorized", "forbidden", "access denied", "noauth", "wrongpass"}
	connectivityHints = []string{"network", "connection", "connect", "timeout", "timed out", "unavailable", "dial", "refused", "eof", "i/o"}
	quotaHints        = []string{"quota", "resource exhausted", "resource_exhausted", "rate limit", "too many", "oom"}
)

// Classify derives a Category from err. gRPC status codes are used when
// present; otherwise the failure text is inspected.
func Classify(err error) Category {
	if err == nil {
		return CategoryUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return CategoryConnectivity
	}
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.PermissionDenied, codes.Unauthenticated:
			return CategoryPermission
		case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
			return CategoryConnectivity
		case codes.ResourceExhausted:
			return CategoryQuota
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, permissionHints):
		return CategoryPermission
	case containsAny(msg, quotaHints):
		return CategoryQuota
	case containsAny(msg, connectivityHints):
		return CategoryConnectivity
	default:
		return CategoryUnknown
	}
}

func containsAny(s string, hints []string) bool {
	for _, h := range hints {
		if strings.Contains(s, h) {
			return true
		}
	}
	return false
}
