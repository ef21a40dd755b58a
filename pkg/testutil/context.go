package testutil

import (
	"context"
	"net/http"

	"carbonledger/internal/platform/middleware"
)

// WithUserID adds an authenticated operator ID to the request context,
// simulating what the auth middleware does for authenticated requests.
func WithUserID(req *http.Request, userID string) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.ContextKeyUserID, userID)
	return req.WithContext(ctx)
}
