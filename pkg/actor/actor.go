// Package actor identifies the operator performing a warehouse action.
//
// Authentication happens upstream; the gateway forwards the authenticated
// identity as X-User-ID / X-User-Name headers and the HTTP layer turns them
// into an Actor on the request context. Every StockMovement records the
// actor's ID as performed_by.
package actor

import (
	"context"
	"fmt"
	"net/http"
)

// Header names set by the auth gateway
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserName = "X-User-Name"
)

// SystemID is used when no operator identity is present
const SystemID = "system"

// Actor represents the entity performing an action in the system.
type Actor struct {
	// ID is the operator's user ID in the auth system
	ID string `json:"id"`

	// Name is the display name, optional
	Name string `json:"name,omitempty"`
}

// String returns a string representation of the actor for logging
func (a *Actor) String() string {
	if a == nil {
		return SystemID
	}
	if a.Name == "" {
		return a.ID
	}
	return fmt.Sprintf("%s (%s)", a.Name, a.ID)
}

// IsSystem returns true if the actor represents the system.
func (a *Actor) IsSystem() bool {
	return a == nil || a.ID == SystemID
}

// contextKey is the type for context keys to avoid collisions
type contextKey string

const actorContextKey contextKey = "actor"

// FromContext retrieves the Actor from the context.
// Returns nil if no actor is present (e.g., system operations).
func FromContext(ctx context.Context) *Actor {
	if ctx == nil {
		return nil
	}
	a, ok := ctx.Value(actorContextKey).(*Actor)
	if !ok {
		return nil
	}
	return a
}

// WithActor returns a new context with the Actor attached.
func WithActor(ctx context.Context, a *Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorContextKey, a)
}

// ID returns the actor ID stored in ctx, or SystemID.
func ID(ctx context.Context) string {
	if a := FromContext(ctx); a != nil && a.ID != "" {
		return a.ID
	}
	return SystemID
}

// System returns an Actor representing the system itself.
func System() *Actor {
	return &Actor{ID: SystemID, Name: "System"}
}

// Middleware copies the gateway identity headers into the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderUserID)
		if id == "" {
			next.ServeHTTP(w, r)
			return
		}
		a := &Actor{ID: id, Name: r.Header.Get(HeaderUserName)}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), a)))
	})
}

// SetHeaders forwards the actor identity on an outgoing request.
func SetHeaders(req *http.Request, a *Actor) {
	if a == nil || a.ID == "" {
		return
	}
	req.Header.Set(HeaderUserID, a.ID)
	if a.Name != "" {
		req.Header.Set(HeaderUserName, a.Name)
	}
}
