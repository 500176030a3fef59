package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/weatherdash/internal/common"
)

// Reason is the diagnostic cause of a rejected request. It is meant for
// logs and metrics; callers only ever see common.MessageUnauthenticated.
type Reason string

const (
	ReasonNoToken   Reason = "no_token"
	ReasonMalformed Reason = "malformed"
	ReasonExpired   Reason = "expired"
)

// Rejection is returned by Gate.Authenticate. It matches
// common.ErrUnauthenticated with errors.Is and unwraps to the underlying
// token error.
type Rejection struct {
	Reason Reason
	Err    error
}

func (r *Rejection) Error() string {
	return "unauthenticated: " + string(r.Reason)
}

func (r *Rejection) Unwrap() []error {
	return []error{common.ErrUnauthenticated, r.Err}
}

type ctxKey struct{}

// WithUserID returns a copy of ctx carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserIDFromContext returns the user ID attached by the gate.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// Gate turns an Authorization header value into an authenticated context.
type Gate struct {
	verifier *Verifier
}

func NewGate(v *Verifier) *Gate {
	return &Gate{verifier: v}
}

// Authenticate returns ctx enriched with the token's user ID, or a
// *Rejection. The header must be "Bearer <token>".
func (g *Gate) Authenticate(ctx context.Context, header string) (context.Context, error) {
	token, ok := strings.CutPrefix(header, common.BearerPrefix)
	if !ok || token == "" || strings.HasPrefix(token, " ") {
		return ctx, &Rejection{Reason: ReasonNoToken, Err: common.ErrTokenMissing}
	}
	if strings.ContainsAny(token, " \t\r\n") {
		return ctx, &Rejection{Reason: ReasonMalformed, Err: common.ErrInvalidToken}
	}

	claims, err := g.verifier.Verify(token)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return ctx, &Rejection{Reason: ReasonExpired, Err: err}
		}
		return ctx, &Rejection{Reason: ReasonMalformed, Err: err}
	}

	return WithUserID(ctx, claims.UserID), nil
}

// ReasonOf extracts the rejection reason from err, if any.
func ReasonOf(err error) (Reason, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r.Reason, true
	}
	return "", false
}
