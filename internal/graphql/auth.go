package graphql

import (
	"context"

	"github.com/academy-manager/academy-api/internal/models"
	appErrors "github.com/academy-manager/academy-api/pkg/errors"
)

type claimsKey struct{}

// WithClaims attaches the caller's claims to ctx for resolvers.
func WithClaims(ctx context.Context, claims *models.JWTClaims) context.Context {
	if claims == nil {
		return ctx
	}
	return context.WithValue(ctx, claimsKey{}, claims)
}

func claimsFrom(ctx context.Context) *models.JWTClaims {
	claims, _ := ctx.Value(claimsKey{}).(*models.JWTClaims)
	return claims
}

func authenticated(ctx context.Context) (*models.JWTClaims, error) {
	claims := claimsFrom(ctx)
	if claims == nil {
		return nil, resolverError(appErrors.ErrUnauthorized)
	}
	return claims, nil
}

func requireRoles(ctx context.Context, roles ...models.UserRole) (*models.JWTClaims, error) {
	claims, err := authenticated(ctx)
	if err != nil {
		return nil, err
	}
	if !hasRole(claims, roles...) {
		return nil, resolverError(appErrors.Clone(appErrors.ErrForbidden, "role "+string(claims.Role)+" may not perform this operation"))
	}
	return claims, nil
}

func hasRole(claims *models.JWTClaims, roles ...models.UserRole) bool {
	for _, r := range roles {
		if claims.Role == r {
			return true
		}
	}
	return false
}

// Error carries the domain error code and status into the GraphQL
// response extensions.
type Error struct {
	app *appErrors.Error
}

func resolverError(err error) error {
	return &Error{app: appErrors.FromError(err)}
}

// Error returns the client-facing message only; wrapped causes stay server side.
func (e *Error) Error() string { return e.app.Message }

// Extensions implements gqlerrors.ExtendedError.
func (e *Error) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": e.app.Code, "status": e.app.Status}
}

func (e *Error) Unwrap() error { return e.app }
