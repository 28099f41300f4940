package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/alvinkenyagah/hope-connect-server/internal/apperr"
	"github.com/alvinkenyagah/hope-connect-server/internal/domain"
)

type authContextKey string

type authInfo struct {
	UserID string
	Role   domain.Role
	User   *domain.User
}

const contextKeyAuth authContextKey = "hope-connect-auth-info"

type contextSetter interface {
	SetContext(context.Context)
}

// requireAuth ensures the request has a valid bearer token before invoking the handler.
func (r *Router) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		ctx, _, ok := r.ensureAuth(w, req)
		if !ok {
			return
		}
		if setter, ok := w.(contextSetter); ok {
			setter.SetContext(ctx)
		}
		next(w, req.WithContext(ctx))
	}
}

// requireRole admits authenticated callers holding one of roles.
func (r *Router) requireRole(next http.HandlerFunc, roles ...domain.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		info, ok := authInfoFromContext(req.Context())
		if !ok {
			r.logger.Error("auth context missing", "path", req.URL.Path)
			writeError(w, http.StatusInternalServerError, "authorization context missing")
			return
		}
		if err := r.svc.Access.RequireRole(info.User, roles...); err != nil {
			r.writeFailure(w, req, err)
			return
		}
		next(w, req)
	}
}

// ensureAuth validates the Authorization header and enriches the context.
// A missing or malformed header is rejected before any store lookup.
func (r *Router) ensureAuth(w http.ResponseWriter, req *http.Request) (context.Context, authInfo, bool) {
	token, err := bearerToken(req.Header.Get("Authorization"))
	if err != nil {
		r.logger.Debug("authorization header invalid", "error", err, "path", req.URL.Path)
		writeError(w, http.StatusUnauthorized, "authentication required")
		return req.Context(), authInfo{}, false
	}
	user, _, err := r.svc.Auth.Authorize(req.Context(), token)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			r.writeFailure(w, req, err)
			return req.Context(), authInfo{}, false
		}
		r.logger.Debug("token validation failed", "error", err, "path", req.URL.Path)
		writeError(w, http.StatusUnauthorized, "authentication failed")
		return req.Context(), authInfo{}, false
	}
	info := authInfo{UserID: user.ID, Role: user.Role, User: user}
	ctx := context.WithValue(req.Context(), contextKeyAuth, info)
	return ctx, info, true
}

// authInfoFromContext extracts auth metadata from context.
func authInfoFromContext(ctx context.Context) (authInfo, bool) {
	value := ctx.Value(contextKeyAuth)
	if value == nil {
		return authInfo{}, false
	}
	info, ok := value.(authInfo)
	return info, ok
}

// currentUser returns the authenticated identity, writing a 500 when the middleware did not run.
func (r *Router) currentUser(w http.ResponseWriter, req *http.Request) (*domain.User, bool) {
	info, ok := authInfoFromContext(req.Context())
	if !ok || info.User == nil {
		r.logger.Error("auth context missing", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return nil, false
	}
	return info.User, true
}

func bearerToken(header string) (string, error) {
	if strings.TrimSpace(header) == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header format")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("empty bearer token")
	}
	return token, nil
}
