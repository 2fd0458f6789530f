package apperror

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusByKind(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want int
	}{
		{"validation", Validation("bad input"), http.StatusUnprocessableEntity},
		{"auth", Auth("missing credentials"), http.StatusUnauthorized},
		{"not found", NotFound("missing"), http.StatusNotFound},
		{"conflict", Conflict("already exists"), http.StatusConflict},
		{"dependency", Dependency("redis down", nil), http.StatusServiceUnavailable},
		{"internal", Internal("boom", nil), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Status())
		})
	}
}

// TestForbiddenUsesAuthKindWithOverriddenStatus covers the one taxonomy
// member with two distinct statuses: a KindAuth error defaults to 401 but
// Forbidden overrides it to 403 for a caller who authenticated fine but
// lacks the required role.
func TestForbiddenUsesAuthKindWithOverriddenStatus(t *testing.T) {
	forbidden := Forbidden("insufficient role")
	assert.Equal(t, KindAuth, forbidden.Kind)
	assert.Equal(t, http.StatusForbidden, forbidden.Status())

	unauthorized := Auth("missing token")
	assert.Equal(t, KindAuth, unauthorized.Kind)
	assert.Equal(t, http.StatusUnauthorized, unauthorized.Status())
}

func TestErrorMessageIncludesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindDependency, "failed to reach redis", cause)
	assert.Equal(t, "failed to reach redis: connection refused", err.Error())
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestAsWrapsUnknownErrorsAsInternal(t *testing.T) {
	plain := errors.New("unexpected")
	wrapped := As(plain)
	assert.Equal(t, KindInternal, wrapped.Kind)
	assert.Equal(t, http.StatusInternalServerError, wrapped.Status())
}

func TestAsPassesThroughExistingAppError(t *testing.T) {
	original := NotFound("widget missing")
	got := As(original)
	assert.Same(t, original, got)
}

func TestAsNilReturnsNil(t *testing.T) {
	assert.Nil(t, As(nil))
}

func TestValidationCarriesIssues(t *testing.T) {
	err := Validation("invalid payload", Issue{Path: "name", Code: "required", Message: "name is required"})
	require := assert.New(t)
	require.Len(err.Issues, 1)
	require.Equal("name", err.Issues[0].Path)
}
