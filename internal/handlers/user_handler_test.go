package handlers

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hotelpms/hotel-backend/internal/services"
)

func TestUserHandler_Profile(t *testing.T) {
	auth := &stubAuth{}
	h := NewUserHandler(auth, testLogger())
	me := uuid.New()

	c, w := newTestContext(http.MethodGet, "/api/users/me", nil, userCtx(me))
	h.GetProfile(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), me.String())

	c, w = newTestContext(http.MethodPut, "/api/users/me", map[string]string{
		"name": "New Name", "email": "new@example.com", "phone": "+82 10 1234 5678",
	}, userCtx(me))
	h.UpdateProfile(c)
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, auth.profile)
	assert.Equal(t, "+82 10 1234 5678", auth.profile.Phone)

	c, w = newTestContext(http.MethodPut, "/api/users/me", map[string]string{"name": "No Email"}, userCtx(me))
	h.UpdateProfile(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUserHandler_ChangePassword(t *testing.T) {
	body := map[string]string{"current_password": "old-pass", "new_password": "new-pass", "confirm_password": "new-pasz"}

	auth := &stubAuth{err: services.ErrPasswordMismatch}
	h := NewUserHandler(auth, testLogger())
	c, w := newTestContext(http.MethodPut, "/api/users/me/password", body, userCtx(uuid.New()))

	h.ChangePassword(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "PASSWORD_MISMATCH", decodeError(t, w).Code)
	assert.Equal(t, []string{"old-pass", "new-pass", "new-pasz"}, auth.passwords)

	h = NewUserHandler(&stubAuth{err: services.ErrInvalidCredentials}, testLogger())
	c, w = newTestContext(http.MethodPut, "/api/users/me/password", body, userCtx(uuid.New()))
	h.ChangePassword(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUserHandler_WithdrawAndRestore(t *testing.T) {
	auth := &stubAuth{}
	h := NewUserHandler(auth, testLogger())
	me := uuid.New()

	c, w := newTestContext(http.MethodDelete, "/api/users/me", map[string]string{"password": "pass1234"}, userCtx(me))
	h.Withdraw(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, me, auth.withdrawnBy)

	c, w = newTestContext(http.MethodDelete, "/api/users/me", nil, userCtx(me))
	h.Withdraw(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newTestContext(http.MethodPost, "/api/users/me/restore", map[string]string{"username": "guest1", "password": "pass1234"}, nil)
	h.Restore(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "guest1", auth.restoredUser)

	h = NewUserHandler(&stubAuth{err: services.ErrInvalidCredentials}, testLogger())
	c, w = newTestContext(http.MethodPost, "/api/users/me/restore", map[string]string{"username": "guest1", "password": "pass1234"}, nil)
	h.Restore(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
