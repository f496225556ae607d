package accounts_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	accounts "github.com/eanavi/go-accounts"
	"github.com/eanavi/go-accounts/store"
)

func TestMe(t *testing.T) {
	env := newTestEnv(t)
	user := testUser(accounts.RoleUser)
	token := env.login(t, user)

	req := jsonRequest(t, http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set(fiberAuthHeader, "Bearer "+token)

	resp := doRequest(t, env.app, req)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	profile := bodyData(t, decodeBody(t, resp), "user")
	assert.Equal(t, user.Name, profile["name"])
	assert.Equal(t, user.Email, profile["email"])
	assert.NotContains(t, profile, "password")
}

func TestUpdateMe(t *testing.T) {
	t.Run("updates name and email", func(t *testing.T) {
		env := newTestEnv(t)
		user := testUser(accounts.RoleUser)
		token := env.login(t, user)

		updated := *user
		updated.Name = "Ada King"

		env.users.On("UpdateFields", anyCtx, user.ID.Hex(), bson.M{
			"name":  "Ada King",
			"email": "countess@example.io",
		}).Return(&updated, nil)

		req := jsonRequest(t, http.MethodPatch, "/api/v1/users/updateMe", map[string]string{
			"name":  "Ada King",
			"email": "countess@example.io",
		})
		req.Header.Set(fiberAuthHeader, "Bearer "+token)

		resp := doRequest(t, env.app, req)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		profile := bodyData(t, decodeBody(t, resp), "user")
		assert.Equal(t, "Ada King", profile["name"])

		env.users.AssertExpectations(t)
	})

	t.Run("rejects password material", func(t *testing.T) {
		env := newTestEnv(t)
		user := testUser(accounts.RoleUser)
		token := env.login(t, user)

		req := jsonRequest(t, http.MethodPatch, "/api/v1/users/updateMe", map[string]string{
			"name":     "Ada King",
			"password": "newpass123",
		})
		req.Header.Set(fiberAuthHeader, "Bearer "+token)

		resp := doRequest(t, env.app, req)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, "This route is not for password updates. Please use /updateMyPassword.", body["message"])

		env.users.AssertNotCalled(t, "UpdateFields", anyCtx, mock.Anything, mock.Anything)
	})

	t.Run("silently drops role escalation attempts", func(t *testing.T) {
		env := newTestEnv(t)
		user := testUser(accounts.RoleUser)
		token := env.login(t, user)

		env.users.On("UpdateFields", anyCtx, user.ID.Hex(), bson.M{"name": "Ada King"}).
			Return(user, nil)

		req := jsonRequest(t, http.MethodPatch, "/api/v1/users/updateMe", map[string]any{
			"name":   "Ada King",
			"role":   "admin",
			"active": true,
		})
		req.Header.Set(fiberAuthHeader, "Bearer "+token)

		resp := doRequest(t, env.app, req)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		env.users.AssertExpectations(t)
	})
}

func TestDeleteMe(t *testing.T) {
	env := newTestEnv(t)
	user := testUser(accounts.RoleUser)
	token := env.login(t, user)

	env.users.On("Deactivate", anyCtx, user.ID.Hex()).Return(nil)

	req := jsonRequest(t, http.MethodDelete, "/api/v1/users/deleteMe", nil)
	req.Header.Set(fiberAuthHeader, "Bearer "+token)

	resp := doRequest(t, env.app, req)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	env.users.AssertCalled(t, "Deactivate", anyCtx, user.ID.Hex())
}

func TestAdminList(t *testing.T) {
	env := newTestEnv(t)
	admin := testUser(accounts.RoleAdmin)
	token := env.login(t, admin)

	other := testUser(accounts.RoleUser)
	other.Password = "$2a$12$hash"

	env.users.On("List", anyCtx, mock.MatchedBy(func(q store.ListQuery) bool {
		return q.Filter["role"] == "user" && q.Limit == 2
	})).Return([]*accounts.User{other, testUser(accounts.RoleUser)}, nil)

	req := jsonRequest(t, http.MethodGet, "/api/v1/users/?role=user&limit=2", nil)
	req.Header.Set(fiberAuthHeader, "Bearer "+token)

	resp := doRequest(t, env.app, req)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, float64(2), body["results"])

	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	users, ok := data["users"].([]any)
	require.True(t, ok)
	require.Len(t, users, 2)

	first, ok := users[0].(map[string]any)
	require.True(t, ok)
	assert.NotContains(t, first, "password")
}

func TestAdminGet(t *testing.T) {
	t.Run("returns the record", func(t *testing.T) {
		env := newTestEnv(t)
		admin := testUser(accounts.RoleAdmin)
		token := env.login(t, admin)

		other := testUser(accounts.RoleUser)
		env.users.On("FindByID", anyCtx, other.ID.Hex()).Return(other, nil)

		req := jsonRequest(t, http.MethodGet, "/api/v1/users/"+other.ID.Hex(), nil)
		req.Header.Set(fiberAuthHeader, "Bearer "+token)

		resp := doRequest(t, env.app, req)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		profile := bodyData(t, decodeBody(t, resp), "user")
		assert.Equal(t, other.Email, profile["email"])
	})

	t.Run("missing record is reported", func(t *testing.T) {
		env := newTestEnv(t)
		admin := testUser(accounts.RoleAdmin)
		token := env.login(t, admin)

		env.users.On("FindByID", anyCtx, "68b1f2c4a1b2c3d4e5f60718").Return(nil, store.NewRecordNotFound())

		req := jsonRequest(t, http.MethodGet, "/api/v1/users/68b1f2c4a1b2c3d4e5f60718", nil)
		req.Header.Set(fiberAuthHeader, "Bearer "+token)

		resp := doRequest(t, env.app, req)
		require.Equal(t, http.StatusNotFound, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, "No document found with that ID", body["message"])
	})
}

func TestAdminCreate(t *testing.T) {
	env := newTestEnv(t)
	admin := testUser(accounts.RoleAdmin)
	token := env.login(t, admin)

	req := jsonRequest(t, http.MethodPost, "/api/v1/users/", map[string]string{
		"name": "Someone",
	})
	req.Header.Set(fiberAuthHeader, "Bearer "+token)

	resp := doRequest(t, env.app, req)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "This route is not defined! Please use /signup instead", body["message"])

	env.users.AssertNotCalled(t, "Create", anyCtx, mock.Anything)
}

func TestAdminUpdate(t *testing.T) {
	t.Run("patches the allowed field set", func(t *testing.T) {
		env := newTestEnv(t)
		admin := testUser(accounts.RoleAdmin)
		token := env.login(t, admin)

		other := testUser(accounts.RoleUser)
		env.users.On("UpdateFields", anyCtx, other.ID.Hex(), bson.M{
			"role":   "admin",
			"active": false,
		}).Return(other, nil)

		req := jsonRequest(t, http.MethodPatch, "/api/v1/users/"+other.ID.Hex(), map[string]any{
			"role":   "admin",
			"active": false,
		})
		req.Header.Set(fiberAuthHeader, "Bearer "+token)

		resp := doRequest(t, env.app, req)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		env.users.AssertExpectations(t)
	})

	t.Run("rejects password material even for admins", func(t *testing.T) {
		env := newTestEnv(t)
		admin := testUser(accounts.RoleAdmin)
		token := env.login(t, admin)

		other := testUser(accounts.RoleUser)
		req := jsonRequest(t, http.MethodPatch, "/api/v1/users/"+other.ID.Hex(), map[string]string{
			"password": "bypassed",
		})
		req.Header.Set(fiberAuthHeader, "Bearer "+token)

		resp := doRequest(t, env.app, req)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		env.users.AssertNotCalled(t, "UpdateFields", anyCtx, mock.Anything, mock.Anything)
	})
}

func TestAdminDelete(t *testing.T) {
	env := newTestEnv(t)
	admin := testUser(accounts.RoleAdmin)
	token := env.login(t, admin)

	other := testUser(accounts.RoleUser)
	env.users.On("Delete", anyCtx, other.ID.Hex()).Return(nil)

	req := jsonRequest(t, http.MethodDelete, "/api/v1/users/"+other.ID.Hex(), nil)
	req.Header.Set(fiberAuthHeader, "Bearer "+token)

	resp := doRequest(t, env.app, req)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	env.users.AssertCalled(t, "Delete", anyCtx, other.ID.Hex())
}
