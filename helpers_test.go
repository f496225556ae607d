package accounts_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	accounts "github.com/eanavi/go-accounts"
)

// testLogger satisfies accounts.Logger without producing output.
type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

// testEnv wires the full route surface over mocked storage and mail so
// handlers, middleware and the error handler are exercised together.
type testEnv struct {
	app    *fiber.App
	users  *MockUserStore
	mailer *MockMailer
	tokens *accounts.TokenService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &accounts.Config{
		Env:                "production",
		JWTSecret:          "test-signing-secret",
		JWTExpiresIn:       time.Hour,
		JWTCookieExpiresIn: 90,
	}

	users := new(MockUserStore)
	mailer := new(MockMailer)
	tokens := accounts.NewTokenService([]byte(cfg.JWTSecret), cfg.JWTExpiresIn, "accounts-test", testLogger{})

	auth := accounts.NewAuthController(cfg, users, tokens, mailer).WithLogger(testLogger{})
	usersCtrl := accounts.NewUsersController(users).WithLogger(testLogger{})
	gate := accounts.NewSessionGate(tokens, users).WithLogger(testLogger{})

	app := fiber.New(fiber.Config{
		ErrorHandler: accounts.NewErrorHandler(cfg, testLogger{}),
	})
	accounts.RegisterRoutes(app, auth, usersCtrl, gate)
	app.Use(accounts.NotFoundHandler)

	return &testEnv{
		app:    app,
		users:  users,
		mailer: mailer,
		tokens: tokens,
	}
}

// login issues a session token for the user and arranges for the gate
// to resolve it.
func (e *testEnv) login(t *testing.T, user *accounts.User) string {
	t.Helper()

	token, err := e.tokens.IssueSession(user.ID.Hex())
	require.NoError(t, err)

	e.users.On("FindByID", anyCtx, user.ID.Hex()).Return(user, nil)
	return token
}

// fiber hands handlers a fasthttp-backed context; match it loosely.
var anyCtx = mock.Anything

const fiberAuthHeader = fiber.HeaderAuthorization

func testUser(role accounts.UserRole) *accounts.User {
	return &accounts.User{
		ID:        primitive.NewObjectID(),
		Name:      "Ada Lovelace",
		Email:     "ada@example.io",
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
}

func jsonRequest(t *testing.T, method, target string, payload any) *http.Request {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}

	req := httptest.NewRequest(method, target, &body)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return req
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request) *http.Response {
	t.Helper()

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	body := map[string]any{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func bodyData(t *testing.T, body map[string]any, key string) map[string]any {
	t.Helper()

	data, ok := body["data"].(map[string]any)
	require.True(t, ok, "response has no data envelope")

	nested, ok := data[key].(map[string]any)
	require.True(t, ok, "data envelope has no %q", key)
	return nested
}

func responseCookie(resp *http.Response, name string) *http.Cookie {
	for _, cookie := range resp.Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}
