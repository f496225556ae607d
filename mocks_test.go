package accounts_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"

	accounts "github.com/eanavi/go-accounts"
	"github.com/eanavi/go-accounts/store"
)

// MockUserStore implements accounts.UserStore for testing
type MockUserStore struct {
	mock.Mock
}

var _ accounts.UserStore = (*MockUserStore)(nil)

func (m *MockUserStore) Create(ctx context.Context, user *accounts.User) (*accounts.User, error) {
	args := m.Called(ctx, user)
	return userArg(args.Get(0)), args.Error(1)
}

func (m *MockUserStore) FindByID(ctx context.Context, id string) (*accounts.User, error) {
	args := m.Called(ctx, id)
	return userArg(args.Get(0)), args.Error(1)
}

func (m *MockUserStore) FindByIDWithPassword(ctx context.Context, id string) (*accounts.User, error) {
	args := m.Called(ctx, id)
	return userArg(args.Get(0)), args.Error(1)
}

func (m *MockUserStore) FindActiveByEmail(ctx context.Context, email string, withCredentials bool) (*accounts.User, error) {
	args := m.Called(ctx, email, withCredentials)
	return userArg(args.Get(0)), args.Error(1)
}

func (m *MockUserStore) FindByResetToken(ctx context.Context, tokenHash string) (*accounts.User, error) {
	args := m.Called(ctx, tokenHash)
	return userArg(args.Get(0)), args.Error(1)
}

func (m *MockUserStore) List(ctx context.Context, q store.ListQuery) ([]*accounts.User, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*accounts.User), args.Error(1)
}

func (m *MockUserStore) UpdateFields(ctx context.Context, id string, fields bson.M) (*accounts.User, error) {
	args := m.Called(ctx, id, fields)
	return userArg(args.Get(0)), args.Error(1)
}

func (m *MockUserStore) SetPassword(ctx context.Context, id, plaintext string) (*accounts.User, error) {
	args := m.Called(ctx, id, plaintext)
	return userArg(args.Get(0)), args.Error(1)
}

func (m *MockUserStore) SaveResetToken(ctx context.Context, id, tokenHash string, expires time.Time) error {
	args := m.Called(ctx, id, tokenHash, expires)
	return args.Error(0)
}

func (m *MockUserStore) ClearResetToken(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserStore) Deactivate(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserStore) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func userArg(v any) *accounts.User {
	if v == nil {
		return nil
	}
	return v.(*accounts.User)
}

// MockMailer implements accounts.Mailer for testing
type MockMailer struct {
	mock.Mock
}

var _ accounts.Mailer = (*MockMailer)(nil)

func (m *MockMailer) Send(ctx context.Context, to, subject, body string) error {
	args := m.Called(ctx, to, subject, body)
	return args.Error(0)
}
