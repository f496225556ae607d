package accounts

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/eanavi/go-accounts/store"
)

type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// UserStore is the data access surface the HTTP layer depends on. The
// mongo-backed implementation lives in repo_users.go; tests substitute
// a mock.
type UserStore interface {
	Create(ctx context.Context, user *User) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	FindByIDWithPassword(ctx context.Context, id string) (*User, error)
	FindActiveByEmail(ctx context.Context, email string, withCredentials bool) (*User, error)
	FindByResetToken(ctx context.Context, tokenHash string) (*User, error)
	List(ctx context.Context, q store.ListQuery) ([]*User, error)
	UpdateFields(ctx context.Context, id string, fields bson.M) (*User, error)
	SetPassword(ctx context.Context, id, plaintext string) (*User, error)
	SaveResetToken(ctx context.Context, id, tokenHash string, expires time.Time) error
	ClearResetToken(ctx context.Context, id string) error
	Deactivate(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// Mailer delivers transactional mail. The SMTP implementation is in
// mailer.go.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type defLogger struct{}

func (d defLogger) Error(msg string, args ...any) {
	fmt.Println(append([]any{"[ERR] ACCOUNTS", msg}, args...)...)
}

func (d defLogger) Warn(msg string, args ...any) {
	fmt.Println(append([]any{"[WRN] ACCOUNTS", msg}, args...)...)
}

func (d defLogger) Info(msg string, args ...any) {
	fmt.Println(append([]any{"[INF] ACCOUNTS", msg}, args...)...)
}

func (d defLogger) Debug(msg string, args ...any) {
	fmt.Println(append([]any{"[DBG] ACCOUNTS", msg}, args...)...)
}
