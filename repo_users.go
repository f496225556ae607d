package accounts

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/eanavi/go-accounts/store"
)

// UsersCollection is the collection backing the users repository.
const UsersCollection = "users"

// activeOnly is merged into every read so soft-deleted accounts stay
// invisible unless a query explicitly targets them.
var activeOnly = bson.M{"active": bson.M{"$ne": false}}

// hiddenFields is the default projection: credential material must be
// requested explicitly.
var hiddenFields = bson.M{
	"password":               0,
	"password_reset_token":   0,
	"password_reset_expires": 0,
}

// Users is the mongo-backed UserStore. Cross-cutting rules live here,
// inline at the call site: creates always hash, reads always exclude
// inactive accounts and hide credentials, password mutations always
// bump password_changed_at and clear any pending reset token.
type Users struct {
	repo   *store.Repository[*User]
	logger Logger
}

var _ UserStore = (*Users)(nil)

func NewUsersRepository(db *mongo.Database) *Users {
	repo := store.NewRepository(db, UsersCollection, store.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) primitive.ObjectID {
			if u == nil {
				return primitive.NilObjectID
			}
			return u.ID
		},
		SetID: func(u *User, id primitive.ObjectID) {
			if u != nil {
				u.ID = id
			}
		},
	})

	return &Users{
		repo:   repo,
		logger: defLogger{},
	}
}

func (r *Users) WithLogger(logger Logger) *Users {
	r.logger = logger
	return r
}

// EnsureIndexes creates the unique email index; email uniqueness spans
// active and inactive records.
func (r *Users) EnsureIndexes(ctx context.Context) error {
	_, err := r.repo.Collection().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// Create hashes the password, folds the email and persists the record.
// The returned record never carries the hash, even though the field is
// normally hidden anyway.
func (r *Users) Create(ctx context.Context, user *User) (*User, error) {
	hash, err := HashPassword(user.Password)
	if err != nil {
		return nil, err
	}

	record := *user
	record.Password = hash
	record.Email = NormalizeEmail(user.Email)
	record.CreatedAt = time.Now()
	if record.Role == "" {
		record.Role = RoleUser
	}

	created, err := r.repo.Create(ctx, &record)
	if err != nil {
		return nil, err
	}

	return created.Sanitize(), nil
}

func (r *Users) FindByID(ctx context.Context, id string) (*User, error) {
	return r.repo.FindByID(ctx, id, activeOnly, options.FindOne().SetProjection(hiddenFields))
}

// FindByIDWithPassword fetches the record with its password hash for
// current-password verification.
func (r *Users) FindByIDWithPassword(ctx context.Context, id string) (*User, error) {
	return r.repo.FindByID(ctx, id, activeOnly)
}

// FindActiveByEmail looks up an active user by folded email. With
// credentials requested the normally-hidden password and reset fields
// come back too, for login comparison.
func (r *Users) FindActiveByEmail(ctx context.Context, email string, withCredentials bool) (*User, error) {
	filter := bson.M{"email": NormalizeEmail(email)}
	for k, v := range activeOnly {
		filter[k] = v
	}

	if withCredentials {
		return r.repo.FindOne(ctx, filter)
	}
	return r.repo.FindOne(ctx, filter, options.FindOne().SetProjection(hiddenFields))
}

// FindByResetToken matches a stored reset-token hash that has not
// expired yet.
func (r *Users) FindByResetToken(ctx context.Context, tokenHash string) (*User, error) {
	filter := bson.M{
		"password_reset_token":   tokenHash,
		"password_reset_expires": bson.M{"$gt": time.Now()},
	}
	for k, v := range activeOnly {
		filter[k] = v
	}

	return r.repo.FindOne(ctx, filter)
}

// List runs a composed list query, excluding inactive accounts unless
// the query explicitly targets the active flag.
func (r *Users) List(ctx context.Context, q store.ListQuery) ([]*User, error) {
	if _, ok := q.Filter["active"]; !ok {
		q.Filter["active"] = activeOnly["active"]
	}
	if !isInclusionProjection(q.Projection) {
		for field := range hiddenFields {
			if _, ok := q.Projection[field]; !ok {
				q.Projection[field] = 0
			}
		}
	}

	return r.repo.Find(ctx, q)
}

// UpdateFields applies an already-filtered field patch and returns the
// updated record. Email writes are folded like creates.
func (r *Users) UpdateFields(ctx context.Context, id string, fields bson.M) (*User, error) {
	if email, ok := fields["email"].(string); ok {
		fields["email"] = NormalizeEmail(email)
	}

	user, err := r.repo.UpdateByID(ctx, id, fields, activeOnly)
	if err != nil {
		return nil, err
	}
	return user.Sanitize(), nil
}

// SetPassword rehashes, clears any pending reset token and bumps
// password_changed_at. The timestamp is backdated one second so a
// session token issued in the same instant still reads as newer.
func (r *Users) SetPassword(ctx context.Context, id, plaintext string) (*User, error) {
	hash, err := HashPassword(plaintext)
	if err != nil {
		return nil, err
	}

	changedAt := time.Now().Add(-time.Second)
	user, err := r.repo.PatchByID(ctx, id,
		bson.M{
			"password":            hash,
			"password_changed_at": changedAt,
		},
		bson.M{
			"password_reset_token":   "",
			"password_reset_expires": "",
		},
		activeOnly,
	)
	if err != nil {
		return nil, err
	}

	return user.Sanitize(), nil
}

// SaveResetToken persists the reset hash and expiry as a two-field
// patch, bypassing full-document validation.
func (r *Users) SaveResetToken(ctx context.Context, id, tokenHash string, expires time.Time) error {
	_, err := r.repo.PatchByID(ctx, id,
		bson.M{
			"password_reset_token":   tokenHash,
			"password_reset_expires": expires,
		},
		nil,
		activeOnly,
	)
	return err
}

// ClearResetToken rolls both reset fields back to undefined.
func (r *Users) ClearResetToken(ctx context.Context, id string) error {
	_, err := r.repo.PatchByID(ctx, id,
		nil,
		bson.M{
			"password_reset_token":   "",
			"password_reset_expires": "",
		},
		activeOnly,
	)
	return err
}

// Deactivate soft-deletes the account; the record stays in storage and
// an admin can reinstate it.
func (r *Users) Deactivate(ctx context.Context, id string) error {
	_, err := r.repo.PatchByID(ctx, id, bson.M{"active": false}, nil, activeOnly)
	return err
}

// Delete is the admin hard-delete path.
func (r *Users) Delete(ctx context.Context, id string) error {
	return r.repo.DeleteByID(ctx, id, activeOnly)
}

// isInclusionProjection reports whether the projection already selects
// specific fields; mongo rejects mixing inclusion and exclusion, so the
// hidden-field exclusions only apply to exclusion-style projections.
func isInclusionProjection(projection bson.M) bool {
	for _, v := range projection {
		if n, ok := v.(int); ok && n == 1 {
			return true
		}
	}
	return false
}
