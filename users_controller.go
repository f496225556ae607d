package accounts

import (
	"encoding/json"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/eanavi/go-accounts/store"
)

// profileFields is what self-service updates may touch; adminFields is
// the superset the admin patch route accepts.
var (
	profileFields = []string{"name", "email"}
	adminFields   = []string{"name", "email", "role", "active"}
	passwordKeys  = []string{"password", "passwordConfirm"}
)

// UsersController serves profile self-service and the admin CRUD
// routes, generically over the user store and the list-query builder.
type UsersController struct {
	Logger Logger
	Users  UserStore
}

func NewUsersController(users UserStore) *UsersController {
	return &UsersController{
		Logger: defLogger{},
		Users:  users,
	}
}

func (u *UsersController) WithLogger(logger Logger) *UsersController {
	u.Logger = logger
	return u
}

// Me returns the authenticated user's own profile.
func (u *UsersController) Me(c *fiber.Ctx) error {
	user, ok := CurrentUser(c)
	if !ok {
		return ErrNotLoggedIn
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "success",
		"data":   fiber.Map{"user": user.Sanitize()},
	})
}

// UpdateMePayload constrains the self-service profile shape.
type UpdateMePayload struct {
	Name  string `json:"name,omitempty" form:"name"`
	Email string `json:"email,omitempty" form:"email"`
}

// Validate will run validation rules
func (p UpdateMePayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, is.Email),
	)
}

// UpdateMe updates name and email only; password material on this
// route is rejected, and role or active flags are silently ignored by
// the field filter.
func (u *UsersController) UpdateMe(c *fiber.Ctx) error {
	user, ok := CurrentUser(c)
	if !ok {
		return ErrNotLoggedIn
	}

	fields, err := filteredBody(c, profileFields)
	if err != nil {
		return err
	}

	payload := new(UpdateMePayload)
	if err := c.BodyParser(payload); err != nil {
		return badRequestBody(err)
	}
	if err := payload.Validate(); err != nil {
		return validationFailed(err)
	}

	updated, err := u.Users.UpdateFields(c.Context(), user.ID.Hex(), fields)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "success",
		"data":   fiber.Map{"user": updated},
	})
}

// DeleteMe soft-deletes the account: it is excluded from reads and
// fails login, but the record stays recoverable by an admin.
func (u *UsersController) DeleteMe(c *fiber.Ctx) error {
	user, ok := CurrentUser(c)
	if !ok {
		return ErrNotLoggedIn
	}

	if err := u.Users.Deactivate(c.Context(), user.ID.Hex()); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// List serves the admin listing with filter/sort/fields/pagination
// from the query string.
func (u *UsersController) List(c *fiber.Ctx) error {
	q := store.BuildListQuery(c.Queries())

	users, err := u.Users.List(c.Context(), q)
	if err != nil {
		u.Logger.Error("list users", "error", err)
		return err
	}

	sanitized := make([]*User, len(users))
	for i, user := range users {
		sanitized[i] = user.Sanitize()
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":  "success",
		"results": len(sanitized),
		"data":    fiber.Map{"users": sanitized},
	})
}

// Get serves a single record by id.
func (u *UsersController) Get(c *fiber.Ctx) error {
	user, err := u.Users.FindByID(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "success",
		"data":   fiber.Map{"user": user.Sanitize()},
	})
}

// Create is intentionally unimplemented; accounts are created through
// signup so the password always passes the registration validation.
func (u *UsersController) Create(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"status":  "error",
		"message": "This route is not defined! Please use /signup instead",
	})
}

// Update is the admin patch over the allowed field set. Password
// material is rejected here too: an admin write would bypass hashing.
func (u *UsersController) Update(c *fiber.Ctx) error {
	fields, err := filteredBody(c, adminFields)
	if err != nil {
		return err
	}

	updated, err := u.Users.UpdateFields(c.Context(), c.Params("id"), fields)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "success",
		"data":   fiber.Map{"user": updated},
	})
}

// Delete is the admin hard-delete.
func (u *UsersController) Delete(c *fiber.Ctx) error {
	if err := u.Users.Delete(c.Context(), c.Params("id")); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// filteredBody decodes the raw body and keeps only the allowed keys,
// rejecting any payload that carries password fields.
func filteredBody(c *fiber.Ctx, allowed []string) (bson.M, error) {
	raw := map[string]any{}
	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), &raw); err != nil {
			return nil, badRequestBody(err)
		}
	}

	for _, key := range passwordKeys {
		if _, ok := raw[key]; ok {
			return nil, ErrPasswordRouteMisuse
		}
	}

	fields := bson.M{}
	for _, key := range allowed {
		if value, ok := raw[key]; ok {
			fields[key] = value
		}
	}

	return fields, nil
}
