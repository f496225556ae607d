package accounts

import (
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
)

// logoutCookieTTL is the near-immediate expiry on the sentinel cookie;
// tokens stay cryptographically valid until natural expiry.
const logoutCookieTTL = 10 * time.Second

// AuthController serves signup, login, logout and the password flows.
type AuthController struct {
	Logger Logger
	Users  UserStore
	Tokens *TokenService
	Mailer Mailer

	cookieDuration time.Duration
	secureCookies  bool
}

func NewAuthController(cfg *Config, users UserStore, tokens *TokenService, mailer Mailer) *AuthController {
	return &AuthController{
		Logger:         defLogger{},
		Users:          users,
		Tokens:         tokens,
		Mailer:         mailer,
		cookieDuration: cfg.CookieDuration(),
		secureCookies:  !cfg.IsDevelopment(),
	}
}

func (a *AuthController) WithLogger(logger Logger) *AuthController {
	a.Logger = logger
	return a
}

// SignupPayload is the registration body
type SignupPayload struct {
	Name            string `json:"name" form:"name"`
	Email           string `json:"email" form:"email"`
	Password        string `json:"password" form:"password"`
	PasswordConfirm string `json:"passwordConfirm" form:"passwordConfirm"`
	Role            string `json:"role,omitempty" form:"role"`
}

// Validate will run validation rules
func (p SignupPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required),
		validation.Field(&p.Email, validation.Required, is.Email),
		validation.Field(&p.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(
			&p.PasswordConfirm,
			validation.Required,
			validation.By(ValidateStringEquals(p.Password)),
		),
		validation.Field(&p.Role, validation.In(RoleUser, RoleAdmin)),
	)
}

func (a *AuthController) Signup(c *fiber.Ctx) error {
	payload := new(SignupPayload)
	if err := c.BodyParser(payload); err != nil {
		return badRequestBody(err)
	}
	if err := payload.Validate(); err != nil {
		return validationFailed(err)
	}

	user, err := a.Users.Create(c.Context(), &User{
		Name:     payload.Name,
		Email:    payload.Email,
		Password: payload.Password,
		Role:     payload.Role,
	})
	if err != nil {
		a.Logger.Error("signup create user", "error", err)
		return err
	}

	return a.sendToken(c, user, fiber.StatusCreated)
}

// LoginPayload is the login body
type LoginPayload struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (a *AuthController) Login(c *fiber.Ctx) error {
	payload := new(LoginPayload)
	if err := c.BodyParser(payload); err != nil {
		return badRequestBody(err)
	}

	if payload.Email == "" || payload.Password == "" {
		return ErrMissingCredentials
	}

	// One generic failure for unknown email, wrong password and
	// deactivated accounts: no enumeration signal.
	user, err := a.Users.FindActiveByEmail(c.Context(), payload.Email, true)
	if err != nil {
		a.Logger.Debug("login lookup failed", "error", err)
		return ErrInvalidCredentials
	}
	if err := ComparePasswordAndHash(payload.Password, user.Password); err != nil {
		return ErrInvalidCredentials
	}

	return a.sendToken(c, user, fiber.StatusOK)
}

// Logout overwrites the session cookie with a sentinel value; there is
// no server-side revocation for stateless tokens.
func (a *AuthController) Logout(c *fiber.Ctx) error {
	a.setSessionCookie(c, "loggedout", logoutCookieTTL)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "success"})
}

// ForgotPasswordPayload carries the account email
type ForgotPasswordPayload struct {
	Email string `json:"email" form:"email"`
}

// Validate will run validation rules
func (p ForgotPasswordPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.Required, is.Email),
	)
}

func (a *AuthController) ForgotPassword(c *fiber.Ctx) error {
	payload := new(ForgotPasswordPayload)
	if err := c.BodyParser(payload); err != nil {
		return badRequestBody(err)
	}
	if err := payload.Validate(); err != nil {
		return validationFailed(err)
	}

	user, err := a.Users.FindActiveByEmail(c.Context(), payload.Email, false)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return goerrors.New("There is no user with that email address.", goerrors.CategoryNotFound).
				WithCode(goerrors.CodeNotFound)
		}
		return err
	}

	plaintext, hash, expires, err := a.Tokens.IssueResetToken()
	if err != nil {
		return err
	}

	userID := user.ID.Hex()
	if err := a.Users.SaveResetToken(c.Context(), userID, hash, expires); err != nil {
		return err
	}

	resetURL := fmt.Sprintf("%s://%s/api/v1/users/resetPassword/%s", c.Protocol(), c.Hostname(), plaintext)

	if err := a.Mailer.Send(c.Context(), user.Email, resetEmailSubject, resetEmailBody(resetURL)); err != nil {
		a.Logger.Error("reset email dispatch failed, rolling back token", "error", err)
		if clearErr := a.Users.ClearResetToken(c.Context(), userID); clearErr != nil {
			a.Logger.Error("reset token rollback failed", "error", clearErr)
		}
		return ErrEmailDispatch
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":  "success",
		"message": "Token sent to email!",
	})
}

// ResetPasswordPayload is the new-password body
type ResetPasswordPayload struct {
	Password        string `json:"password" form:"password"`
	PasswordConfirm string `json:"passwordConfirm" form:"passwordConfirm"`
}

// Validate will run validation rules
func (p ResetPasswordPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(
			&p.PasswordConfirm,
			validation.Required,
			validation.By(ValidateStringEquals(p.Password)),
		),
	)
}

func (a *AuthController) ResetPassword(c *fiber.Ctx) error {
	payload := new(ResetPasswordPayload)
	if err := c.BodyParser(payload); err != nil {
		return badRequestBody(err)
	}
	if err := payload.Validate(); err != nil {
		return validationFailed(err)
	}

	hash := a.Tokens.HashResetToken(c.Params("token"))

	user, err := a.Users.FindByResetToken(c.Context(), hash)
	if err != nil {
		return ErrResetTokenInvalid
	}

	updated, err := a.Users.SetPassword(c.Context(), user.ID.Hex(), payload.Password)
	if err != nil {
		return err
	}

	// Auto-login after a successful reset.
	return a.sendToken(c, updated, fiber.StatusOK)
}

// UpdatePasswordPayload is the authenticated password-change body
type UpdatePasswordPayload struct {
	PasswordCurrent string `json:"passwordCurrent" form:"passwordCurrent"`
	Password        string `json:"password" form:"password"`
	PasswordConfirm string `json:"passwordConfirm" form:"passwordConfirm"`
}

// Validate will run validation rules
func (p UpdatePasswordPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.PasswordCurrent, validation.Required),
		validation.Field(&p.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(
			&p.PasswordConfirm,
			validation.Required,
			validation.By(ValidateStringEquals(p.Password)),
		),
	)
}

func (a *AuthController) UpdatePassword(c *fiber.Ctx) error {
	current, ok := CurrentUser(c)
	if !ok {
		return ErrNotLoggedIn
	}

	payload := new(UpdatePasswordPayload)
	if err := c.BodyParser(payload); err != nil {
		return badRequestBody(err)
	}
	if err := payload.Validate(); err != nil {
		return validationFailed(err)
	}

	userID := current.ID.Hex()

	user, err := a.Users.FindByIDWithPassword(c.Context(), userID)
	if err != nil {
		return ErrWrongCurrentPassword
	}
	if err := ComparePasswordAndHash(payload.PasswordCurrent, user.Password); err != nil {
		return ErrWrongCurrentPassword
	}

	updated, err := a.Users.SetPassword(c.Context(), userID, payload.Password)
	if err != nil {
		return err
	}

	return a.sendToken(c, updated, fiber.StatusOK)
}

// sendToken issues a session token, mirrors it into the jwt cookie and
// writes the token + sanitized user envelope.
func (a *AuthController) sendToken(c *fiber.Ctx, user *User, status int) error {
	token, err := a.Tokens.IssueSession(user.ID.Hex())
	if err != nil {
		a.Logger.Error("failed to issue session token", "error", err)
		return err
	}

	a.setSessionCookie(c, token, a.cookieDuration)

	return c.Status(status).JSON(fiber.Map{
		"status": "success",
		"token":  token,
		"data":   fiber.Map{"user": user.Sanitize()},
	})
}

func (a *AuthController) setSessionCookie(c *fiber.Ctx, value string, duration time.Duration) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   a.secureCookies,
		SameSite: "Lax",
	})
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

func badRequestBody(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryBadInput, "Failed to parse request body").
		WithCode(goerrors.CodeBadRequest)
}

// validationFailed pre-empts the handler with the schema layer's joined
// message list.
func validationFailed(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryValidation, "Invalid input data. "+err.Error()).
		WithCode(goerrors.CodeBadRequest)
}
