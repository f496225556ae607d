package accounts

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes attached to structured errors so clients can branch on
// failure kind without parsing messages.
const (
	TextCodeInvalidCreds    = "INVALID_CREDENTIALS"
	TextCodeSessionNotFound = "SESSION_NOT_FOUND"
	TextCodeTokenExpired    = "TOKEN_EXPIRED"
	TextCodeTokenMalformed  = "TOKEN_MALFORMED"
	TextCodeStaleToken      = "STALE_TOKEN"
	TextCodeEmptyPassword   = "EMPTY_PASSWORD"
)

// ErrMissingCredentials is returned when a login request omits email or password.
var ErrMissingCredentials = goerrors.New("Please provide email and password!", goerrors.CategoryBadInput).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidCredentials covers unknown email, wrong password and
// deactivated accounts with a single message so responses carry no
// user-enumeration signal.
var ErrInvalidCredentials = goerrors.New("Incorrect email or password", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeInvalidCreds)

// ErrMismatchedHashAndPassword is the bcrypt comparison failure.
var ErrMismatchedHashAndPassword = goerrors.New("the credentials provided are invalid", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeInvalidCreds)

// ErrNoEmptyString rejects hashing an empty password.
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest).
	WithTextCode(TextCodeEmptyPassword)

// ErrNotLoggedIn is returned by the authentication gate when no token
// is present on the request.
var ErrNotLoggedIn = goerrors.New("You are not logged in! Please log in to get access.", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeSessionNotFound)

// ErrTokenInvalid is returned when a presented session token fails
// verification, whether expired or tampered.
var ErrTokenInvalid = goerrors.New("Invalid token or token expired", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeTokenMalformed)

// ErrTokenUserGone is returned when a valid token references a user
// that no longer exists or has been deactivated.
var ErrTokenUserGone = goerrors.New("The user belonging to this token does no longer exist.", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized)

// ErrStaleToken is returned when the password changed after the token
// was issued.
var ErrStaleToken = goerrors.New("User recently changed password! Please log in again.", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeStaleToken)

// ErrForbiddenRole is the role-restriction failure.
var ErrForbiddenRole = goerrors.New("You do not have permission to perform this action", goerrors.CategoryAuthz).
	WithCode(goerrors.CodeForbidden)

// ErrResetTokenInvalid covers both expired and tampered reset tokens.
var ErrResetTokenInvalid = goerrors.New("Token is invalid or has expired", goerrors.CategoryBadInput).
	WithCode(goerrors.CodeBadRequest).
	WithTextCode(TextCodeTokenExpired)

// ErrWrongCurrentPassword is the change-password precondition failure.
var ErrWrongCurrentPassword = goerrors.New("Your current password is wrong.", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeInvalidCreds)

// ErrPasswordRouteMisuse rejects password material on profile routes.
var ErrPasswordRouteMisuse = goerrors.New("This route is not for password updates. Please use /updateMyPassword.", goerrors.CategoryBadInput).
	WithCode(goerrors.CodeBadRequest)

// ErrEmailDispatch is surfaced when the reset email could not be sent.
var ErrEmailDispatch = goerrors.New("There was an error sending the email. Try again later!", goerrors.CategoryInternal).
	WithCode(goerrors.CodeInternal)

// IsTokenExpiredError checks for expired tokens, including errors from
// the jwt library that only carry the condition in their message.
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode == TextCodeTokenExpired {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError checks for tampered or undecodable tokens.
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode == TextCodeTokenMalformed {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
