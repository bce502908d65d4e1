package auth

import "encoding/json"

// ErrorCode tags an AuthError variant.
type ErrorCode string

const (
	CodeLogin         ErrorCode = "LOGIN_ERROR"
	CodeSignup        ErrorCode = "SIGNUP_ERROR"
	CodeInit          ErrorCode = "INIT_ERROR"
	CodePasswordReset ErrorCode = "PASSWORD_RESET_ERROR"
)

// ErrorDetails is the closed set of per-code payloads carried by AuthError.
type ErrorDetails interface {
	cause() error
	isErrorDetails()
}

// LoginDetails accompanies CodeLogin.
type LoginDetails struct {
	Email string
	Cause error
}

// SignupStage names the signup step that failed.
type SignupStage string

const (
	SignupStageAccount SignupStage = "account"
	SignupStageNoUser  SignupStage = "no_user"
)

// SignupDetails accompanies CodeSignup.
type SignupDetails struct {
	Email string
	Stage SignupStage
	Cause error
}

// InitDetails accompanies CodeInit.
type InitDetails struct {
	Cause error
}

// PasswordResetDetails accompanies CodePasswordReset.
type PasswordResetDetails struct {
	Email      string
	RedirectTo string
	Cause      error
}

func (d LoginDetails) cause() error         { return d.Cause }
func (d SignupDetails) cause() error        { return d.Cause }
func (d InitDetails) cause() error          { return d.Cause }
func (d PasswordResetDetails) cause() error { return d.Cause }

func (LoginDetails) isErrorDetails()         {}
func (SignupDetails) isErrorDetails()        {}
func (InitDetails) isErrorDetails()          {}
func (PasswordResetDetails) isErrorDetails() {}

// AuthError is the stored and returned failure of an auth operation.
// Error() is the user-facing message, so callers see the backend's wording unchanged.
type AuthError struct {
	Code    ErrorCode
	Message string
	Details ErrorDetails
}

func (e *AuthError) Error() string { return e.Message }

// Unwrap exposes the backend cause for errors.Is / errors.As.
func (e *AuthError) Unwrap() error {
	if e == nil || e.Details == nil {
		return nil
	}
	return e.Details.cause()
}

// MarshalJSON renders the shape the UI consumes: {code, message}.
func (e *AuthError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Code    ErrorCode `json:"code"`
		Message string    `json:"message"`
	}{Code: e.Code, Message: e.Message})
}

func messageOr(cause error, fallback string) string {
	if cause != nil && cause.Error() != "" {
		return cause.Error()
	}
	return fallback
}

// NewLoginError wraps a sign-in failure.
func NewLoginError(email string, cause error) *AuthError {
	return &AuthError{
		Code:    CodeLogin,
		Message: messageOr(cause, "Login failed"),
		Details: LoginDetails{Email: email, Cause: cause},
	}
}

// NewSignupError wraps a sign-up failure at the given stage.
func NewSignupError(email string, stage SignupStage, cause error) *AuthError {
	return &AuthError{
		Code:    CodeSignup,
		Message: messageOr(cause, "Signup failed"),
		Details: SignupDetails{Email: email, Stage: stage, Cause: cause},
	}
}

// NewInitError wraps an unexpected initialization fault. The message is fixed.
func NewInitError(cause error) *AuthError {
	return &AuthError{
		Code:    CodeInit,
		Message: "Failed to initialize authentication",
		Details: InitDetails{Cause: cause},
	}
}

// NewPasswordResetError wraps a password-reset initiation failure.
func NewPasswordResetError(email, redirectTo string, cause error) *AuthError {
	return &AuthError{
		Code:    CodePasswordReset,
		Message: messageOr(cause, "Password reset failed"),
		Details: PasswordResetDetails{Email: email, RedirectTo: redirectTo, Cause: cause},
	}
}

// Clone returns a shallow copy safe to hand out from a state snapshot.
func (e *AuthError) Clone() *AuthError {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}
