package remote

import "net/http"

// Errors reported by the service, matched by code and type with errors.Is.
var (
	ErrGeneralArgumentInvalid = &Error{Code: http.StatusBadRequest, Type: "general_argument_invalid", Message: "Invalid request parameters."}
	ErrUnauthorizedScope      = &Error{Code: http.StatusUnauthorized, Type: "general_unauthorized_scope", Message: "User (role: guests) missing scope (account)"}
	ErrUserInvalidCredentials = &Error{Code: http.StatusUnauthorized, Type: "user_invalid_credentials", Message: "Invalid credentials. Please check the email and password."}
	ErrUserInvalidToken       = &Error{Code: http.StatusUnauthorized, Type: "user_invalid_token", Message: "Invalid token passed in the request."}
	ErrUserNotFound           = &Error{Code: http.StatusNotFound, Type: "user_not_found", Message: "User with the requested ID could not be found."}
	ErrUserAlreadyExists      = &Error{Code: http.StatusConflict, Type: "user_already_exists", Message: "A user with the same id, email, or phone already exists in this project."}
	ErrUserPasswordMismatch   = &Error{Code: http.StatusBadRequest, Type: "user_password_mismatch", Message: "Passwords do not match. Please check the password and confirm password."}
	ErrDocumentNotFound       = &Error{Code: http.StatusNotFound, Type: "document_not_found", Message: "Document with the requested ID could not be found."}
	ErrDocumentAlreadyExists  = &Error{Code: http.StatusConflict, Type: "document_already_exists", Message: "Document with the requested ID already exists."}
)

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Type == e.Type
}

// Invalid returns a general_argument_invalid error with a specific message.
func Invalid(msg string) *Error {
	return &Error{Code: ErrGeneralArgumentInvalid.Code, Type: ErrGeneralArgumentInvalid.Type, Message: msg}
}
