package model

import (
	"errors"
	"net/mail"
	"strings"
)

var ErrValidation = errors.New("validation error")

// FieldError is a form validation failure. It matches ErrValidation with errors.Is.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Message
}

func (e *FieldError) Is(target error) bool {
	return target == ErrValidation
}

const (
	MinNameLength     = 4
	MinPasswordLength = 8
)

type SignupForm struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (f SignupForm) Validate() error {
	if len([]rune(strings.TrimSpace(f.Name))) < MinNameLength {
		return &FieldError{Field: "name", Message: "Username must be at least 4 characters."}
	}
	if err := validateEmail(f.Email); err != nil {
		return err
	}
	return validatePassword("password", f.Password)
}

type LoginForm struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (f LoginForm) Validate() error {
	if err := validateEmail(f.Email); err != nil {
		return err
	}
	return validatePassword("password", f.Password)
}

type RecoveryForm struct {
	Email string `json:"email"`
}

func (f RecoveryForm) Validate() error {
	return validateEmail(f.Email)
}

type ResetPasswordForm struct {
	UserID          string `json:"user_id"`
	Secret          string `json:"secret"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (f ResetPasswordForm) Validate() error {
	if strings.TrimSpace(f.UserID) == "" || strings.TrimSpace(f.Secret) == "" {
		return &FieldError{Field: "secret", Message: "Invalid or missing recovery link."}
	}
	if err := validatePassword("password", f.Password); err != nil {
		return err
	}
	if err := validatePassword("confirm_password", f.ConfirmPassword); err != nil {
		return err
	}
	if f.Password != f.ConfirmPassword {
		return &FieldError{Field: "confirm_password", Message: "Passwords do not match."}
	}
	return nil
}

// TaskForm is used both for creating and for editing a task.
type TaskForm struct {
	Title string `json:"title"`
	Tag   Tag    `json:"tag"`
}

func (f TaskForm) Validate() error {
	if strings.TrimSpace(f.Title) == "" {
		return &FieldError{Field: "title", Message: "Title is required"}
	}
	if f.Tag == "" {
		return &FieldError{Field: "tag", Message: "Tag is required, select"}
	}
	if !f.Tag.Valid() {
		return &FieldError{Field: "tag", Message: "Unknown tag " + string(f.Tag)}
	}
	return nil
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return &FieldError{Field: "email", Message: "Please enter a valid email."}
	}
	return nil
}

func validatePassword(field, password string) error {
	if len(password) < MinPasswordLength {
		return &FieldError{Field: field, Message: "Password must be at least 8 characters."}
	}
	return nil
}
