package errors

import "errors"

var (
	ErrEmailExist    = errors.New("email already in use")
	ErrInvalidEmail  = errors.New("invalid email")
	ErrUserNotFound  = errors.New("user not found")
	ErrWeakPassword  = errors.New("password should be at least 6 characters")
	ErrWrongPassword = errors.New("wrong password")
)
