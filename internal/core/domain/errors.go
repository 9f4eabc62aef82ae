package domain

import "errors"

// Authentication and authorization failures. Callers branch with errors.Is.
var (
	ErrUserNotFound            = errors.New("user not found")
	ErrUserFrozen              = errors.New("user is frozen")
	ErrInvalidCredential       = errors.New("invalid credentials")
	ErrDuplicateUser           = errors.New("user already exists")
	ErrVerificationCodeInvalid = errors.New("verification code is invalid or expired")
	ErrTokenInvalid            = errors.New("token is invalid")
	ErrTokenExpired            = errors.New("token has expired")
	ErrUnauthorized            = errors.New("unauthorized")
	ErrForbidden               = errors.New("access forbidden")
)

// ErrCacheMiss is returned by cache stores when a key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")
