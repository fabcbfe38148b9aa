package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrAccountInactive    = errors.New("auth: account inactive")
	ErrEmailTaken         = errors.New("auth: email already registered")
	ErrInvalidToken       = errors.New("auth: invalid token")
	ErrTokenExpired       = errors.New("auth: token expired")
	ErrTokenRevoked       = errors.New("auth: token revoked")
	ErrWrongTokenType     = errors.New("auth: wrong token type")
	ErrInvalidInput       = errors.New("auth: invalid input")
	ErrNotFound           = errors.New("auth: not found")
	ErrAlreadyExists      = errors.New("auth: already exists")
)
