package errs

import "errors"

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired or not valid yet")
	ErrInvalidSubject = errors.New("invalid subject")
)
