package domain

import "errors"

var (
	ErrSpaceNotFound    = errors.New("space not found")
	ErrAccountNotFound  = errors.New("account not found")
	ErrPositionNotFound = errors.New("position not found")
)
