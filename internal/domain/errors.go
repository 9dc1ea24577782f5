package domain

import "github.com/cockroachdb/errors"

var (
	ErrActionPending = errors.New("request already in progress")
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
)
