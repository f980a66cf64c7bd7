// Package auth defines the identity provider the session gate listens to.
package auth

import (
	"context"
	"errors"

	"shopledger/internal/core"
)

// Provider issues identities. Subscribers are called with the new identity on
// sign-in and with nil on sign-out.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (core.Identity, error)
	SignUp(ctx context.Context, email, password, name string) (core.Identity, error)
	SignOut(ctx context.Context) error
	CurrentSession(ctx context.Context) (*core.Identity, error)
	Subscribe(fn func(*core.Identity)) (unsubscribe func())
}

type Kind string

const (
	KindInvalidCredentials Kind = "invalid_credentials"
	KindEmailTaken         Kind = "email_taken"
	KindInvalidInput       Kind = "invalid_input"
	KindUnavailable        Kind = "unavailable"
)

// Error is a credential or session failure. It never affects ledger data.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return "auth " + string(e.Kind) + ": " + e.Msg + ": " + e.Err.Error()
	}
	return "auth " + string(e.Kind) + ": " + e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindInvalidCredentials:
		return "Wrong email or password."
	case KindEmailTaken:
		return "An account with this email already exists."
	case KindInvalidInput:
		return e.Msg
	default:
		return "Sign-in is unavailable right now. Please try again."
	}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, k Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == k
}
