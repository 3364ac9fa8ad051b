package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a failed aggregation run.
type ErrorKind string

const (
	KindAuth       ErrorKind = "auth_error"
	KindNoAccounts ErrorKind = "no_accounts"
	KindAPI        ErrorKind = "api_error"
	KindMalformed  ErrorKind = "malformed_response"
	KindUnexpected ErrorKind = "unexpected_error"
)

// User-facing messages for runs that fail without a more specific message.
const (
	MsgAuthFailed = "Authentication failed. Please try signing in again."
	MsgNoAccounts = "No AdSense accounts found for this user."
	MsgAPIFailed  = "An error occurred while fetching AdSense data."
	MsgUnexpected = "An unexpected error occurred while fetching AdSense data."
)

type (
	// AuthError reports that no valid credential could be obtained.
	AuthError struct {
		Err error
	}

	// NoAccountsError reports an identity without reporting accounts.
	NoAccountsError struct{}

	// APIError is a transport or HTTP level failure of a remote call.
	// Status is zero when no response was received.
	APIError struct {
		Status  int
		Body    string
		Message string
		Err     error
	}

	// MalformedResponseError is a 2xx response missing its expected shape.
	MalformedResponseError struct {
		Reason string
	}

	// UnexpectedError wraps anything that fits no other category.
	UnexpectedError struct {
		Err error
	}

	// RunError is the single classified failure of an aggregation run.
	RunError struct {
		Kind    ErrorKind
		Message string
		Err     error
	}
)

func (e *AuthError) Error() string {
	if e.Err == nil {
		return "authentication failed"
	}
	return "authentication failed: " + e.Err.Error()
}

func (e *AuthError) Unwrap() error { return e.Err }

func (e *NoAccountsError) Error() string {
	return "no reporting accounts found"
}

func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString("api error")
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	switch {
	case e.Message != "":
		b.WriteString(": " + e.Message)
	case e.Err != nil:
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *APIError) Unwrap() error { return e.Err }

func (e *MalformedResponseError) Error() string {
	return "malformed response: " + e.Reason
}

func (e *UnexpectedError) Error() string {
	if e.Err == nil {
		return "unexpected error"
	}
	return "unexpected error: " + e.Err.Error()
}

func (e *UnexpectedError) Unwrap() error { return e.Err }

func (e *RunError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

func (e *RunError) Unwrap() error { return e.Err }

// Classify converts any error into exactly one RunError. A nil error yields nil.
func Classify(err error) *RunError {
	if err == nil {
		return nil
	}

	var (
		runErr       *RunError
		authErr      *AuthError
		noAccounts   *NoAccountsError
		apiErr       *APIError
		malformedErr *MalformedResponseError
		unexpected   *UnexpectedError
	)
	switch {
	case errors.As(err, &runErr):
		return runErr
	case errors.As(err, &authErr):
		return &RunError{Kind: KindAuth, Message: MsgAuthFailed, Err: err}
	case errors.As(err, &noAccounts):
		return &RunError{Kind: KindNoAccounts, Message: MsgNoAccounts, Err: err}
	case errors.As(err, &apiErr):
		msg := strings.TrimSpace(apiErr.Message)
		if msg == "" {
			msg = MsgAPIFailed
		}
		return &RunError{Kind: KindAPI, Message: msg, Err: err}
	case errors.As(err, &malformedErr):
		return &RunError{Kind: KindMalformed, Message: malformedErr.Error(), Err: err}
	case errors.As(err, &unexpected):
		return &RunError{Kind: KindUnexpected, Message: MsgUnexpected, Err: err}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return &RunError{Kind: KindAPI, Message: MsgAPIFailed, Err: err}
	}

	// A plain error with a message surfaces that message.
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		msg = MsgUnexpected
	}
	return &RunError{Kind: KindUnexpected, Message: msg, Err: err}
}
