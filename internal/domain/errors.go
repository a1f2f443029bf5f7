package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotLoggedIn      = errors.New("not logged in")
	ErrSecretNotFound   = errors.New("secret not found")
	ErrUnsupportedRole  = errors.New("unsupported role")
	ErrWrongRole        = errors.New("wrong role for command")
	ErrInvalidSeverity  = errors.New("severity must be between 1 and 10")
	ErrNoSymptoms       = errors.New("at least one symptom is required")
	ErrPatientNotLoaded = errors.New("patient not selected")
)

type ErrorKind string

const (
	ErrorKindNetwork ErrorKind = "network"
	ErrorKindHTTP    ErrorKind = "http"
	ErrorKindParse   ErrorKind = "parse"
	ErrorKindUnknown ErrorKind = "unknown"
)

// NetworkError reports a transport failure: the request never produced a response.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// HTTPError reports a non-2xx response.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("status %d", e.Status)
	}
	return fmt.Sprintf("status %d: %s", e.Status, e.Message)
}

// ParseError reports a 2xx response whose body is empty or not the expected JSON.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("decode response: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ClassifyError maps err onto the error taxonomy and, for HTTP failures, the status code.
func ClassifyError(err error) (ErrorKind, int) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return ErrorKindHTTP, httpErr.Status
	}

	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return ErrorKindParse, 0
	}

	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return ErrorKindNetwork, 0
	}

	return ErrorKindUnknown, 0
}

func IsStatus(err error, status int) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.Status == status
}
