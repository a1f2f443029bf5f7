package cache

import (
	"context"
	"time"

	"github.com/bnema/healthcare-assistant-cli/internal/domain"
)

type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

type Fetcher[T any] func(ctx context.Context) (T, error)

// ErrorInfo is the recorded failure of the latest fetch.
type ErrorInfo struct {
	Kind       domain.ErrorKind
	Message    string
	HTTPStatus int
}

func NewErrorInfo(err error) *ErrorInfo {
	if err == nil {
		return nil
	}
	kind, status := domain.ClassifyError(err)
	return &ErrorInfo{
		Kind:       kind,
		Message:    err.Error(),
		HTTPStatus: status,
	}
}

func (e *ErrorInfo) Error() string {
	return e.Message
}

// Snapshot is the untyped view of a resource.
type Snapshot struct {
	Name      string
	Status    Status
	Value     any
	HasValue  bool
	FetchedAt time.Time
	UpdatedAt time.Time
	Err       *ErrorInfo
}

// Entity is the typed view of a resource. Value is the zero value until a fetch
// or mutation succeeds.
type Entity[T any] struct {
	Name      string
	Status    Status
	Value     T
	HasValue  bool
	FetchedAt time.Time
	UpdatedAt time.Time
	Err       *ErrorInfo
}

func (e Entity[T]) Ready() bool {
	return e.Status == StatusReady
}

func (e Entity[T]) Failed() bool {
	return e.Status == StatusFailed
}

func entityOf[T any](s Snapshot) Entity[T] {
	value, _ := s.Value.(T)
	return Entity[T]{
		Name:      s.Name,
		Status:    s.Status,
		Value:     value,
		HasValue:  s.HasValue,
		FetchedAt: s.FetchedAt,
		UpdatedAt: s.UpdatedAt,
		Err:       s.Err,
	}
}
