package dashboard

import (
	"time"

	"github.com/bnema/healthcare-assistant-cli/internal/cache"
)

// Source tells the reader where a rendered value came from.
type Source string

const (
	SourceLive        Source = "live"
	SourceStale       Source = "stale"
	SourceDemo        Source = "demo"
	SourceLoading     Source = "loading"
	SourceUnavailable Source = "unavailable"
)

type Policy struct {
	// DemoFallback substitutes sample data for resources that never loaded.
	DemoFallback bool
	// StaleAfter marks ready values older than this as stale. Zero disables it.
	StaleAfter time.Duration
	Now        time.Time
}

// Resolve picks the value to show for an entity. A value the cache holds always
// wins over demo data; demo data only fills resources that have nothing.
func Resolve[T any](entity cache.Entity[T], demo T, policy Policy) (T, Source) {
	switch {
	case entity.HasValue && entity.Status == cache.StatusReady:
		if policy.StaleAfter > 0 && !policy.Now.IsZero() && policy.Now.Sub(entity.UpdatedAt) > policy.StaleAfter {
			return entity.Value, SourceStale
		}
		return entity.Value, SourceLive
	case entity.HasValue:
		return entity.Value, SourceStale
	case entity.Status == cache.StatusLoading:
		var zero T
		return zero, SourceLoading
	case policy.DemoFallback:
		return demo, SourceDemo
	default:
		var zero T
		return zero, SourceUnavailable
	}
}
