package models

import (
	"fmt"
	"time"
)

// Priority controls eviction order and whether an entry is mirrored to
// durable storage.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
)

// Weight returns the eviction score offset for the priority.
func (p Priority) Weight() int64 {
	switch p {
	case PriorityHigh:
		return 10000
	case PriorityLow:
		return 100
	default:
		return 1000
	}
}

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityLow:
		return "low"
	default:
		return "normal"
	}
}

// ParsePriority parses a priority name as stored in persisted entries.
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "low":
		return PriorityLow, nil
	case "normal":
		return PriorityNormal, nil
	case "high":
		return PriorityHigh, nil
	default:
		return PriorityNormal, fmt.Errorf("invalid priority %q", s)
	}
}

// accessWeight is the eviction score offset per recorded access.
const accessWeight = 500

// CacheEntry is a single cached value. Expiry is evaluated at read time
// against the cache's current TTL, so retuning the TTL affects existing
// entries immediately.
type CacheEntry struct {
	Value       interface{}
	CreatedAt   time.Time
	Priority    Priority
	AccessCount int64
}

// Age returns how long the entry has been in the cache.
func (e *CacheEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.CreatedAt)
}

// Expired reports whether the entry has outlived ttl.
func (e *CacheEntry) Expired(now time.Time, ttl time.Duration) bool {
	return e.Age(now) >= ttl
}

// EvictionScore computes the eviction ranking of the entry. Higher scores
// mean less valuable and are evicted first. Age contributes positively while
// priority and access count pull the score down, so a sufficiently old
// high-priority entry eventually scores worse than a young low-priority one;
// that saturation is part of the tuned behavior and is kept as-is.
func (e *CacheEntry) EvictionScore(now time.Time) int64 {
	return e.Age(now).Milliseconds() - e.Priority.Weight() - e.AccessCount*accessWeight
}
