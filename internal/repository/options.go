package repository

import "slices"

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Normalized clamps the options into range: limit defaults to DefaultLimit
// and is capped at MaxLimit, negative offsets become 0, and an empty sort
// key becomes SortCreatedAt.
func (o ListOptions) Normalized() ListOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	if o.Limit > MaxLimit {
		o.Limit = MaxLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	if o.SortBy == "" {
		o.SortBy = SortCreatedAt
	}
	return o
}

// ValidSort reports whether key is one of allowed.
func ValidSort(key string, allowed []string) bool {
	return slices.Contains(allowed, key)
}
