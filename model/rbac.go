package model

import "time"

// RBACCache is the persisted permission/role blob. Timestamp is the fetch
// time in Unix milliseconds; zero means the blob was never fetched.
type RBACCache struct {
	Permissions           []string            `json:"permissions"`
	Roles                 []string            `json:"roles"`
	PermissionsByResource map[string][]string `json:"permissionsByResource"`
	Timestamp             int64               `json:"timestamp,omitempty"`
}

// EmptyRBACCache returns the empty shape returned for absent or corrupt data.
func EmptyRBACCache() RBACCache {
	return RBACCache{
		Permissions:           []string{},
		Roles:                 []string{},
		PermissionsByResource: map[string][]string{},
	}
}

// FetchedAt converts Timestamp to a time.Time; the zero time means unset.
func (c RBACCache) FetchedAt() time.Time {
	if c.Timestamp <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(c.Timestamp)
}

// FreshAt reports whether the blob was fetched less than ttl before now.
func (c RBACCache) FreshAt(now time.Time, ttl time.Duration) bool {
	if c.Timestamp <= 0 {
		return false
	}
	return now.Sub(c.FetchedAt()) < ttl
}
