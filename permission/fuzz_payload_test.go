package permission

import (
	"encoding/json"
	"testing"
	"time"
)

// FuzzFromPayload feeds arbitrary JSON through the RBAC transform.
// Goal: no panics, and every granted code survives the cache conversion.
func FuzzFromPayload(f *testing.F) {
	f.Add(`{"permissions":["audits.view"],"roles":["admin"]}`)
	f.Add(`{"permissions":[{"resource":"a","action":"b"}]}`)
	f.Add(`{"permissions":{"a":["b"]},"permissions_by_resource":{"c":["d"]}}`)
	f.Add(`{"roles":[{"name":"x"},{"code":1}]}`)
	f.Add(`{}`)
	f.Add(`[]`)

	f.Fuzz(func(t *testing.T, raw string) {
		var p Payload
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return
		}
		g, err := FromPayload(p)
		if err != nil {
			return
		}
		back := FromCache(g.ToCache(time.Time{}))
		for code := range g.Permissions {
			if !back.Permissions.Has(code) {
				t.Fatalf("permission %q lost in cache conversion", code)
			}
		}
		for role := range g.Roles {
			if !back.Roles.Has(role) {
				t.Fatalf("role %q lost in cache conversion", role)
			}
		}
	})
}
