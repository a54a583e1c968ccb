package permission

import (
	"strings"
	"time"

	"github.com/MrEthical07/qmsauth/model"
)

// Grants is the transformed RBAC data of one user.
type Grants struct {
	Permissions Set
	Roles       Set
	ByResource  map[string]Set
}

// EmptyGrants returns Grants with every collection allocated and empty.
func EmptyGrants() Grants {
	return Grants{
		Permissions: Set{},
		Roles:       Set{},
		ByResource:  map[string]Set{},
	}
}

// Grant records code in Permissions and, when code splits into
// resource/action, adds the action under its resource.
func (g Grants) Grant(code string) {
	code = strings.TrimSpace(code)
	if code == "" {
		return
	}
	g.Permissions.Add(code)
	if resource, action, ok := SplitCode(code); ok {
		g.resource(resource).Add(action)
	}
}

// GrantAction records action on resource. The joined "resource.action" code
// is added to Permissions as well.
func (g Grants) GrantAction(resource, action string) {
	resource, action = strings.TrimSpace(resource), strings.TrimSpace(action)
	if resource == "" || action == "" {
		return
	}
	g.resource(resource).Add(action)
	g.Permissions.Add(resource + "." + action)
}

func (g Grants) resource(name string) Set {
	s, ok := g.ByResource[name]
	if !ok {
		s = Set{}
		g.ByResource[name] = s
	}
	return s
}

// ResourcePermissions returns the sorted actions granted on resource, or an
// empty slice.
func (g Grants) ResourcePermissions(resource string) []string {
	return g.ByResource[resource].Sorted()
}

// Clone returns a deep copy.
func (g Grants) Clone() Grants {
	out := Grants{
		Permissions: g.Permissions.Clone(),
		Roles:       g.Roles.Clone(),
		ByResource:  make(map[string]Set, len(g.ByResource)),
	}
	for resource, actions := range g.ByResource {
		out.ByResource[resource] = actions.Clone()
	}
	return out
}

// Empty reports whether no permission or role is granted.
func (g Grants) Empty() bool {
	return g.Permissions.Len() == 0 && g.Roles.Len() == 0 && len(g.ByResource) == 0
}

// ToCache converts g into the persisted blob stamped with fetchedAt. A zero
// fetchedAt leaves the timestamp unset.
func (g Grants) ToCache(fetchedAt time.Time) model.RBACCache {
	c := model.EmptyRBACCache()
	c.Permissions = g.Permissions.Sorted()
	c.Roles = g.Roles.Sorted()
	for resource, actions := range g.ByResource {
		c.PermissionsByResource[resource] = actions.Sorted()
	}
	if !fetchedAt.IsZero() {
		c.Timestamp = fetchedAt.UnixMilli()
	}
	return c
}

// FromCache rebuilds Grants from a persisted blob.
func FromCache(c model.RBACCache) Grants {
	g := EmptyGrants()
	for _, code := range c.Permissions {
		g.Permissions.Add(code)
	}
	for _, role := range c.Roles {
		g.Roles.Add(role)
	}
	for resource, actions := range c.PermissionsByResource {
		set := g.resource(resource)
		for _, action := range actions {
			set.Add(action)
		}
	}
	return g
}
