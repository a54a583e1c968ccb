package permission

import (
	"errors"
	"fmt"
	"sort"

	"github.com/mitchellh/mapstructure"
)

// ErrInvalidPayload is returned when an RBAC payload entry has no usable shape.
var ErrInvalidPayload = errors.New("invalid rbac payload")

// Payload is the RBAC response body as decoded into generic JSON values.
// Permissions may be a list of codes or objects, or a {resource: [actions]}
// map. Roles may be a list of codes or objects.
type Payload struct {
	Permissions           any `json:"permissions"`
	Roles                 any `json:"roles"`
	PermissionsByResource any `json:"permissions_by_resource"`
}

type permissionEntry struct {
	Codename string `mapstructure:"codename"`
	Code     string `mapstructure:"code"`
	Resource string `mapstructure:"resource"`
	Action   string `mapstructure:"action"`
}

type roleEntry struct {
	Code string `mapstructure:"code"`
	Name string `mapstructure:"name"`
}

// FromPayload transforms p into Grants. Any entry that is neither a string
// nor a recognised object fails the whole transform with ErrInvalidPayload.
func FromPayload(p Payload) (Grants, error) {
	g := EmptyGrants()
	if err := addPermissions(g, p.Permissions); err != nil {
		return Grants{}, err
	}
	if err := addRoles(g, p.Roles); err != nil {
		return Grants{}, err
	}
	if p.PermissionsByResource != nil {
		byResource, ok := p.PermissionsByResource.(map[string]any)
		if !ok {
			return Grants{}, fmt.Errorf("permissions_by_resource: %w", ErrInvalidPayload)
		}
		if err := addResourceMap(g, "permissions_by_resource", byResource); err != nil {
			return Grants{}, err
		}
	}
	return g, nil
}

func addPermissions(g Grants, raw any) error {
	switch v := raw.(type) {
	case nil:
		return nil
	case []any:
		for i, item := range v {
			switch entry := item.(type) {
			case string:
				g.Grant(entry)
			case map[string]any:
				var decoded permissionEntry
				if err := mapstructure.Decode(entry, &decoded); err != nil {
					return fmt.Errorf("permissions[%d]: %w: %v", i, ErrInvalidPayload, err)
				}
				switch {
				case decoded.Resource != "" && decoded.Action != "":
					g.GrantAction(decoded.Resource, decoded.Action)
				case decoded.Codename != "":
					g.Grant(decoded.Codename)
				case decoded.Code != "":
					g.Grant(decoded.Code)
				default:
					return fmt.Errorf("permissions[%d]: %w", i, ErrInvalidPayload)
				}
			default:
				return fmt.Errorf("permissions[%d]: %w", i, ErrInvalidPayload)
			}
		}
		return nil
	case map[string]any:
		return addResourceMap(g, "permissions", v)
	default:
		return fmt.Errorf("permissions: %w", ErrInvalidPayload)
	}
}

func addResourceMap(g Grants, field string, byResource map[string]any) error {
	resources := make([]string, 0, len(byResource))
	for resource := range byResource {
		resources = append(resources, resource)
	}
	sort.Strings(resources)

	for _, resource := range resources {
		var actions []string
		if err := mapstructure.Decode(byResource[resource], &actions); err != nil {
			return fmt.Errorf("%s[%q]: %w: %v", field, resource, ErrInvalidPayload, err)
		}
		for _, action := range actions {
			g.GrantAction(resource, action)
		}
	}
	return nil
}

func addRoles(g Grants, raw any) error {
	switch v := raw.(type) {
	case nil:
		return nil
	case []any:
		for i, item := range v {
			switch entry := item.(type) {
			case string:
				g.Roles.Add(entry)
			case map[string]any:
				var decoded roleEntry
				if err := mapstructure.Decode(entry, &decoded); err != nil {
					return fmt.Errorf("roles[%d]: %w: %v", i, ErrInvalidPayload, err)
				}
				switch {
				case decoded.Code != "":
					g.Roles.Add(decoded.Code)
				case decoded.Name != "":
					g.Roles.Add(decoded.Name)
				default:
					return fmt.Errorf("roles[%d]: %w", i, ErrInvalidPayload)
				}
			default:
				return fmt.Errorf("roles[%d]: %w", i, ErrInvalidPayload)
			}
		}
		return nil
	default:
		return fmt.Errorf("roles: %w", ErrInvalidPayload)
	}
}
