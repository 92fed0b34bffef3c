package rbac

import (
	"context"
	"path"
)

// Checker resolves permissions against a role -> patterns table.
// Patterns use path.Match syntax, so "report:*" covers every report
// permission and "*" covers all of them.
type Checker struct {
	RolePermissions map[string][]string
}

func NewChecker(rp map[string][]string) *Checker {
	if rp == nil {
		rp = RolePermissions
	}
	return &Checker{RolePermissions: rp}
}

func (c *Checker) Has(role, perm string) bool {
	for _, pattern := range c.RolePermissions[role] {
		if ok, _ := path.Match(pattern, perm); ok {
			return true
		}
	}
	return false
}

func (c *Checker) Any(role string, perms ...string) bool {
	for _, p := range perms {
		if c.Has(role, p) {
			return true
		}
	}
	return false
}

// Granted expands the role's patterns against the Permissions catalogue.
func (c *Checker) Granted(role string) []string {
	var out []string
	for _, p := range Permissions {
		if c.Has(role, p) {
			out = append(out, p)
		}
	}
	return out
}

type roleKey struct{}

func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleKey{}, role)
}

func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(roleKey{}).(string)
	return role
}
