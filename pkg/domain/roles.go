package domain

// Role names a rung in the access hierarchy. The order is total:
// admin permission implies contributor and viewer permission.
type Role string

// Canonical roles, lowest to highest.
const (
	RoleViewer      Role = "viewer"
	RoleContributor Role = "contributor"
	RoleAdmin       Role = "admin"
)

// Roles returns all roles in ascending rank order.
func Roles() []Role {
	return []Role{RoleViewer, RoleContributor, RoleAdmin}
}

// Valid reports whether r is one of the canonical roles.
func (r Role) Valid() bool {
	return r.rank() > 0
}

func (r Role) rank() int {
	switch r {
	case RoleViewer:
		return 1
	case RoleContributor:
		return 2
	case RoleAdmin:
		return 3
	}
	return 0
}

// HasPermission reports whether actor's rank meets or exceeds required's
// rank. An empty or unknown actor role never has permission.
func HasPermission(actor, required Role) bool {
	ar := actor.rank()
	if ar == 0 {
		return false
	}
	return ar >= required.rank()
}
