package model

// Role identifies an approver role in a district's approval chain.
// Roles arrive from the identity provider as JWT claims; the workflow
// engine validates them against this closed set instead of comparing
// raw strings inline.
type Role string

const (
	RoleEmployee       Role = "employee"
	RoleSupervisor     Role = "supervisor"
	RolePrincipal      Role = "principal"
	RoleHRDirector     Role = "hr_director"
	RolePayroll        Role = "payroll"
	RoleBusinessOffice Role = "business_office"
	RoleSuperintendent Role = "superintendent"
	RoleAdmin          Role = "admin"
)

var validRoles = map[Role]bool{
	RoleEmployee:       true,
	RoleSupervisor:     true,
	RolePrincipal:      true,
	RoleHRDirector:     true,
	RolePayroll:        true,
	RoleBusinessOffice: true,
	RoleSuperintendent: true,
	RoleAdmin:          true,
}

// IsValid reports whether r is one of the known district roles.
func (r Role) IsValid() bool {
	return validRoles[r]
}

func (r Role) String() string {
	return string(r)
}
