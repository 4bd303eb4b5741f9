package entity

// Role ID constants, as carried in access token claims issued by the identity service.
const (
	RoleIDAdmin   = 1
	RoleIDDoctor  = 2
	RoleIDPatient = 3
	RoleIDStaff   = 4
)

// RoleNames constants
const (
	RoleAdmin   = "admin"
	RoleDoctor  = "doctor"
	RolePatient = "patient"
	RoleStaff   = "staff"
)

// RoleName maps a role id to its name; unknown ids yield "".
func RoleName(roleID int) string {
	switch roleID {
	case RoleIDAdmin:
		return RoleAdmin
	case RoleIDDoctor:
		return RoleDoctor
	case RoleIDPatient:
		return RolePatient
	case RoleIDStaff:
		return RoleStaff
	}
	return ""
}
