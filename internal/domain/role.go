package domain

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownRole = errors.New("unknown role")

// Role is the single role carried by every account. Authorization decisions
// are made against capabilities, never against role names, so route guards
// stay independent of how the school staffs itself.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleDirector   Role = "director"
	RoleTeacher    Role = "teacher"
	RoleStudent    Role = "student"
	RoleParent     Role = "parent"
	RoleSecretary  Role = "secretary"
	RoleAccountant Role = "accountant"
)

type Capability string

const (
	CapUsersRead       Capability = "users:read"
	CapUsersWrite      Capability = "users:write"
	CapStudentsRead    Capability = "students:read"
	CapStudentsWrite   Capability = "students:write"
	CapTeachersRead    Capability = "teachers:read"
	CapTeachersWrite   Capability = "teachers:write"
	CapCoursesRead     Capability = "courses:read"
	CapCoursesWrite    Capability = "courses:write"
	CapGradesRead      Capability = "grades:read"
	CapGradesWrite     Capability = "grades:write"
	CapAttendanceRead  Capability = "attendance:read"
	CapAttendanceWrite Capability = "attendance:write"
	CapPaymentsRead    Capability = "payments:read"
	CapPaymentsWrite   Capability = "payments:write"
)

var roleCapabilities = map[Role][]Capability{
	RoleDirector: {
		CapUsersRead, CapStudentsRead, CapStudentsWrite, CapTeachersRead,
		CapTeachersWrite, CapCoursesRead, CapCoursesWrite, CapGradesRead,
		CapAttendanceRead, CapPaymentsRead,
	},
	RoleSecretary: {
		CapUsersRead, CapStudentsRead, CapStudentsWrite, CapTeachersRead,
		CapCoursesRead, CapAttendanceRead, CapAttendanceWrite,
	},
	RoleAccountant: {CapPaymentsRead, CapPaymentsWrite, CapStudentsRead},
	RoleTeacher: {
		CapCoursesRead, CapStudentsRead, CapGradesRead, CapGradesWrite,
		CapAttendanceRead, CapAttendanceWrite,
	},
	RoleStudent: {CapCoursesRead, CapGradesRead, CapAttendanceRead},
	RoleParent:  {CapGradesRead, CapAttendanceRead, CapPaymentsRead},
}

// Allows reports whether the role grants the capability. Admin holds every
// capability; unknown roles hold none.
func (r Role) Allows(cap Capability) bool {
	if r == RoleAdmin {
		return true
	}
	for _, c := range roleCapabilities[r] {
		if c == cap {
			return true
		}
	}
	return false
}

// Capabilities returns everything the role grants. Admin gets the full set.
func (r Role) Capabilities() []Capability {
	if r == RoleAdmin {
		return []Capability{
			CapUsersRead, CapUsersWrite, CapStudentsRead, CapStudentsWrite,
			CapTeachersRead, CapTeachersWrite, CapCoursesRead, CapCoursesWrite,
			CapGradesRead, CapGradesWrite, CapAttendanceRead, CapAttendanceWrite,
			CapPaymentsRead, CapPaymentsWrite,
		}
	}
	caps := roleCapabilities[r]
	out := make([]Capability, len(caps))
	copy(out, caps)
	return out
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDirector, RoleTeacher, RoleStudent, RoleParent, RoleSecretary, RoleAccountant:
		return true
	default:
		return false
	}
}

func ParseRole(v string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(v)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, v)
	}
	return r, nil
}
