package domain

import (
	"errors"
	"testing"
)

func TestRoleAllows(t *testing.T) {
	cases := []struct {
		role Role
		cap  Capability
		want bool
	}{
		{RoleAdmin, CapUsersWrite, true},
		{RoleAdmin, CapPaymentsWrite, true},
		{RoleDirector, CapStudentsWrite, true},
		{RoleDirector, CapUsersWrite, false},
		{RoleTeacher, CapGradesWrite, true},
		{RoleTeacher, CapPaymentsRead, false},
		{RoleStudent, CapGradesRead, true},
		{RoleStudent, CapGradesWrite, false},
		{RoleParent, CapPaymentsRead, true},
		{RoleSecretary, CapAttendanceWrite, true},
		{RoleSecretary, CapGradesRead, false},
		{RoleAccountant, CapPaymentsWrite, true},
		{RoleAccountant, CapCoursesRead, false},
		{Role("janitor"), CapCoursesRead, false},
	}
	for _, tc := range cases {
		if got := tc.role.Allows(tc.cap); got != tc.want {
			t.Errorf("%s.Allows(%s) = %v, want %v", tc.role, tc.cap, got, tc.want)
		}
	}
}

func TestRoleCapabilitiesAdminHasFullSet(t *testing.T) {
	caps := RoleAdmin.Capabilities()
	if len(caps) != 14 {
		t.Fatalf("expected 14 admin capabilities, got %d", len(caps))
	}
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("  Teacher ")
	if err != nil {
		t.Fatalf("ParseRole: %v", err)
	}
	if r != RoleTeacher {
		t.Fatalf("expected teacher, got %q", r)
	}
	if _, err := ParseRole("janitor"); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
}
