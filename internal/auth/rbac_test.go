package auth

import "testing"

func TestNormalizeRole(t *testing.T) {
	cases := map[string]Role{
		"admin":   RoleAdmin,
		" ADMIN ": RoleAdmin,
		"user":    RoleUser,
		"":        RoleUser,
		"editor":  RoleUser,
	}
	for input, want := range cases {
		if got := NormalizeRole(input); got != want {
			t.Errorf("NormalizeRole(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestValidRole(t *testing.T) {
	if !ValidRole("user") || !ValidRole("admin") {
		t.Fatal("expected user and admin to be valid")
	}
	if ValidRole("Admin") || ValidRole("superuser") || ValidRole("") {
		t.Fatal("expected only exact role names to be valid")
	}
}

func TestHasRole(t *testing.T) {
	if HasRole("admin") {
		t.Fatal("no allowed roles should never match")
	}
	if !HasRole("admin", RoleUser, RoleAdmin) {
		t.Fatal("expected admin to match")
	}
	if HasRole("user", RoleAdmin) {
		t.Fatal("user must not match admin")
	}
}

func TestIdentityCanManage(t *testing.T) {
	owner := Identity{AccountID: 7, Role: RoleUser}
	other := Identity{AccountID: 8, Role: RoleUser}
	admin := Identity{AccountID: 9, Role: RoleAdmin}

	if !owner.CanManage(7) {
		t.Error("owner should manage own resource")
	}
	if other.CanManage(7) {
		t.Error("non-owner member must not manage")
	}
	if !admin.CanManage(7) {
		t.Error("admin should manage any resource")
	}
	if (Identity{}).CanManage(0) {
		t.Error("anonymous identity must not manage unowned resources")
	}
}
