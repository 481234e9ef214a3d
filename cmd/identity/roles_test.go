package identity

import "testing"

func TestAuthorized_EmptyRequiredSet(t *testing.T) {
	if !Authorized([]Role{RoleClient}, nil) {
		t.Fatalf("empty required set must pass any authenticated principal")
	}
	if !Authorized(nil, nil) {
		t.Fatalf("empty required set must pass even with no roles")
	}
}

func TestAuthorized_Intersection(t *testing.T) {
	tests := []struct {
		name     string
		have     []Role
		required []Role
		want     bool
	}{
		{"seller denied admin route", []Role{RoleSeller}, []Role{RoleAdmin}, false},
		{"admin allowed admin route", []Role{RoleAdmin}, []Role{RoleAdmin}, true},
		{"seller allowed admin-or-seller route", []Role{RoleSeller}, []Role{RoleAdmin, RoleSeller}, true},
		{"admin allowed admin-or-seller route", []Role{RoleAdmin}, []Role{RoleAdmin, RoleSeller}, true},
		{"client denied admin-or-seller route", []Role{RoleClient}, []Role{RoleAdmin, RoleSeller}, false},
		{"no roles denied", nil, []Role{RoleClient}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Authorized(tc.have, tc.required); got != tc.want {
				t.Fatalf("Authorized(%v, %v) = %v, want %v", tc.have, tc.required, got, tc.want)
			}
		})
	}
}

func TestRolesFromStrings_DropsUnknown(t *testing.T) {
	roles := RolesFromStrings([]string{"ADMIN", "SUPERUSER", "CLIENT"})
	if len(roles) != 2 || roles[0] != RoleAdmin || roles[1] != RoleClient {
		t.Fatalf("unexpected roles: %v", roles)
	}
}

func TestParseRole(t *testing.T) {
	if _, ok := ParseRole("SELLER"); !ok {
		t.Fatalf("SELLER should parse")
	}
	if _, ok := ParseRole("seller"); ok {
		t.Fatalf("roles are case-sensitive on the wire")
	}
}
