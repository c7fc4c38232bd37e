package normalize

import "testing"

func TestEmail(t *testing.T) {
	if got := Email("  User.Name@Example.COM "); got != "user.name@example.com" {
		t.Fatalf("Email normalization failed, got %q", got)
	}
}

func TestInviteCode(t *testing.T) {
	if got := InviteCode(" ab3kq9xz\n"); got != "AB3KQ9XZ" {
		t.Fatalf("InviteCode normalization failed, got %q", got)
	}
}

func TestDisplayName(t *testing.T) {
	if got := DisplayName("  Ada Lovelace "); got != "Ada Lovelace" {
		t.Fatalf("DisplayName normalization failed, got %q", got)
	}
}
