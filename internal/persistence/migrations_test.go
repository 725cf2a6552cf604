package persistence

import (
	"strings"
	"testing"
)

func TestMigrationsAreEmbeddedInOrder(t *testing.T) {
	names, err := migrationNames()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) < 2 {
		t.Fatalf("expected embedded migrations, got %v", names)
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("migrations out of order: %v", names)
		}
	}

	first, err := migrationFS.ReadFile("migrations/" + names[0])
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"support.support_tickets", "version", "ix_support_tickets_reference_id"} {
		if !strings.Contains(string(first), want) {
			t.Errorf("first migration missing %q", want)
		}
	}
}
