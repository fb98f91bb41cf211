package lock

import "testing"

func TestKeyFor(t *testing.T) {
	if KeyFor("app", "schema_migrations") != "edustack-migrate:app:schema_migrations" {
		t.Fatal("key format mismatch")
	}
}
