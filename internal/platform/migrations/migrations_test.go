package migrations

import (
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
)

func TestEmbeddedMigrationsAreWellFormed(t *testing.T) {
	source, err := iofs.New(files, ".")
	if err != nil {
		t.Fatalf("open migration source: %v", err)
	}
	defer source.Close()

	first, err := source.First()
	if err != nil {
		t.Fatalf("First: %v", err)
	}
	if first != 1 {
		t.Fatalf("first version = %d, want 1", first)
	}

	count := 1
	version := first
	for {
		next, err := source.Next(version)
		if err != nil {
			break
		}
		version = next
		count++
	}
	if count != 3 {
		t.Fatalf("migration count = %d, want 3", count)
	}
}
