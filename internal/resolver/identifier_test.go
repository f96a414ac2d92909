package resolver

import (
	"errors"
	"testing"
)

func TestParseIdentifierNameOnly(t *testing.T) {
	id, err := ParseIdentifier("phpunit")
	if err != nil {
		t.Fatalf("ParseIdentifier: %v", err)
	}
	if id.Name != "phpunit" {
		t.Fatalf("expected name phpunit, got %q", id.Name)
	}
	if id.WantsSpecificVersion() {
		t.Fatal("bare name should not want a specific version")
	}
}

func TestParseIdentifierLatest(t *testing.T) {
	id, err := ParseIdentifier("phpunit@latest")
	if err != nil {
		t.Fatalf("ParseIdentifier: %v", err)
	}
	if id.Version != "latest" {
		t.Fatalf("expected latest marker, got %q", id.Version)
	}
	if id.WantsSpecificVersion() {
		t.Fatal("latest should not count as a specific version")
	}
}

func TestParseIdentifierConstraint(t *testing.T) {
	id, err := ParseIdentifier("rector/rector@^0.15")
	if err != nil {
		t.Fatalf("ParseIdentifier: %v", err)
	}
	if id.Name != "rector/rector" {
		t.Fatalf("expected scoped name, got %q", id.Name)
	}
	if id.Constraint == nil {
		t.Fatal("expected a parsed constraint")
	}
	if !id.WantsSpecificVersion() {
		t.Fatal("a range should count as a specific version request")
	}
}

func TestParseIdentifierLiteralVersion(t *testing.T) {
	id, err := ParseIdentifier("tool@10.5.2-special")
	if err != nil {
		t.Fatalf("ParseIdentifier: %v", err)
	}
	if id.Version != "10.5.2-special" {
		t.Fatalf("expected literal version kept verbatim, got %q", id.Version)
	}
}

func TestParseIdentifierRejectsExtraSegments(t *testing.T) {
	_, err := ParseIdentifier("tool@1.0@2.0")
	var invalid *InvalidIdentifierError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidIdentifierError, got %v", err)
	}
}
