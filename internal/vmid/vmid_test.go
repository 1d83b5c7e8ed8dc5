package vmid

import "testing"

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"564d abcd-1234-5678-90ab-cdef01234567": "564dabcd1234567890abcdef01234567",
		"564dabcd1234567890abcdef01234567":       "564dabcd1234567890abcdef01234567",
		"":                                       "",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"564d abcd-1234-5678-90ab-cdef01234567",
		"plain-text no uuid",
		"",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestValidate(t *testing.T) {
	if err := Validate("564dabcd1234567890abcdef01234567"); err != nil {
		t.Errorf("expected valid UUID to pass, got %v", err)
	}
	if err := Validate(""); err == nil {
		t.Error("expected empty string to fail validation")
	}
	if err := Validate("not-a-uuid"); err == nil {
		t.Error("expected malformed string to fail validation")
	}
	if err := Validate("zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz"); err == nil {
		t.Error("expected non-hex string to fail validation")
	}
}

func TestNormalizeAndValidate(t *testing.T) {
	got, err := NormalizeAndValidate("564d abcd-1234-5678-90ab-cdef01234567")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "564dabcd1234567890abcdef01234567"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	if _, err := NormalizeAndValidate("  -- "); err == nil {
		t.Error("expected error for identifier that normalizes to empty")
	}
}
