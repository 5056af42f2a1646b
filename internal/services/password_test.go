package services

import "testing"

func TestPasswordHashAndCompare(t *testing.T) {
	t.Parallel()

	hasher := NewPasswordHasher()

	hash, err := hasher.Hash("hunter2!")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if hash == "hunter2!" {
		t.Fatalf("hash must not equal plaintext")
	}

	ok, err := hasher.Compare("hunter2!", hash)
	if err != nil {
		t.Fatalf("Compare error: %v", err)
	}
	if !ok {
		t.Fatalf("expected matching password to compare true")
	}

	ok, err = hasher.Compare("wrong", hash)
	if err != nil {
		t.Fatalf("Compare error on mismatch: %v", err)
	}
	if ok {
		t.Fatalf("expected non-matching password to compare false")
	}
}

func TestPasswordHashesAreSalted(t *testing.T) {
	t.Parallel()

	hasher := NewPasswordHasher()

	first, err := hasher.Hash("same-input")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	second, err := hasher.Hash("same-input")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct hashes for the same input")
	}
}

func TestPasswordCompareMalformedHash(t *testing.T) {
	t.Parallel()

	hasher := NewPasswordHasher()

	if _, err := hasher.Compare("anything", "not-a-bcrypt-hash"); err == nil {
		t.Fatalf("expected error for malformed hash")
	}
}
