package utils

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashPasswordSaltsEachCall(t *testing.T) {
	a, err := HashPassword("hunter22", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	b, err := HashPassword("hunter22", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if a == b {
		t.Fatal("two hashes of the same password must differ")
	}
	if !CheckPassword(a, "hunter22") || !CheckPassword(b, "hunter22") {
		t.Fatal("hash does not verify its plaintext")
	}
	if CheckPassword(a, "hunter23") {
		t.Fatal("hash verified a different plaintext")
	}
}

func TestHashPasswordOutOfRangeCost(t *testing.T) {
	h, err := HashPassword("secret", 99)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	cost, err := bcrypt.Cost([]byte(h))
	if err != nil {
		t.Fatalf("cost: %v", err)
	}
	if cost != bcrypt.DefaultCost {
		t.Fatalf("cost = %d, want default", cost)
	}
}
