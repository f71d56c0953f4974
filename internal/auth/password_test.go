// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"strings"
	"testing"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	if !strings.HasPrefix(hash, "$argon2id$v=19$m=19456,t=2,p=1$") {
		t.Errorf("unexpected hash prefix: %s", hash)
	}

	ok, err := CheckPassword("correct horse battery staple", hash)
	if err != nil {
		t.Fatalf("CheckPassword: %v", err)
	}
	if !ok {
		t.Error("correct password rejected")
	}

	ok, err = CheckPassword("wrong password", hash)
	if err != nil {
		t.Fatalf("CheckPassword: %v", err)
	}
	if ok {
		t.Error("wrong password accepted")
	}
}

func TestHashIsSalted(t *testing.T) {
	h1, err := HashPassword("same input")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	h2, err := HashPassword("same input")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if h1 == h2 {
		t.Error("two hashes of the same input are identical; salt missing")
	}
}

func TestCheckPasswordMalformedHash(t *testing.T) {
	tests := []string{
		"",
		"not-a-hash",
		"$argon2id$v=19$m=19456,t=2,p=1$short", // 5 parts
		"$bcrypt$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
	}

	for _, hash := range tests {
		if _, err := CheckPassword("x", hash); err == nil {
			t.Errorf("CheckPassword(%q) expected error, got nil", hash)
		}
	}
}

func TestNeedsRehash(t *testing.T) {
	current, err := HashPassword("pw")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if NeedsRehash(current) {
		t.Error("freshly generated hash reported as stale")
	}

	// Old parameters must trigger a rehash.
	old := "$argon2id$v=19$m=4096,t=3,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaGhhc2hoYXNoaGFzaGhhc2g"
	if !NeedsRehash(old) {
		t.Error("hash with old parameters not reported as stale")
	}
	if !NeedsRehash("garbage") {
		t.Error("malformed hash not reported as stale")
	}
}
