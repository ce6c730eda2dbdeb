package password

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestArgon2idRoundTrip(t *testing.T) {
	hash, err := HashArgon2id("correct horse 1")
	if err != nil {
		t.Fatalf("HashArgon2id: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Fatalf("hash = %q, want PHC argon2id encoding", hash)
	}
	ok, err := VerifyArgon2id(hash, "correct horse 1")
	if err != nil || !ok {
		t.Fatalf("verify correct password: ok=%v err=%v", ok, err)
	}
	ok, err = VerifyArgon2id(hash, "wrong horse 1")
	if err != nil {
		t.Fatalf("verify wrong password: %v", err)
	}
	if ok {
		t.Fatal("wrong password verified")
	}
}

func TestVerifyArgon2idRejectsMalformed(t *testing.T) {
	if _, err := VerifyArgon2id("$2a$10$notargon", "pw"); err == nil {
		t.Fatal("expected error for non-argon2id hash")
	}
}

func TestBcryptDetectionAndVerify(t *testing.T) {
	legacy, err := bcrypt.GenerateFromPassword([]byte("legacy pass 9"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt generate: %v", err)
	}
	if !IsBcryptHash(string(legacy)) {
		t.Fatal("bcrypt hash not detected")
	}
	argon, _ := HashArgon2id("modern pass 9")
	if IsBcryptHash(argon) {
		t.Fatal("argon2id hash misdetected as bcrypt")
	}
	ok, err := VerifyBcrypt(string(legacy), "legacy pass 9")
	if err != nil || !ok {
		t.Fatalf("bcrypt verify: ok=%v err=%v", ok, err)
	}
}

func TestValidatePolicy(t *testing.T) {
	cases := []struct {
		pw string
		ok bool
	}{
		{"short1", false},
		{"onlyletters", false},
		{"12345678", false},
		{"taxes2026", true},
		{"Str0ng enough", true},
	}
	for _, tc := range cases {
		err := Validate(tc.pw)
		if tc.ok && err != nil {
			t.Errorf("Validate(%q) = %v, want nil", tc.pw, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("Validate(%q) = nil, want error", tc.pw)
		}
	}
}
