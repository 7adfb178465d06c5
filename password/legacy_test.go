package password

import (
	"errors"
	"testing"

	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/internal"
	"pgregory.net/rapid"
)

func TestDetect(t *testing.T) {
	hasher, err := NewArgon2(cheapConfig())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}
	phc, err := hasher.Hash("Str0ng!Pass1234")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	cases := []struct {
		stored string
		want   Format
	}{
		{phc, FormatArgon2id},
		{LegacySalted("a1b2c3", "pw"), FormatSaltedSHA256},
		{internal.SHA256HexString("pw"), FormatSHA256},
		{"plain", FormatUnknown},
		{"salt:nothex", FormatUnknown},
		{"", FormatUnknown},
	}
	for _, tc := range cases {
		if got := Detect(tc.stored); got != tc.want {
			t.Fatalf("Detect(%q) = %v, want %v", tc.stored, got, tc.want)
		}
	}
}

func TestCheckLegacySalted(t *testing.T) {
	hasher, err := NewArgon2(cheapConfig())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}
	stored := LegacySalted("0f1e2d3c4b5a6978", "Str0ng!Pass1234")

	res, err := hasher.Check("Str0ng!Pass1234", stored)
	if err != nil {
		t.Fatalf("Check error: %v", err)
	}
	if !res.Match || !res.Rehash || res.Format != FormatSaltedSHA256 {
		t.Fatalf("unexpected result: %+v", res)
	}

	res, err = hasher.Check("wrong", stored)
	if err != nil {
		t.Fatalf("Check error: %v", err)
	}
	if res.Match || res.Rehash {
		t.Fatalf("wrong password must not match: %+v", res)
	}
}

func TestCheckLegacyUnsalted(t *testing.T) {
	hasher, err := NewArgon2(cheapConfig())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}
	stored := internal.SHA256HexString("Str0ng!Pass1234")

	res, err := hasher.Check("Str0ng!Pass1234", stored)
	if err != nil {
		t.Fatalf("Check error: %v", err)
	}
	if !res.Match || !res.Rehash || res.Format != FormatSHA256 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestCheckArgonUpgrade(t *testing.T) {
	old, err := NewArgon2(cheapConfig())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}
	stored, err := old.Hash("Str0ng!Pass1234")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	res, err := old.Check("Str0ng!Pass1234", stored)
	if err != nil || !res.Match || res.Rehash {
		t.Fatalf("same config: res=%+v err=%v", res, err)
	}

	cfg := cheapConfig()
	cfg.Time = 2
	stronger, err := NewArgon2(cfg)
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}
	res, err = stronger.Check("Str0ng!Pass1234", stored)
	if err != nil || !res.Match || !res.Rehash {
		t.Fatalf("raised config: res=%+v err=%v", res, err)
	}
}

func TestCheckUnknownFormat(t *testing.T) {
	hasher, err := NewArgon2(cheapConfig())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}
	if _, err := hasher.Check("pw", "garbage"); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestHashRoundTripPropertyLegacy(t *testing.T) {
	hasher, err := NewArgon2(cheapConfig())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}

	rapid.Check(t, func(t *rapid.T) {
		pw := rapid.StringN(1, 40, 160).Draw(t, "password")
		other := rapid.StringN(1, 40, 160).Draw(t, "other")

		hash, err := hasher.Hash(pw)
		if err != nil {
			t.Fatalf("Hash error: %v", err)
		}
		ok, err := hasher.Verify(pw, hash)
		if err != nil || !ok {
			t.Fatalf("round trip failed: ok=%v err=%v", ok, err)
		}
		if other != pw {
			ok, err := hasher.Verify(other, hash)
			if err != nil || ok {
				t.Fatalf("different password verified: ok=%v err=%v", ok, err)
			}
		}
	})
}
