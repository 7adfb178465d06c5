package authcore

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/kv"
	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/password"
)

var errTest = errors.New("backend exploded")

func TestLockedErrorMessage(t *testing.T) {
	tests := []struct {
		retry time.Duration
		want  string
	}{
		{30 * time.Minute, "Too many failed attempts. Try again in 30 minutes."},
		{29*time.Minute + time.Second, "Too many failed attempts. Try again in 30 minutes."},
		{45 * time.Second, "Too many failed attempts. Try again in 1 minute."},
	}
	for _, tc := range tests {
		err := &LockedError{RetryAfter: tc.retry}
		if got := err.Message(); got != tc.want {
			t.Fatalf("Message(%v) = %q, want %q", tc.retry, got, tc.want)
		}
		if !errors.Is(err, ErrAccountLocked) {
			t.Fatal("LockedError must match ErrAccountLocked")
		}
		if UserMessage(err) != tc.want {
			t.Fatalf("UserMessage = %q", UserMessage(err))
		}
	}
}

func TestPasswordPolicyErrorMessages(t *testing.T) {
	err := &PasswordPolicyError{Violations: []password.Violation{password.ViolationTooShort, password.ViolationNoDigit}}
	if !errors.Is(err, ErrWeakPassword) {
		t.Fatal("PasswordPolicyError must match ErrWeakPassword")
	}
	msgs := err.Messages()
	if len(msgs) != 2 || msgs[0] != "Password must be at least 12 characters long" {
		t.Fatalf("unexpected messages %v", msgs)
	}
	if UserMessage(err) != msgs[0] {
		t.Fatalf("UserMessage = %q", UserMessage(err))
	}
}

func TestUserMessageFallbacks(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrInvalidCredentials, "Invalid email or password"},
		{ErrEmailExists, "An account with this email already exists"},
		{&FieldError{Kind: ErrInvalidUsername, Reason: "Username is too short"}, "Username is too short"},
		{&FieldError{Kind: ErrInvalidUsername}, "Please choose a different username"},
		{fmt.Errorf("%w: %w", ErrRegistrationFailed, mapInternalError(errTest)), "Storage is temporarily unavailable. Please try again."},
		{errTest, "Something went wrong. Please try again."},
	}
	for _, tc := range tests {
		if got := UserMessage(tc.err); got != tc.want {
			t.Fatalf("UserMessage(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestMapInternalError(t *testing.T) {
	if mapInternalError(nil) != nil {
		t.Fatal("nil must stay nil")
	}
	for _, err := range []error{ErrDecryption, ErrCryptoUnavailable, context.Canceled} {
		if got := mapInternalError(err); got != err {
			t.Fatalf("expected %v to pass through, got %v", err, got)
		}
	}

	got := mapInternalError(fmt.Errorf("redis: %w", kv.ErrUnavailable))
	if !errors.Is(got, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", got)
	}
}

type failingStore struct {
	kv.Store
	fail bool
}

func (s *failingStore) Get(ctx context.Context, key string) ([]byte, error) {
	if s.fail {
		return nil, kv.ErrUnavailable
	}
	return s.Store.Get(ctx, key)
}

func TestStorageFailureSurfacesAsFatal(t *testing.T) {
	store := &failingStore{Store: kv.NewMemory()}
	engine, err := New().WithConfig(TestConfig()).WithStore(store).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer engine.Close()

	store.fail = true
	_, err = engine.Login(context.Background(), testEmail, testPassword, "")
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
	if errors.Is(err, ErrInvalidCredentials) {
		t.Fatal("storage failure must not look like bad credentials")
	}

	_, err = engine.Register(context.Background(), "b@x.com", testPassword, "Bea")
	if !errors.Is(err, ErrRegistrationFailed) || !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected wrapped registration failure, got %v", err)
	}

	// Reset requests never reveal failures.
	if err := engine.RequestPasswordReset(context.Background(), testEmail); err != nil {
		t.Fatalf("expected nil from reset request, got %v", err)
	}
}

func TestTamperedStoreReportsDecryption(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(t)
	ctx := context.Background()

	raw, _ := env.store.Get(ctx, "app_credentials")
	raw[len(raw)-1] ^= 0xff
	if err := env.store.Set(ctx, "app_credentials", raw); err != nil {
		t.Fatalf("Set: %v", err)
	}

	_, err := env.engine.Login(ctx, testEmail, testPassword, "")
	if !errors.Is(err, ErrDecryption) {
		t.Fatalf("expected ErrDecryption, got %v", err)
	}
}
