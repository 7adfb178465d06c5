package flows

import (
	"context"
	"errors"
	"testing"
	"time"
)

var (
	errNotReady     = errors.New("not ready")
	errInvalidCreds = errors.New("invalid credentials")
	errInvalidMFA   = errors.New("invalid mfa")
	errLocked       = errors.New("locked")
	errExists       = errors.New("exists")
	errRegFailed    = errors.New("registration failed")
	errInvalidToken = errors.New("invalid or expired token")
	errWeak         = errors.New("weak password")
	errStorage      = errors.New("storage down")
)

type loginFake struct {
	creds      map[string]*CredentialRecord
	locked     bool
	failures   int
	cleared    int
	checked    []string
	sleeps     []time.Duration
	mfa        map[string]string
	sessions   int
	updated    map[string]string
	rehash     bool
	auditNames []string
}

func newLoginFake() *loginFake {
	return &loginFake{
		creds: map[string]*CredentialRecord{
			"ada@example.com": {UserID: "u1", Email: "ada@example.com", Username: "ada", PasswordHash: "hash:right"},
		},
		mfa:     map[string]string{},
		updated: map[string]string{},
	}
}

func (f *loginFake) deps() LoginDeps {
	return LoginDeps{
		LockedDelay: time.Second,
		MinDelay:    500 * time.Millisecond,
		MaxDelay:    time.Second,
		DummyHash:   "hash:dummy",
		LimiterStatus: func(context.Context, string) (LockStatus, error) {
			return LockStatus{Locked: f.locked, RetryAfter: 30 * time.Minute}, nil
		},
		RecordFailure: func(context.Context, string) error {
			f.failures++
			return nil
		},
		ClearFailures: func(context.Context, string) error {
			f.cleared++
			return nil
		},
		NewLockedError: func(time.Duration) error { return errLocked },
		FindCredential: func(_ context.Context, email string) (*CredentialRecord, error) {
			return f.creds[email], nil
		},
		CheckPassword: func(password, stored string) (PasswordCheck, error) {
			f.checked = append(f.checked, stored)
			return PasswordCheck{Match: stored == "hash:"+password, Rehash: f.rehash, Format: "sha256"}, nil
		},
		HashPassword: func(p string) (string, error) { return "new:" + p, nil },
		UpdatePasswordHash: func(_ context.Context, email, hash string) error {
			f.updated[email] = hash
			return nil
		},
		MFAEnabled: func(_ context.Context, userID string) (bool, error) {
			_, ok := f.mfa[userID]
			return ok, nil
		},
		VerifyMFA: func(_ context.Context, userID, code string) (string, error) {
			if f.mfa[userID] == code {
				return "totp", nil
			}
			return "", nil
		},
		CreateSession: func(context.Context, string) (string, error) {
			f.sessions++
			return "sid-1", nil
		},
		RandomDelay: func(min, _ time.Duration) (time.Duration, error) { return min, nil },
		Sleep: func(_ context.Context, d time.Duration) error {
			f.sleeps = append(f.sleeps, d)
			return nil
		},
		EmitAudit: func(_ context.Context, event string, _ bool, _, _ string, _ error, meta func() map[string]string) {
			if meta != nil {
				_ = meta()
			}
			f.auditNames = append(f.auditNames, event)
		},
		Events: LoginEvents{
			LoginSuccess: "login_success",
			LoginFailure: "login_failure",
			LoginLocked:  "login_locked",
			MFARequired:  "mfa_required",
			MFAFailure:   "mfa_failure",
			MFASuccess:   "mfa_success",
		},
		Errors: LoginErrors{
			EngineNotReady:     errNotReady,
			InvalidCredentials: errInvalidCreds,
			InvalidMFACode:     errInvalidMFA,
		},
	}
}

func TestRunLoginSuccess(t *testing.T) {
	f := newLoginFake()
	res, err := RunLogin(context.Background(), LoginRequest{Email: "ada@example.com", Password: "right"}, f.deps())
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.UserID != "u1" || res.SessionID != "sid-1" || res.Username != "ada" || res.RequiresMFA {
		t.Fatalf("unexpected result %+v", res)
	}
	if f.cleared != 1 || f.failures != 0 || f.sessions != 1 {
		t.Fatalf("cleared=%d failures=%d sessions=%d", f.cleared, f.failures, f.sessions)
	}
	if len(f.sleeps) != 1 || f.sleeps[0] != 500*time.Millisecond {
		t.Fatalf("expected one post-verify delay, got %v", f.sleeps)
	}
}

func TestRunLoginUnknownEmailUsesDummyHash(t *testing.T) {
	f := newLoginFake()
	_, errUnknown := RunLogin(context.Background(), LoginRequest{Email: "nobody@example.com", Password: "x"}, f.deps())
	if !errors.Is(errUnknown, errInvalidCreds) {
		t.Fatalf("expected invalid credentials, got %v", errUnknown)
	}
	if len(f.checked) != 1 || f.checked[0] != "hash:dummy" {
		t.Fatalf("expected dummy hash verification, got %v", f.checked)
	}

	_, errWrong := RunLogin(context.Background(), LoginRequest{Email: "ada@example.com", Password: "wrong"}, f.deps())
	if !errors.Is(errWrong, errInvalidCreds) {
		t.Fatalf("expected invalid credentials, got %v", errWrong)
	}
	if errUnknown != errWrong {
		t.Fatalf("unknown email and wrong password must return the same error")
	}
	if len(f.sleeps) != 2 || f.sleeps[0] != f.sleeps[1] {
		t.Fatalf("both paths must sleep the same delay, got %v", f.sleeps)
	}
	if f.failures != 2 {
		t.Fatalf("expected 2 recorded failures, got %d", f.failures)
	}
}

func TestRunLoginLockedSkipsVerification(t *testing.T) {
	f := newLoginFake()
	f.locked = true
	_, err := RunLogin(context.Background(), LoginRequest{Email: "ada@example.com", Password: "right"}, f.deps())
	if !errors.Is(err, errLocked) {
		t.Fatalf("expected locked error, got %v", err)
	}
	if len(f.checked) != 0 {
		t.Fatalf("locked login must not verify the password")
	}
	if len(f.sleeps) != 1 || f.sleeps[0] != time.Second {
		t.Fatalf("expected locked delay, got %v", f.sleeps)
	}
	if f.failures != 0 {
		t.Fatalf("locked attempt must not be counted")
	}
}

func TestRunLoginMFA(t *testing.T) {
	f := newLoginFake()
	f.mfa["u1"] = "123456"

	res, err := RunLogin(context.Background(), LoginRequest{Email: "ada@example.com", Password: "right"}, f.deps())
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !res.RequiresMFA || res.SessionID != "" {
		t.Fatalf("expected MFA continuation, got %+v", res)
	}
	if f.sessions != 0 || f.failures != 0 {
		t.Fatalf("MFA continuation must not create sessions or record failures")
	}
	if f.cleared != 1 {
		t.Fatalf("correct password must clear the limiter, cleared=%d", f.cleared)
	}

	_, err = RunLogin(context.Background(), LoginRequest{Email: "ada@example.com", Password: "right", MFACode: "000000"}, f.deps())
	if !errors.Is(err, errInvalidMFA) {
		t.Fatalf("expected invalid MFA, got %v", err)
	}
	if f.failures != 1 {
		t.Fatalf("wrong MFA code must be recorded, got %d", f.failures)
	}

	res, err = RunLogin(context.Background(), LoginRequest{Email: "ada@example.com", Password: "right", MFACode: "123456"}, f.deps())
	if err != nil {
		t.Fatalf("login with code: %v", err)
	}
	if res.SessionID == "" || res.MFAMethod != "totp" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestRunLoginMigratesHash(t *testing.T) {
	f := newLoginFake()
	f.rehash = true
	if _, err := RunLogin(context.Background(), LoginRequest{Email: "ada@example.com", Password: "right"}, f.deps()); err != nil {
		t.Fatalf("login: %v", err)
	}
	if f.updated["ada@example.com"] != "new:right" {
		t.Fatalf("expected migrated hash, got %q", f.updated["ada@example.com"])
	}
}

func TestRunLoginStorageFailureIsMapped(t *testing.T) {
	f := newLoginFake()
	deps := f.deps()
	deps.FindCredential = func(context.Context, string) (*CredentialRecord, error) {
		return nil, errors.New("disk")
	}
	deps.MapError = func(error) error { return errStorage }
	_, err := RunLogin(context.Background(), LoginRequest{Email: "ada@example.com", Password: "right"}, deps)
	if !errors.Is(err, errStorage) {
		t.Fatalf("expected mapped storage error, got %v", err)
	}
}

func TestRunLoginNotReady(t *testing.T) {
	_, err := RunLogin(context.Background(), LoginRequest{}, LoginDeps{Errors: LoginErrors{EngineNotReady: errNotReady}})
	if !errors.Is(err, errNotReady) {
		t.Fatalf("expected not ready, got %v", err)
	}
}

func registerDeps(existing map[string]bool) RegisterDeps {
	return RegisterDeps{
		ValidateEmail: func(e string) error {
			if e == "" {
				return errors.New("bad email")
			}
			return nil
		},
		ValidateUsername: func(string) error { return nil },
		ValidatePassword: func(p string) error {
			if len(p) < 12 {
				return errWeak
			}
			return nil
		},
		EmailExists: func(_ context.Context, e string) (bool, error) { return existing[e], nil },
		HashPassword: func(p string) (string, error) { return "h:" + p, nil },
		CreateCredential: func(_ context.Context, e, _, _ string) (string, error) {
			existing[e] = true
			return "uid-" + e, nil
		},
		Errors: RegisterErrors{
			EngineNotReady:     errNotReady,
			EmailExists:        errExists,
			RegistrationFailed: errRegFailed,
		},
	}
}

func TestRunRegister(t *testing.T) {
	existing := map[string]bool{}
	deps := registerDeps(existing)

	res, err := RunRegister(context.Background(), RegisterRequest{Email: "a@b.co", Password: "Str0ng!Pass1234", Username: "ada"}, deps)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if res.UserID != "uid-a@b.co" {
		t.Fatalf("unexpected user id %q", res.UserID)
	}

	_, err = RunRegister(context.Background(), RegisterRequest{Email: "a@b.co", Password: "Str0ng!Pass1234", Username: "ada"}, deps)
	if !errors.Is(err, errExists) {
		t.Fatalf("expected duplicate, got %v", err)
	}

	_, err = RunRegister(context.Background(), RegisterRequest{Email: "c@b.co", Password: "short", Username: "ada"}, deps)
	if !errors.Is(err, errWeak) {
		t.Fatalf("expected weak password, got %v", err)
	}
}

func TestRunRegisterWrapsFatalCause(t *testing.T) {
	deps := registerDeps(map[string]bool{})
	deps.CreateCredential = func(context.Context, string, string, string) (string, error) {
		return "", errors.New("disk")
	}
	deps.MapError = func(error) error { return errStorage }

	_, err := RunRegister(context.Background(), RegisterRequest{Email: "a@b.co", Password: "Str0ng!Pass1234", Username: "ada"}, deps)
	if !errors.Is(err, errRegFailed) || !errors.Is(err, errStorage) {
		t.Fatalf("expected registration failure wrapping storage error, got %v", err)
	}
}

type resetFake struct {
	locked    bool
	attempts  int
	tokens    map[string]string
	delivered []string
	passwords map[string]string
	revoked   []string
	reasons   []string
}

func (f *resetFake) deps() PasswordResetDeps {
	errExpired := errors.New("expired")
	errMissing := errors.New("missing")
	return PasswordResetDeps{
		TokenTTL:       15 * time.Minute,
		RevokeSessions: true,
		LimiterStatus: func(context.Context, string) (LockStatus, error) {
			return LockStatus{Locked: f.locked}, nil
		},
		RecordAttempt: func(context.Context, string) error {
			f.attempts++
			return nil
		},
		ClearResetAttempts: func(context.Context, string) error { return nil },
		ClearLoginAttempts: func(context.Context, string) error { return nil },
		FindCredential: func(_ context.Context, email string) (*CredentialRecord, error) {
			if email != "ada@example.com" {
				return nil, nil
			}
			return &CredentialRecord{UserID: "u1", Email: email, Username: "ada"}, nil
		},
		NewToken: func() (string, error) { return "tok", nil },
		SaveToken: func(_ context.Context, email, _, token string, _ time.Duration) error {
			f.tokens[email] = token
			return nil
		},
		VerifyToken: func(_ context.Context, email, token string) (string, error) {
			stored, ok := f.tokens[email]
			if !ok {
				return "", errMissing
			}
			if token == "old" {
				return "", errExpired
			}
			if stored != token {
				return "", errors.New("mismatch")
			}
			return "u1", nil
		},
		ConsumeToken: func(_ context.Context, email, token string) (string, error) {
			if f.tokens[email] != token {
				return "", errMissing
			}
			delete(f.tokens, email)
			return "u1", nil
		},
		TokenFailure: func(err error) string {
			switch {
			case errors.Is(err, errMissing):
				return "not_found"
			case errors.Is(err, errExpired):
				return "expired"
			default:
				return "mismatch"
			}
		},
		Deliver: func(_ context.Context, email, _, token string, _ time.Time) error {
			f.delivered = append(f.delivered, email+"="+token)
			return nil
		},
		ValidatePassword: func(p string) error {
			if len(p) < 12 {
				return errWeak
			}
			return nil
		},
		HashPassword: func(p string) (string, error) { return "h:" + p, nil },
		UpdatePasswordHash: func(_ context.Context, email, hash string) error {
			f.passwords[email] = hash
			return nil
		},
		RevokeAllSessions: func(_ context.Context, userID string) error {
			f.revoked = append(f.revoked, userID)
			return nil
		},
		EmitAudit: func(_ context.Context, _ string, _ bool, _, _ string, _ error, meta func() map[string]string) {
			if meta == nil {
				return
			}
			if r, ok := meta()["reason"]; ok {
				f.reasons = append(f.reasons, r)
			}
		},
		Errors: PasswordResetErrors{
			EngineNotReady:        errNotReady,
			InvalidOrExpiredToken: errInvalidToken,
		},
	}
}

func newResetFake() *resetFake {
	return &resetFake{tokens: map[string]string{}, passwords: map[string]string{}}
}

func TestRunRequestPasswordReset(t *testing.T) {
	f := newResetFake()

	issued, err := RunRequestPasswordReset(context.Background(), "ada@example.com", f.deps())
	if err != nil || !issued {
		t.Fatalf("expected token issued, got issued=%v err=%v", issued, err)
	}
	if len(f.delivered) != 1 || f.delivered[0] != "ada@example.com=tok" {
		t.Fatalf("unexpected deliveries %v", f.delivered)
	}

	issued, err = RunRequestPasswordReset(context.Background(), "nobody@example.com", f.deps())
	if err != nil || issued {
		t.Fatalf("unknown email must not issue: issued=%v err=%v", issued, err)
	}
	if f.attempts != 2 {
		t.Fatalf("unknown email must still be counted, attempts=%d", f.attempts)
	}

	f.locked = true
	issued, err = RunRequestPasswordReset(context.Background(), "ada@example.com", f.deps())
	if err != nil || issued {
		t.Fatalf("locked request must be skipped silently: issued=%v err=%v", issued, err)
	}
	if f.attempts != 2 {
		t.Fatalf("locked request must not be counted, attempts=%d", f.attempts)
	}
}

func TestRunResetPassword(t *testing.T) {
	f := newResetFake()
	f.tokens["ada@example.com"] = "tok"

	if err := RunResetPassword(context.Background(), "ada@example.com", "tok", "short", f.deps()); !errors.Is(err, errWeak) {
		t.Fatalf("expected weak password, got %v", err)
	}
	if _, ok := f.tokens["ada@example.com"]; !ok {
		t.Fatalf("weak password must not consume the token")
	}

	if err := RunResetPassword(context.Background(), "ada@example.com", "tok", "N3w!Passphrase99", f.deps()); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if f.passwords["ada@example.com"] != "h:N3w!Passphrase99" {
		t.Fatalf("password not updated")
	}
	if len(f.revoked) != 1 || f.revoked[0] != "u1" {
		t.Fatalf("expected sessions revoked, got %v", f.revoked)
	}

	err := RunResetPassword(context.Background(), "ada@example.com", "tok", "N3w!Passphrase99", f.deps())
	if !errors.Is(err, errInvalidToken) {
		t.Fatalf("token must be single use, got %v", err)
	}
}

func TestRunVerifyResetTokenReasons(t *testing.T) {
	f := newResetFake()
	f.tokens["ada@example.com"] = "tok"

	for _, token := range []string{"old", "bad"} {
		if err := RunVerifyResetToken(context.Background(), "ada@example.com", token, f.deps()); !errors.Is(err, errInvalidToken) {
			t.Fatalf("token %q: expected invalid token, got %v", token, err)
		}
	}
	if err := RunVerifyResetToken(context.Background(), "x@example.com", "tok", f.deps()); !errors.Is(err, errInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
	want := []string{"expired", "mismatch", "not_found"}
	if len(f.reasons) != len(want) {
		t.Fatalf("reasons = %v", f.reasons)
	}
	for i := range want {
		if f.reasons[i] != want[i] {
			t.Fatalf("reasons = %v, want %v", f.reasons, want)
		}
	}

	if err := RunVerifyResetToken(context.Background(), "ada@example.com", "tok", f.deps()); err != nil {
		t.Fatalf("valid token: %v", err)
	}
}
