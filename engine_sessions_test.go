package authcore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func withSessionTokens(c *Config) {
	c.SessionToken.Enabled = true
	c.SessionToken.SigningMethod = "hs256"
	c.SessionToken.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	c.SessionToken.Issuer = "studentopia"
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	uid := env.register(t)

	first, err := env.engine.Login(ctx, testEmail, testPassword, "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	env.clock.Advance(time.Minute)
	second, err := env.engine.Login(ctx, testEmail, testPassword, "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	list, err := env.engine.ListSessions(ctx, uid)
	if err != nil || len(list) != 2 {
		t.Fatalf("ListSessions = %d, %v", len(list), err)
	}
	if list[0].DeviceID != list[1].DeviceID {
		t.Fatal("sessions on one install must share the device id")
	}

	env.clock.Advance(time.Minute)
	if err := env.engine.UpdateLastActive(ctx, uid); err != nil {
		t.Fatalf("UpdateLastActive: %v", err)
	}
	list, _ = env.engine.ListSessions(ctx, uid)
	if !list[1].LastActive.Equal(env.clock.Now()) {
		t.Fatalf("LastActive not bumped: %v", list[1].LastActive)
	}

	n, err := env.engine.RevokeAllOtherSessions(ctx, uid)
	if err != nil || n != 1 {
		t.Fatalf("RevokeAllOtherSessions = %d, %v", n, err)
	}
	if ok, _ := env.engine.IsSessionValid(ctx, uid, first.SessionID); ok {
		t.Fatal("other session still valid")
	}
	if ok, _ := env.engine.IsSessionValid(ctx, uid, second.SessionID); !ok {
		t.Fatal("current session revoked")
	}

	if err := env.engine.RevokeSession(ctx, uid, "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if err := env.engine.RevokeSession(ctx, uid, second.SessionID); err != nil {
		t.Fatalf("RevokeSession: %v", err)
	}
	if cur, _ := env.engine.CurrentSessionID(ctx); cur != "" {
		t.Fatalf("current pointer kept after revoke: %q", cur)
	}
}

func TestSessionExpiresAfterNinetyDays(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	uid := env.register(t)

	res, err := env.engine.Login(ctx, testEmail, testPassword, "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	env.clock.Advance(90*24*time.Hour + time.Second)
	ok, err := env.engine.IsSessionValid(ctx, uid, res.SessionID)
	if err != nil || ok {
		t.Fatalf("expected expired session, ok=%v err=%v", ok, err)
	}
	if got := env.engine.Metrics().Value(MetricSessionExpired); got != 1 {
		t.Fatalf("expected session_expired=1, got %d", got)
	}
	if list, _ := env.engine.ListSessions(ctx, uid); len(list) != 0 {
		t.Fatalf("expired session listed: %v", list)
	}
}

func TestSessionCapEvictsOldest(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.Session.MaxSessionsPerUser = 2 })
	ctx := context.Background()
	uid := env.register(t)

	var ids []string
	for i := 0; i < 3; i++ {
		res, err := env.engine.Login(ctx, testEmail, testPassword, "")
		if err != nil {
			t.Fatalf("Login %d: %v", i, err)
		}
		ids = append(ids, res.SessionID)
		env.clock.Advance(time.Second)
	}

	if ok, _ := env.engine.IsSessionValid(ctx, uid, ids[0]); ok {
		t.Fatal("oldest session survived the cap")
	}
	if ok, _ := env.engine.IsSessionValid(ctx, uid, ids[2]); !ok {
		t.Fatal("newest session evicted")
	}
}

func TestDeviceIDPersists(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	first, err := env.engine.InitializeDeviceID(ctx)
	if err != nil || len(first) != 32 {
		t.Fatalf("InitializeDeviceID = %q, %v", first, err)
	}
	second, _ := env.engine.InitializeDeviceID(ctx)
	if first != second {
		t.Fatalf("device id changed: %q -> %q", first, second)
	}
}

func TestSessionTokenRoundTrip(t *testing.T) {
	env := newTestEnv(t, withSessionTokens)
	ctx := context.Background()
	uid := env.register(t)

	res, err := env.engine.Login(ctx, testEmail, testPassword, "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	token, err := env.engine.IssueSessionToken(ctx, uid, res.SessionID)
	if err != nil {
		t.Fatalf("IssueSessionToken: %v", err)
	}

	claims, err := env.engine.VerifySessionToken(ctx, token)
	if err != nil {
		t.Fatalf("VerifySessionToken: %v", err)
	}
	if claims.UserID != uid || claims.SessionID != res.SessionID || claims.DeviceID != res.Session.DeviceID {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if !claims.ExpiresAt.Equal(env.clock.Now().Add(15 * time.Minute).Truncate(time.Second)) {
		t.Fatalf("unexpected expiry %v", claims.ExpiresAt)
	}

	if err := env.engine.RevokeSession(ctx, uid, res.SessionID); err != nil {
		t.Fatalf("RevokeSession: %v", err)
	}
	if _, err := env.engine.VerifySessionToken(ctx, token); !errors.Is(err, ErrSessionTokenInvalid) {
		t.Fatalf("expected revoked session to invalidate token, got %v", err)
	}
}

func TestSessionTokenRejectsTamperingAndExpiry(t *testing.T) {
	env := newTestEnv(t, withSessionTokens)
	ctx := context.Background()
	uid := env.register(t)

	res, _ := env.engine.Login(ctx, testEmail, testPassword, "")
	token, err := env.engine.IssueSessionToken(ctx, uid, res.SessionID)
	if err != nil {
		t.Fatalf("IssueSessionToken: %v", err)
	}

	tampered := token[:len(token)-2] + "xx"
	if _, err := env.engine.VerifySessionToken(ctx, tampered); !errors.Is(err, ErrSessionTokenInvalid) {
		t.Fatalf("expected tampered token rejected, got %v", err)
	}

	env.clock.Advance(16 * time.Minute)
	if _, err := env.engine.VerifySessionToken(ctx, token); !errors.Is(err, ErrSessionTokenInvalid) {
		t.Fatalf("expected expired token rejected, got %v", err)
	}
	if got := env.engine.Metrics().Value(MetricSessionTokenRejected); got != 2 {
		t.Fatalf("expected 2 rejections, got %d", got)
	}
}

func TestSessionTokenDisabled(t *testing.T) {
	env := newTestEnv(t, nil)
	if _, err := env.engine.IssueSessionToken(context.Background(), "u", "s"); !errors.Is(err, ErrSessionTokenDisabled) {
		t.Fatalf("expected ErrSessionTokenDisabled, got %v", err)
	}
	if _, err := env.engine.VerifySessionToken(context.Background(), "x.y.z"); !errors.Is(err, ErrSessionTokenDisabled) {
		t.Fatalf("expected ErrSessionTokenDisabled, got %v", err)
	}
}

func TestIssueSessionTokenUnknownSession(t *testing.T) {
	env := newTestEnv(t, withSessionTokens)
	uid := env.register(t)

	if _, err := env.engine.IssueSessionToken(context.Background(), uid, "nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestMFAManagement(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	uid := env.register(t)

	if ok, _ := env.engine.IsMFAEnabled(ctx, uid); ok {
		t.Fatal("mfa enabled before enrollment")
	}
	if _, err := env.engine.RemainingBackupCodes(ctx, uid); !errors.Is(err, ErrMFANotEnabled) {
		t.Fatalf("expected ErrMFANotEnabled, got %v", err)
	}

	enrollment, err := env.engine.EnableMFA(ctx, uid, testEmail)
	if err != nil {
		t.Fatalf("EnableMFA: %v", err)
	}
	if len(enrollment.QRCodeData) == 0 || enrollment.QRCodeData[:15] != "otpauth://totp/" {
		t.Fatalf("unexpected provisioning uri %q", enrollment.QRCodeData)
	}
	if !env.engine.VerifyMFACode(ctx, uid, totpNow(t, env, enrollment)) {
		t.Fatal("current TOTP code rejected")
	}
	if env.engine.VerifyMFACode(ctx, uid, "12345") {
		t.Fatal("malformed code accepted")
	}

	codes, err := env.engine.RegenerateBackupCodes(ctx, uid)
	if err != nil || len(codes) != 10 {
		t.Fatalf("RegenerateBackupCodes = %d, %v", len(codes), err)
	}
	if env.engine.VerifyMFACode(ctx, uid, enrollment.BackupCodes[0]) {
		t.Fatal("old backup code accepted after regeneration")
	}
	if !env.engine.VerifyMFACode(ctx, uid, codes[0]) {
		t.Fatal("new backup code rejected")
	}

	if err := env.engine.DisableMFA(ctx, uid); err != nil {
		t.Fatalf("DisableMFA: %v", err)
	}
	if env.engine.VerifyMFACode(ctx, uid, codes[1]) {
		t.Fatal("code accepted after disable")
	}
	res, err := env.engine.Login(ctx, testEmail, testPassword, "")
	if err != nil || res.RequiresMFA {
		t.Fatalf("login after disable: %+v, %v", res, err)
	}
}

func TestTOTPSkewWindow(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	uid := env.register(t)

	enrollment, _ := env.engine.EnableMFA(ctx, uid, testEmail)
	code := totpNow(t, env, enrollment)

	env.clock.Advance(30 * time.Second)
	if !env.engine.VerifyMFACode(ctx, uid, code) {
		t.Fatal("previous step rejected within skew")
	}
	env.clock.Advance(60 * time.Second)
	if env.engine.VerifyMFACode(ctx, uid, code) {
		t.Fatal("code accepted outside skew window")
	}
}
