package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	authcore "github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000"
	"golang.org/x/term"
)

type usageError string

func (e usageError) Error() string { return string(e) }

type cli struct {
	engine *authcore.Engine
	in     io.Reader
	out    io.Writer
	reader *bufio.Reader
}

func (c *cli) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "register":
		if len(args) != 2 {
			return usageError("usage: authctl register <email> <username>")
		}
		return c.register(ctx, args[0], args[1])
	case "login":
		if len(args) < 1 || len(args) > 2 {
			return usageError("usage: authctl login <email> [mfa-code]")
		}
		code := ""
		if len(args) == 2 {
			code = args[1]
		}
		return c.login(ctx, args[0], code)
	case "reset-request":
		if len(args) != 1 {
			return usageError("usage: authctl reset-request <email>")
		}
		if err := c.engine.RequestPasswordReset(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "If that email is registered, a reset code is on its way.")
		return nil
	case "reset":
		if len(args) != 2 {
			return usageError("usage: authctl reset <email> <token>")
		}
		return c.reset(ctx, args[0], args[1])
	case "mfa-enable":
		if len(args) != 2 {
			return usageError("usage: authctl mfa-enable <user-id> <email>")
		}
		return c.enableMFA(ctx, args[0], args[1])
	case "mfa-disable":
		if len(args) != 1 {
			return usageError("usage: authctl mfa-disable <user-id>")
		}
		if err := c.engine.DisableMFA(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "Two-factor authentication disabled.")
		return nil
	case "sessions":
		if len(args) != 1 {
			return usageError("usage: authctl sessions <user-id>")
		}
		return c.sessions(ctx, args[0])
	case "revoke-others":
		if len(args) != 1 {
			return usageError("usage: authctl revoke-others <user-id>")
		}
		n, err := c.engine.RevokeAllOtherSessions(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Signed out %d other session(s).\n", n)
		return nil
	case "logout-all":
		if len(args) != 1 {
			return usageError("usage: authctl logout-all <user-id>")
		}
		if err := c.engine.RevokeAllSessions(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "Signed out everywhere.")
		return nil
	case "device-id":
		id, err := c.engine.InitializeDeviceID(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, id)
		return nil
	case "report":
		return c.report()
	}
	return usageError(fmt.Sprintf("unknown command %q", cmd))
}

func (c *cli) register(ctx context.Context, email, username string) error {
	pw, err := c.readNewPassword()
	if err != nil {
		return err
	}
	res, err := c.engine.Register(ctx, email, pw, username)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Registered %s (user id %s).\n", res.Username, res.UserID)
	return nil
}

func (c *cli) login(ctx context.Context, email, code string) error {
	pw, err := c.readSecret("Password: ")
	if err != nil {
		return err
	}
	res, err := c.engine.Login(ctx, email, pw, code)
	if err != nil {
		return err
	}
	if res.RequiresMFA {
		fmt.Fprintln(c.out, "Two-factor code required. Run: authctl login <email> <code>")
		return nil
	}
	fmt.Fprintf(c.out, "Welcome back, %s. Session %s\n", res.Username, res.SessionID)
	if res.MFAMethod == "backup_code" {
		remaining, err := c.engine.RemainingBackupCodes(ctx, res.UserID)
		if err == nil {
			fmt.Fprintf(c.out, "Backup code used; %d left.\n", remaining)
		}
	}
	return nil
}

func (c *cli) reset(ctx context.Context, email, token string) error {
	if err := c.engine.VerifyResetToken(ctx, email, token); err != nil {
		return err
	}
	pw, err := c.readNewPassword()
	if err != nil {
		return err
	}
	if err := c.engine.ResetPassword(ctx, email, token, pw); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Password updated. Sign in again on every device.")
	return nil
}

func (c *cli) enableMFA(ctx context.Context, userID, email string) error {
	enrollment, err := c.engine.EnableMFA(ctx, userID, email)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Secret:  %s\n", enrollment.Secret)
	fmt.Fprintf(c.out, "URI:     %s\n", enrollment.QRCodeData)
	fmt.Fprintln(c.out, "Backup codes (shown once):")
	for _, code := range enrollment.BackupCodes {
		fmt.Fprintf(c.out, "  %s\n", code)
	}
	return nil
}

func (c *cli) sessions(ctx context.Context, userID string) error {
	list, err := c.engine.ListSessions(ctx, userID)
	if err != nil {
		return err
	}
	current, err := c.engine.CurrentSessionID(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(c.out, "No active sessions.")
		return nil
	}
	for _, s := range list {
		marker := " "
		if s.SessionID == current {
			marker = "*"
		}
		fmt.Fprintf(c.out, "%s %s  %-20s %-16s last active %s\n",
			marker, s.SessionID, s.DeviceName, s.Platform, s.LastActive.Format(time.RFC3339))
	}
	return nil
}

func (c *cli) report() error {
	r := c.engine.SecurityReport()
	fmt.Fprintf(c.out, "production mode:      %v\n", r.ProductionMode)
	fmt.Fprintf(c.out, "storage trust:        %s\n", r.StorageTrust)
	fmt.Fprintf(c.out, "login lockout:        %d attempts / %s\n", r.LoginMaxAttempts, r.LoginLockDuration)
	fmt.Fprintf(c.out, "reset lockout:        %d requests, token ttl %s\n", r.ResetMaxAttempts, r.ResetTokenTTL)
	fmt.Fprintf(c.out, "equalized login:      %v\n", r.EqualizedLogin)
	fmt.Fprintf(c.out, "mfa:                  %s, %d backup codes\n", r.MFAAlgorithm, r.BackupCodeCount)
	fmt.Fprintf(c.out, "session max age:      %s\n", r.SessionMaxAge)
	fmt.Fprintf(c.out, "session tokens:       %v\n", r.SessionTokenEnabled)
	return nil
}

func (c *cli) readNewPassword() (string, error) {
	pw, err := c.readSecret("New password: ")
	if err != nil {
		return "", err
	}
	if violations := c.engine.CheckPasswordStrength(pw); len(violations) > 0 {
		return "", &authcore.PasswordPolicyError{Violations: violations}
	}
	confirm, err := c.readSecret("Confirm password: ")
	if err != nil {
		return "", err
	}
	if pw != confirm {
		return "", usageError("passwords do not match")
	}
	return pw, nil
}

// readSecret prompts without echo on a terminal and reads a plain line
// otherwise, so scripts can pipe passwords in.
func (c *cli) readSecret(prompt string) (string, error) {
	if f, ok := c.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(c.out, prompt)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(c.out)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}

	if c.reader == nil {
		c.reader = bufio.NewReader(c.in)
	}
	line, err := c.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
