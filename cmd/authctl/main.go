// Command authctl drives the auth core against a local or shared store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	authcore "github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000"
	"github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/notify"
	"github.com/rs/zerolog"
)

const usage = `usage: authctl [flags] <command> [args]

commands:
  register <email> <username>     create an account (prompts for password)
  login <email> [mfa-code]        sign in and create a session
  reset-request <email>           send a password reset token
  reset <email> <token>           set a new password (prompts)
  mfa-enable <user-id> <email>    enroll TOTP and print backup codes
  mfa-disable <user-id>           remove the second factor
  sessions <user-id>              list active sessions
  revoke-others <user-id>         sign out every other session
  logout-all <user-id>            sign out every session
  device-id                       print this install's device id
  report                          print the security posture

flags:
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("authctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "optional config file (yaml, toml or json)")
	backend := fs.String("backend", "", "sqlite, redis, miniredis or tiered (overrides config)")
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err == nil && *backend != "" {
		cfg.Backend = *backend
		err = cfg.validate()
	}
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 2
	}

	log := authcore.NewLogger(authcore.LogConfig{
		Level:       cfg.LogLevel,
		Environment: cfg.Environment,
		ServiceName: "authctl",
		Output:      stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	defer cancel()

	engine, cleanup, err := openEngine(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("engine setup failed")
		return 1
	}
	defer cleanup()

	c := &cli{engine: engine, in: stdin, out: stdout}
	if err := c.dispatch(ctx, fs.Arg(0), fs.Args()[1:]); err != nil {
		var ue usageError
		if errors.As(err, &ue) {
			fmt.Fprintln(stderr, err)
			return 2
		}
		fmt.Fprintln(stderr, authcore.UserMessage(err))
		log.Debug().Err(err).Str("command", fs.Arg(0)).Msg("command failed")
		return 1
	}
	return 0
}

func openEngine(ctx context.Context, cfg cliConfig, log zerolog.Logger) (*authcore.Engine, func(), error) {
	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}

	engineCfg := authcore.DefaultConfig()
	engineCfg.Security.ProductionMode = cfg.Production
	engineCfg.Account.CaseInsensitiveEmail = cfg.CaseInsensitiveEmail

	b := authcore.New().
		WithConfig(engineCfg).
		WithStore(store).
		WithLogger(log)

	if cfg.SESRegion != "" {
		sender, err := notify.NewSESNotifier(ctx, notify.SESConfig{
			Region: cfg.SESRegion,
			From:   cfg.SESFrom,
		})
		if err != nil {
			closeStore()
			return nil, nil, err
		}
		b = b.WithNotifier(sender)
	} else if !cfg.Production && cfg.Environment != "production" {
		b = b.WithNotifier(notify.LogNotifier{Logger: log.With().Str("component", "notify").Logger()})
	}

	engine, err := b.BuildContext(ctx)
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	return engine, func() {
		engine.Close()
		closeStore()
	}, nil
}
