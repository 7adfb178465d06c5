package flows

import "context"

// Service is the flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Login.FindCredential != nil
}

func (s Service) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	return RunRegister(ctx, req, s.deps.Register)
}

func (s Service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	return RunLogin(ctx, req, s.deps.Login)
}

func (s Service) RequestPasswordReset(ctx context.Context, email string) (bool, error) {
	return RunRequestPasswordReset(ctx, email, s.deps.PasswordReset)
}

func (s Service) VerifyResetToken(ctx context.Context, email, token string) error {
	return RunVerifyResetToken(ctx, email, token, s.deps.PasswordReset)
}

func (s Service) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	return RunResetPassword(ctx, email, token, newPassword, s.deps.PasswordReset)
}
