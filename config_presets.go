package authcore

// DefaultConfig returns the production baseline: 64 MiB Argon2id, login
// delays on, lockouts at 5 login and 3 reset attempts, 90 day sessions.
func DefaultConfig() Config {
	cfg := defaultConfig()
	cfg.Security.ProductionMode = true
	return cfg
}

// TestConfig returns a configuration for tests: the cheapest Argon2id
// parameters Validate accepts and no login delays. Lockout thresholds and
// token lifetimes keep their production values.
func TestConfig() Config {
	cfg := defaultConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.KeyLength = 16
	cfg.Login.LockedDelay = 0
	cfg.Login.MinVerifyDelay = 0
	cfg.Login.MaxVerifyDelay = 0
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}
