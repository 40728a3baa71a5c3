package config

// DefaultChainID is used when no chain id is configured.
const DefaultChainID uint64 = 4242

// ProgramsConfig overrides the deployment ids of the native programs. Empty
// values fall back to the ids derived from the program names.
type ProgramsConfig struct {
	Mailer      string `toml:"Mailer"`
	MailService string `toml:"MailService"`
	Token       string `toml:"Token"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level       string `toml:"Level"`
	Environment string `toml:"Environment"`
	File        string `toml:"File"`
	MaxSizeMB   int    `toml:"MaxSizeMB"`
	MaxBackups  int    `toml:"MaxBackups"`
	MaxAgeDays  int    `toml:"MaxAgeDays"`
}

// RPCConfig tunes the JSON-RPC server.
type RPCConfig struct {
	RateLimitPerSecond float64 `toml:"RateLimitPerSecond"`
	RateBurst          int     `toml:"RateBurst"`
	MaxBodyBytes       int64   `toml:"MaxBodyBytes"`
	ReadHeaderTimeout  int     `toml:"ReadHeaderTimeout"` // seconds
	// JWTSecretEnv names the environment variable holding the HS256 secret
	// required for transaction submission. Empty disables auth.
	JWTSecretEnv string `toml:"JWTSecretEnv"`
}

type IndexerConfig struct {
	Enabled bool   `toml:"Enabled"`
	Path    string `toml:"Path"`
}

type TelemetryConfig struct {
	Endpoint string            `toml:"Endpoint"`
	Insecure bool              `toml:"Insecure"`
	Headers  map[string]string `toml:"Headers"`
	Metrics  bool              `toml:"Metrics"`
	Traces   bool              `toml:"Traces"`
}

// Enabled reports whether any OTLP exporter is requested.
func (t TelemetryConfig) Enabled() bool { return t.Metrics || t.Traces }
