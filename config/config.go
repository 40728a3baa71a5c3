package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"mailchain/storage"
)

type Config struct {
	ListenAddress  string          `toml:"ListenAddress"`
	DataDir        string          `toml:"DataDir"`
	StorageBackend string          `toml:"StorageBackend"`
	ChainID        uint64          `toml:"ChainID"`
	GenesisFile    string          `toml:"GenesisFile"`
	NetworkName    string          `toml:"NetworkName"`
	Programs       ProgramsConfig  `toml:"programs"`
	Log            LogConfig       `toml:"log"`
	RPC            RPCConfig       `toml:"rpc"`
	Indexer        IndexerConfig   `toml:"indexer"`
	Telemetry      TelemetryConfig `toml:"telemetry"`
}

// Load loads the configuration from the given path. A default file is written
// when none exists.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	} else if err != nil {
		return nil, err
	}

	cfg := &Config{}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("config file %s has unknown keys: %s", path, strings.Join(keys, ", "))
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the configuration written for a fresh node.
func Default() *Config {
	cfg := &Config{
		ListenAddress:  "127.0.0.1:8545",
		DataDir:        "./mail-data",
		StorageBackend: storage.BackendLevelDB,
		ChainID:        DefaultChainID,
		NetworkName:    "mail-local",
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.NetworkName) == "" {
		c.NetworkName = "mail-local"
	}
	if strings.TrimSpace(c.StorageBackend) == "" {
		c.StorageBackend = storage.BackendLevelDB
	}
	if strings.TrimSpace(c.Log.Level) == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 100
	}
	if c.RPC.RateLimitPerSecond == 0 {
		c.RPC.RateLimitPerSecond = 20
	}
	if c.RPC.RateBurst == 0 {
		c.RPC.RateBurst = 40
	}
	if c.RPC.MaxBodyBytes == 0 {
		c.RPC.MaxBodyBytes = 1 << 20
	}
	if c.RPC.ReadHeaderTimeout == 0 {
		c.RPC.ReadHeaderTimeout = 5
	}
	if c.Indexer.Enabled && strings.TrimSpace(c.Indexer.Path) == "" {
		c.Indexer.Path = filepath.Join(c.DataDir, "events.db")
	}
	if c.Telemetry.Headers == nil {
		c.Telemetry.Headers = map[string]string{}
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
