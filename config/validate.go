package config

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"mailchain/core/programs"
	"mailchain/storage"
)

// Validate checks the configuration for values the node cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ListenAddress) == "" {
		return fmt.Errorf("ListenAddress must be provided")
	}
	if c.ChainID == 0 {
		return fmt.Errorf("ChainID must be non-zero")
	}
	switch strings.ToLower(strings.TrimSpace(c.StorageBackend)) {
	case storage.BackendMemory, storage.BackendLevelDB, storage.BackendBolt:
	default:
		return fmt.Errorf("unknown StorageBackend %q", c.StorageBackend)
	}
	if c.StorageBackend != storage.BackendMemory && strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("DataDir must be provided for %s storage", c.StorageBackend)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	if c.RPC.RateLimitPerSecond < 0 {
		return fmt.Errorf("rpc: RateLimitPerSecond must not be negative")
	}
	if c.RPC.RateBurst < 0 {
		return fmt.Errorf("rpc: RateBurst must not be negative")
	}
	if c.RPC.MaxBodyBytes < 0 {
		return fmt.Errorf("rpc: MaxBodyBytes must not be negative")
	}
	if _, err := c.Programs.Resolve(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses the configured log level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(l.Level))); err != nil {
		return level, fmt.Errorf("log: invalid Level %q", l.Level)
	}
	return level, nil
}

// ProgramIDs holds the resolved deployment ids.
type ProgramIDs struct {
	Mailer      [20]byte
	MailService [20]byte
	Token       [20]byte
}

// Resolve decodes the configured ids, defaulting to the name-derived ids.
func (p ProgramsConfig) Resolve() (ProgramIDs, error) {
	var ids ProgramIDs
	var err error
	if ids.Mailer, err = resolveProgramID("Mailer", p.Mailer, programs.NameMailer); err != nil {
		return ids, err
	}
	if ids.MailService, err = resolveProgramID("MailService", p.MailService, programs.NameMailService); err != nil {
		return ids, err
	}
	if ids.Token, err = resolveProgramID("Token", p.Token, programs.NameToken); err != nil {
		return ids, err
	}
	if ids.Mailer == ids.MailService || ids.Mailer == ids.Token || ids.MailService == ids.Token {
		return ids, fmt.Errorf("programs: ids must be distinct")
	}
	return ids, nil
}

func resolveProgramID(field, value, name string) ([20]byte, error) {
	var out [20]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	if trimmed == "" {
		return programs.DefaultID(name), nil
	}
	decoded, err := hex.DecodeString(trimmed)
	if err != nil || len(decoded) != len(out) {
		return out, fmt.Errorf("programs: %s must be a 20-byte hex id", field)
	}
	copy(out[:], decoded)
	return out, nil
}
