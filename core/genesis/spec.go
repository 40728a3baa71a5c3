// core/genesis/spec.go
package genesis

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"mailchain/core/programs"
	"mailchain/crypto"
)

type GenesisSpec struct {
	GenesisTime string                       `json:"genesisTime" yaml:"genesisTime"`
	ChainID     *uint64                      `json:"chainId,omitempty" yaml:"chainId,omitempty"`
	Mints       []MintSpec                   `json:"mints" yaml:"mints"`
	Alloc       map[string]map[string]string `json:"alloc" yaml:"alloc"` // addr -> mint name -> amount
	Mailer      *ProgramSpec                 `json:"mailer,omitempty" yaml:"mailer,omitempty"`
	MailService *ProgramSpec                 `json:"mailService,omitempty" yaml:"mailService,omitempty"`

	genesisTimestamp time.Time
	chainIDValue     uint64
	hasChainID       bool
	mintIDs          map[string][20]byte
}

// MintSpec declares a token created at genesis. Address is optional; when
// omitted the mint id is derived from the token program and the name.
type MintSpec struct {
	Name      string `json:"name" yaml:"name"`
	Address   string `json:"address,omitempty" yaml:"address,omitempty"`
	Authority string `json:"authority" yaml:"authority"`
	Decimals  uint8  `json:"decimals" yaml:"decimals"`
}

// ProgramSpec initialises a program singleton at genesis.
type ProgramSpec struct {
	Owner string  `json:"owner" yaml:"owner"`
	Mint  string  `json:"mint" yaml:"mint"`
	Fee   *uint64 `json:"fee,omitempty" yaml:"fee,omitempty"`
}

// LoadGenesisSpec reads a JSON or YAML genesis file. The format is chosen by
// file extension.
func LoadGenesisSpec(path string) (*GenesisSpec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("genesis spec path must be provided")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis spec %q: %w", path, err)
	}
	var spec GenesisSpec
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(&spec); err != nil {
			return nil, fmt.Errorf("decode genesis spec %q: %w", path, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&spec); err != nil {
			return nil, fmt.Errorf("decode genesis spec %q: %w", path, err)
		}
	}
	if err := spec.validate(); err != nil {
		return nil, fmt.Errorf("invalid genesis spec %q: %w", path, err)
	}
	return &spec, nil
}

func (s *GenesisSpec) GenesisTimestamp() time.Time { return s.genesisTimestamp }
func (s *GenesisSpec) ChainIDValue() (uint64, bool) {
	if s.hasChainID {
		return s.chainIDValue, true
	}
	return 0, false
}

// MintID resolves a mint declared in the spec by name.
func (s *GenesisSpec) MintID(name string) ([20]byte, bool) {
	id, ok := s.mintIDs[strings.TrimSpace(name)]
	return id, ok
}

// Validate checks the spec and resolves derived values.
func (s *GenesisSpec) Validate() error { return s.validate() }

func (s *GenesisSpec) validate() error {
	parsedTime, err := parseGenesisTime(s.GenesisTime)
	if err != nil {
		return err
	}
	s.genesisTimestamp = parsedTime

	s.hasChainID = false
	s.chainIDValue = 0
	if s.ChainID != nil {
		s.hasChainID = true
		s.chainIDValue = *s.ChainID
	}

	// mints
	s.mintIDs = make(map[string][20]byte, len(s.Mints))
	seenIDs := make(map[[20]byte]struct{}, len(s.Mints))
	for i := range s.Mints {
		m := &s.Mints[i]
		name := strings.TrimSpace(m.Name)
		if name == "" {
			return fmt.Errorf("mint[%d]: name must be provided", i)
		}
		if _, exists := s.mintIDs[name]; exists {
			return fmt.Errorf("mint[%d]: duplicate name %q", i, m.Name)
		}
		if _, err := crypto.ParseIdentity(m.Authority); err != nil {
			return fmt.Errorf("mint[%d]: authority: %w", i, err)
		}
		if m.Decimals > 18 {
			return fmt.Errorf("mint[%d]: decimals must be 18 or fewer", i)
		}
		id, err := resolveMintID(name, m.Address)
		if err != nil {
			return fmt.Errorf("mint[%d]: %w", i, err)
		}
		if _, dup := seenIDs[id]; dup {
			return fmt.Errorf("mint[%d]: duplicate address", i)
		}
		seenIDs[id] = struct{}{}
		s.mintIDs[name] = id
	}

	// alloc
	accounts := make([]string, 0, len(s.Alloc))
	for account := range s.Alloc {
		accounts = append(accounts, account)
	}
	sort.Strings(accounts)
	for _, account := range accounts {
		if _, err := crypto.ParseIdentity(account); err != nil {
			return fmt.Errorf("alloc[%q]: %w", account, err)
		}
		for name, amount := range s.Alloc[account] {
			if _, ok := s.mintIDs[strings.TrimSpace(name)]; !ok {
				return fmt.Errorf("alloc[%q][%q]: undefined mint", account, name)
			}
			if _, err := parseAmount(amount); err != nil {
				return fmt.Errorf("alloc[%q][%q]: %w", account, name, err)
			}
		}
	}

	if err := s.Mailer.validate(s.mintIDs); err != nil {
		return fmt.Errorf("mailer: %w", err)
	}
	if err := s.MailService.validate(s.mintIDs); err != nil {
		return fmt.Errorf("mailService: %w", err)
	}
	return nil
}

func (p *ProgramSpec) validate(mints map[string][20]byte) error {
	if p == nil {
		return nil
	}
	if _, err := crypto.ParseIdentity(p.Owner); err != nil {
		return fmt.Errorf("owner: %w", err)
	}
	if _, ok := mints[strings.TrimSpace(p.Mint)]; !ok {
		return fmt.Errorf("undefined mint %q", p.Mint)
	}
	return nil
}

func resolveMintID(name, address string) ([20]byte, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(address), "0x")
	if trimmed == "" {
		return crypto.ProgramAddress(programs.DefaultID(programs.NameToken), []byte(name)), nil
	}
	var out [20]byte
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return out, fmt.Errorf("address: %w", err)
	}
	if len(decoded) != len(out) {
		return out, fmt.Errorf("address must be 20 bytes, got %d", len(decoded))
	}
	copy(out[:], decoded)
	return out, nil
}

func parseAmount(value string) (uint64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, fmt.Errorf("amount must be provided")
	}
	amount, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", value)
	}
	return amount, nil
}

func parseGenesisTime(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("genesisTime must be provided")
	}
	parsed, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid genesisTime: %w", err)
	}
	return parsed.UTC(), nil
}
