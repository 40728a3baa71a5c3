// core/genesis/loader.go
package genesis

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	"mailchain/core/programs"
	"mailchain/core/state"
	"mailchain/storage"
)

var genesisMarkerKey = crypto.Keccak256([]byte("genesis-marker"))

// ErrChainIDMismatch is returned when a database was initialised for another chain.
var ErrChainIDMismatch = errors.New("genesis: chain id mismatch")

type genesisMarker struct {
	ChainID   uint64
	Timestamp uint64
}

// Programs identifies the program deployments genesis initialises.
type Programs struct {
	Mailer      [20]byte
	MailService [20]byte
}

// Apply writes the genesis state into db in a single transaction. It returns
// false without touching state when db has already been initialised for the
// same chain.
func Apply(spec *GenesisSpec, db storage.Database, chainID uint64, ids Programs) (bool, error) {
	if spec == nil {
		return false, fmt.Errorf("genesis spec must not be nil")
	}
	if db == nil {
		return false, fmt.Errorf("database must not be nil")
	}
	if spec.mintIDs == nil {
		if err := spec.validate(); err != nil {
			return false, err
		}
	}
	if id, ok := spec.ChainIDValue(); ok && id != chainID {
		return false, fmt.Errorf("%w: spec declares %d, node runs %d", ErrChainIDMismatch, id, chainID)
	}

	applied := false
	err := db.Update(func(txn storage.Txn) error {
		manager := state.NewManager(txn)
		var marker genesisMarker
		ok, err := manager.KVGet(genesisMarkerKey, &marker)
		if err != nil {
			return err
		}
		if ok {
			if marker.ChainID != chainID {
				return fmt.Errorf("%w: database initialised for %d", ErrChainIDMismatch, marker.ChainID)
			}
			return nil
		}
		if err := applySpec(spec, manager, ids); err != nil {
			return err
		}
		applied = true
		return manager.KVPut(genesisMarkerKey, &genesisMarker{
			ChainID:   chainID,
			Timestamp: uint64(spec.GenesisTimestamp().Unix()),
		})
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func applySpec(spec *GenesisSpec, manager *state.Manager, ids Programs) error {
	ctx := &programs.ExecContext{State: manager, Now: spec.GenesisTimestamp().Unix()}

	// 1) Mints (declaration order)
	authorities := make(map[string][20]byte, len(spec.Mints))
	for _, m := range spec.Mints {
		name := strings.TrimSpace(m.Name)
		authority, err := parseIdentity(m.Authority)
		if err != nil {
			return err
		}
		authorities[name] = authority
		id, _ := spec.MintID(name)
		ctx.Caller = authority
		engine := tokenEngine(ctx)
		if _, err := engine.CreateMint(id, authority, m.Decimals); err != nil {
			return fmt.Errorf("mint %s: %w", name, err)
		}
	}

	// 2) Allocations (sorted for determinism)
	accounts := make([]string, 0, len(spec.Alloc))
	for account := range spec.Alloc {
		accounts = append(accounts, account)
	}
	sort.Strings(accounts)
	for _, account := range accounts {
		owner, err := parseIdentity(account)
		if err != nil {
			return err
		}
		names := make([]string, 0, len(spec.Alloc[account]))
		for name := range spec.Alloc[account] {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			amount, err := parseAmount(spec.Alloc[account][name])
			if err != nil {
				return err
			}
			key := strings.TrimSpace(name)
			id, _ := spec.MintID(key)
			if err := tokenEngine(ctx).MintTo(id, authorities[key], owner, amount); err != nil {
				return fmt.Errorf("alloc %s/%s: %w", account, name, err)
			}
		}
	}

	// 3) Program singletons
	if p := spec.Mailer; p != nil {
		owner, err := parseIdentity(p.Owner)
		if err != nil {
			return err
		}
		mint, _ := spec.MintID(p.Mint)
		engine := programs.NewMailerProgram(ids.Mailer).Engine(ctx)
		if _, err := engine.Initialize(owner, mint); err != nil {
			return fmt.Errorf("mailer: %w", err)
		}
		if p.Fee != nil {
			if err := engine.SetFee(owner, *p.Fee); err != nil {
				return fmt.Errorf("mailer fee: %w", err)
			}
		}
	}
	if p := spec.MailService; p != nil {
		owner, err := parseIdentity(p.Owner)
		if err != nil {
			return err
		}
		mint, _ := spec.MintID(p.Mint)
		engine := programs.NewMailServiceProgram(ids.MailService).Engine(ctx)
		if _, err := engine.Initialize(owner, mint); err != nil {
			return fmt.Errorf("mailService: %w", err)
		}
		if p.Fee != nil {
			if err := engine.SetDelegationFee(owner, *p.Fee); err != nil {
				return fmt.Errorf("mailService fee: %w", err)
			}
		}
	}
	return nil
}
