package token

import (
	"errors"
	"fmt"
	"math"

	"mailchain/core/events"
	"mailchain/native/common"
)

var errNilState = errors.New("token engine: state not configured")

type engineState interface {
	TokenMintGet(mint [20]byte) (*Mint, bool, error)
	TokenMintPut(mint *Mint) error
	TokenBalance(mint [20]byte, owner [20]byte) (uint64, error)
	TokenBalancePut(mint [20]byte, owner [20]byte, amount uint64) error
}

// Engine moves token balances. It is the only component that mutates
// balances; programs route every fee and payout through Transfer.
type Engine struct {
	state   engineState
	emitter events.Emitter
}

// NewEngine constructs a token engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) loadMint(id [20]byte) (*Mint, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	mint, ok, err := e.state.TokenMintGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUnknownMint
	}
	return mint, nil
}

// CreateMint registers a new token with the given mint authority.
func (e *Engine) CreateMint(id [20]byte, authority [20]byte, decimals uint8) (*Mint, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if _, ok, err := e.state.TokenMintGet(id); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrMintExists
	}
	mint := &Mint{ID: id, Authority: authority, Decimals: decimals}
	if err := e.state.TokenMintPut(mint); err != nil {
		return nil, err
	}
	e.emit(events.MintCreated{Mint: id, Authority: authority, Decimals: decimals})
	return mint.Clone(), nil
}

// MintTo credits new supply to an account. Only the mint authority may mint.
func (e *Engine) MintTo(id [20]byte, authority [20]byte, to [20]byte, amount uint64) error {
	mint, err := e.loadMint(id)
	if err != nil {
		return err
	}
	if mint.Authority != authority {
		return ErrUnauthorized
	}
	if amount == 0 {
		return nil
	}
	if mint.Supply > math.MaxUint64-amount {
		return common.ErrArithmeticOverflow
	}
	balance, err := e.state.TokenBalance(id, to)
	if err != nil {
		return err
	}
	mint.Supply += amount
	if err := e.state.TokenBalancePut(id, to, balance+amount); err != nil {
		return err
	}
	if err := e.state.TokenMintPut(mint); err != nil {
		return err
	}
	e.emit(events.Minted{Mint: id, To: to, Amount: amount, Supply: mint.Supply})
	return nil
}

// Transfer moves amount of mint from one account to another. The authority
// must own the source balance; programs moving custody funds pass their
// derived custody address.
func (e *Engine) Transfer(id [20]byte, from [20]byte, to [20]byte, authority [20]byte, amount uint64) error {
	if _, err := e.loadMint(id); err != nil {
		return err
	}
	if authority != from {
		return ErrUnauthorized
	}
	if amount == 0 {
		return nil
	}
	fromBalance, err := e.state.TokenBalance(id, from)
	if err != nil {
		return err
	}
	if fromBalance < amount {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, fromBalance, amount)
	}
	if from != to {
		toBalance, err := e.state.TokenBalance(id, to)
		if err != nil {
			return err
		}
		if toBalance > math.MaxUint64-amount {
			return common.ErrArithmeticOverflow
		}
		if err := e.state.TokenBalancePut(id, from, fromBalance-amount); err != nil {
			return err
		}
		if err := e.state.TokenBalancePut(id, to, toBalance+amount); err != nil {
			return err
		}
	}
	e.emit(events.Transfer{Mint: id, From: from, To: to, Amount: amount})
	return nil
}

// Balance returns the balance owner holds of mint.
func (e *Engine) Balance(id [20]byte, owner [20]byte) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	return e.state.TokenBalance(id, owner)
}
