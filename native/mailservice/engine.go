package mailservice

import (
	"errors"

	"mailchain/core/events"
	"mailchain/core/types"
	"mailchain/crypto"
	"mailchain/native/common"
)

var (
	errNilState   = errors.New("mailservice engine: state not configured")
	errNilGateway = errors.New("mailservice engine: fee gateway not configured")
)

// CustodySeed derives the account that holds delegation fees.
const CustodySeed = "mail_service"

type engineState interface {
	MailServiceStateGet(program [20]byte) (*State, bool, error)
	MailServiceStatePut(program [20]byte, st *State) error
	MailServiceDelegationGet(program [20]byte, delegator [20]byte) (*Delegation, bool, error)
	MailServiceDelegationPut(program [20]byte, delegation *Delegation) error
}

type feeGateway interface {
	Transfer(mint [20]byte, from [20]byte, to [20]byte, authority [20]byte, amount uint64) error
}

// Engine manages paid sending delegations for a mail-service deployment.
type Engine struct {
	program [20]byte
	custody [20]byte
	state   engineState
	gateway feeGateway
	emitter events.Emitter
}

// NewEngine constructs a mail-service engine bound to the given program id.
func NewEngine(program [20]byte) *Engine {
	return &Engine{
		program: program,
		custody: crypto.ProgramAddress(program, []byte(CustodySeed)),
		emitter: events.NoopEmitter{},
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetGateway configures the token transfer capability.
func (e *Engine) SetGateway(gateway feeGateway) { e.gateway = gateway }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// Program returns the program id the engine serves.
func (e *Engine) Program() [20]byte { return e.program }

// Custody returns the program-derived account holding delegation fees.
func (e *Engine) Custody() [20]byte { return e.custody }

func (e *Engine) emit(evt *types.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(events.Wrap(evt))
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.gateway == nil {
		return errNilGateway
	}
	return nil
}

func (e *Engine) loadState() (*State, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	st, ok, err := e.state.MailServiceStateGet(e.program)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.ErrNotInitialized
	}
	return st, nil
}

// Initialize creates the deployment singleton with caller as owner.
func (e *Engine) Initialize(caller [20]byte, usdcMint [20]byte) (*State, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if _, ok, err := e.state.MailServiceStateGet(e.program); err != nil {
		return nil, err
	} else if ok {
		return nil, common.ErrAlreadyInitialized
	}
	st := &State{Owner: caller, USDCMint: usdcMint, DelegationFee: DelegationFee}
	if err := e.state.MailServiceStatePut(e.program, st); err != nil {
		return nil, err
	}
	e.emit(InitializedEvent(caller, usdcMint, st.DelegationFee))
	return st.Clone(), nil
}

// normalizeDelegate treats the null identity as no delegate.
func normalizeDelegate(delegate *[20]byte) *[20]byte {
	if delegate == nil || *delegate == ([20]byte{}) {
		return nil
	}
	out := *delegate
	return &out
}

// DelegateTo assigns or clears the caller's delegate. Assigning charges the
// delegation fee into service custody; clearing is free.
func (e *Engine) DelegateTo(caller [20]byte, delegate *[20]byte) (*Delegation, error) {
	st, err := e.loadState()
	if err != nil {
		return nil, err
	}
	delegate = normalizeDelegate(delegate)
	if delegate != nil {
		if err := e.gateway.Transfer(st.USDCMint, caller, e.custody, caller, st.DelegationFee); err != nil {
			return nil, err
		}
	}
	delegation := &Delegation{Delegator: caller, Delegate: delegate}
	if err := e.state.MailServiceDelegationPut(e.program, delegation); err != nil {
		return nil, err
	}
	e.emit(DelegationSetEvent(caller, delegate))
	return delegation.Clone(), nil
}

// RejectDelegation lets the current delegate of delegator give up the role.
func (e *Engine) RejectDelegation(caller [20]byte, delegator [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	delegation, ok, err := e.state.MailServiceDelegationGet(e.program, delegator)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoDelegationToReject
	}
	if delegation.Delegator != delegator {
		return ErrInvalidDelegator
	}
	active, ok := delegation.Active()
	if !ok {
		return ErrNoDelegationToReject
	}
	if active != caller {
		return ErrNotDelegate
	}
	delegation.Delegate = nil
	if err := e.state.MailServiceDelegationPut(e.program, delegation); err != nil {
		return err
	}
	e.emit(DelegationSetEvent(delegator, nil))
	return nil
}

// SetDelegationFee replaces the delegation fee. Only the owner may change it.
func (e *Engine) SetDelegationFee(caller [20]byte, newFee uint64) error {
	st, err := e.loadState()
	if err != nil {
		return err
	}
	if caller != st.Owner {
		return ErrOnlyOwner
	}
	oldFee := st.DelegationFee
	st.DelegationFee = newFee
	if err := e.state.MailServiceStatePut(e.program, st); err != nil {
		return err
	}
	e.emit(FeeUpdatedEvent(oldFee, newFee))
	return nil
}

// WithdrawFees pays amount out of service custody to the owner. No internal
// ledger bounds the request; the custody balance does.
func (e *Engine) WithdrawFees(caller [20]byte, amount uint64) error {
	st, err := e.loadState()
	if err != nil {
		return err
	}
	if caller != st.Owner {
		return ErrOnlyOwner
	}
	if err := e.gateway.Transfer(st.USDCMint, e.custody, st.Owner, e.custody, amount); err != nil {
		return err
	}
	e.emit(FeesWithdrawnEvent(st.Owner, amount))
	return nil
}

// State returns the deployment singleton.
func (e *Engine) State() (*State, error) {
	return e.loadState()
}

// Delegation returns the delegation recorded for delegator. Delegators that
// never called DelegateTo report an unset delegation.
func (e *Engine) Delegation(delegator [20]byte) (*Delegation, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	delegation, ok, err := e.state.MailServiceDelegationGet(e.program, delegator)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &Delegation{Delegator: delegator}, nil
	}
	return delegation, nil
}
