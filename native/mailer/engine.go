package mailer

import (
	"errors"
	"time"

	"mailchain/core/events"
	"mailchain/core/types"
	"mailchain/crypto"
	"mailchain/native/common"
)

var (
	errNilState   = errors.New("mailer engine: state not configured")
	errNilGateway = errors.New("mailer engine: fee gateway not configured")
)

// CustodySeed derives the account that holds every fee paid to a mailer.
const CustodySeed = "mailer"

type engineState interface {
	MailerStateGet(program [20]byte) (*State, bool, error)
	MailerStatePut(program [20]byte, st *State) error
	MailerClaimGet(program [20]byte, recipient [20]byte) (*RecipientClaim, bool, error)
	MailerClaimPut(program [20]byte, claim *RecipientClaim) error
}

type feeGateway interface {
	Transfer(mint [20]byte, from [20]byte, to [20]byte, authority [20]byte, amount uint64) error
}

// Engine implements the mailer fee accounting and claim lifecycle for a
// single program deployment.
type Engine struct {
	program [20]byte
	custody [20]byte
	state   engineState
	gateway feeGateway
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine constructs a mailer engine bound to the given program id.
func NewEngine(program [20]byte) *Engine {
	return &Engine{
		program: program,
		custody: crypto.ProgramAddress(program, []byte(CustodySeed)),
		emitter: events.NoopEmitter{},
		nowFn: func() int64 {
			return time.Now().Unix()
		},
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetGateway configures the token transfer capability used for fees and payouts.
func (e *Engine) SetGateway(gateway feeGateway) { e.gateway = gateway }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// Program returns the program id the engine serves.
func (e *Engine) Program() [20]byte { return e.program }

// Custody returns the program-derived account holding collected fees.
func (e *Engine) Custody() [20]byte { return e.custody }

func (e *Engine) emit(evt *types.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(events.Wrap(evt))
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
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
	st, ok, err := e.state.MailerStateGet(e.program)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.ErrNotInitialized
	}
	return st, nil
}

// loadClaim returns the claim for recipient, or a fresh empty claim when none
// has been recorded yet.
func (e *Engine) loadClaim(recipient [20]byte) (*RecipientClaim, error) {
	claim, ok, err := e.state.MailerClaimGet(e.program, recipient)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &RecipientClaim{Recipient: recipient}, nil
	}
	return claim, nil
}

// Initialize creates the deployment singleton with caller as owner.
func (e *Engine) Initialize(caller [20]byte, usdcMint [20]byte) (*State, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if _, ok, err := e.state.MailerStateGet(e.program); err != nil {
		return nil, err
	} else if ok {
		return nil, common.ErrAlreadyInitialized
	}
	st := &State{Owner: caller, USDCMint: usdcMint, SendFee: SendFee}
	if err := e.state.MailerStatePut(e.program, st); err != nil {
		return nil, err
	}
	e.emit(InitializedEvent(caller, usdcMint, st.SendFee))
	return st.Clone(), nil
}

// SendPriority charges the full send fee, credits the sender's revenue share
// and records the message.
func (e *Engine) SendPriority(caller [20]byte, subject string, body string) error {
	if err := e.recordPriority(caller); err != nil {
		return err
	}
	e.emit(MailSentEvent(caller, subject, body))
	return nil
}

// SendPriorityPrepared is SendPriority for a message referenced by mailID.
func (e *Engine) SendPriorityPrepared(caller [20]byte, mailID string) error {
	if err := e.recordPriority(caller); err != nil {
		return err
	}
	e.emit(PreparedMailSentEvent(caller, mailID))
	return nil
}

// Send charges only the operator share of the send fee and records the message.
func (e *Engine) Send(caller [20]byte, subject string, body string) error {
	if err := e.recordStandard(caller); err != nil {
		return err
	}
	e.emit(MailSentEvent(caller, subject, body))
	return nil
}

// SendPrepared is Send for a message referenced by mailID.
func (e *Engine) SendPrepared(caller [20]byte, mailID string) error {
	if err := e.recordStandard(caller); err != nil {
		return err
	}
	e.emit(PreparedMailSentEvent(caller, mailID))
	return nil
}

func (e *Engine) recordPriority(caller [20]byte) error {
	st, err := e.loadState()
	if err != nil {
		return err
	}
	claim, err := e.loadClaim(caller)
	if err != nil {
		return err
	}
	total := st.SendFee
	ownerAmount, recipientAmount := splitFee(total)
	claimAmount, err := addAmount(claim.Amount, recipientAmount)
	if err != nil {
		return err
	}
	ownerClaimable, err := addAmount(st.OwnerClaimable, ownerAmount)
	if err != nil {
		return err
	}
	now := e.now()
	if claim.Amount == 0 && claimAmount > 0 && now < 0 {
		return common.ErrInvalidTimestamp
	}

	if err := e.gateway.Transfer(st.USDCMint, caller, e.custody, caller, total); err != nil {
		return err
	}

	claim.Recipient = caller
	claim.Amount = claimAmount
	if claim.Timestamp == 0 && claim.Amount > 0 {
		claim.Timestamp = now
	}
	st.OwnerClaimable = ownerClaimable
	if err := e.state.MailerClaimPut(e.program, claim); err != nil {
		return err
	}
	if err := e.state.MailerStatePut(e.program, st); err != nil {
		return err
	}
	e.emit(SharesRecordedEvent(caller, recipientAmount, ownerAmount))
	return nil
}

func (e *Engine) recordStandard(caller [20]byte) error {
	st, err := e.loadState()
	if err != nil {
		return err
	}
	fee := ownerFee(st.SendFee)
	ownerClaimable, err := addAmount(st.OwnerClaimable, fee)
	if err != nil {
		return err
	}
	if err := e.gateway.Transfer(st.USDCMint, caller, e.custody, caller, fee); err != nil {
		return err
	}
	st.OwnerClaimable = ownerClaimable
	return e.state.MailerStatePut(e.program, st)
}

// SetFee replaces the send fee. Only the owner may change it.
func (e *Engine) SetFee(caller [20]byte, newFee uint64) error {
	st, err := e.loadState()
	if err != nil {
		return err
	}
	if caller != st.Owner {
		return ErrOnlyOwner
	}
	oldFee := st.SendFee
	st.SendFee = newFee
	if err := e.state.MailerStatePut(e.program, st); err != nil {
		return err
	}
	e.emit(FeeUpdatedEvent(oldFee, newFee))
	return nil
}

// State returns the deployment singleton.
func (e *Engine) State() (*State, error) {
	return e.loadState()
}
