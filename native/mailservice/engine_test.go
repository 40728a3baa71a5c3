package mailservice

import (
	"errors"
	"testing"

	"mailchain/core/events"
	"mailchain/native/common"
)

type mockState struct {
	states      map[[20]byte]*State
	delegations map[[20]byte]*Delegation
}

func newMockState() *mockState {
	return &mockState{
		states:      make(map[[20]byte]*State),
		delegations: make(map[[20]byte]*Delegation),
	}
}

func (m *mockState) MailServiceStateGet(program [20]byte) (*State, bool, error) {
	st, ok := m.states[program]
	if !ok {
		return nil, false, nil
	}
	return st.Clone(), true, nil
}

func (m *mockState) MailServiceStatePut(program [20]byte, st *State) error {
	m.states[program] = st.Clone()
	return nil
}

func (m *mockState) MailServiceDelegationGet(_ [20]byte, delegator [20]byte) (*Delegation, bool, error) {
	d, ok := m.delegations[delegator]
	if !ok {
		return nil, false, nil
	}
	return d.Clone(), true, nil
}

func (m *mockState) MailServiceDelegationPut(_ [20]byte, d *Delegation) error {
	m.delegations[d.Delegator] = d.Clone()
	return nil
}

var errMockInsufficient = errors.New("mock gateway: insufficient funds")

type mockGateway struct {
	balances map[[20]byte]uint64
	calls    int
}

func (g *mockGateway) Transfer(_ [20]byte, from, to, authority [20]byte, amount uint64) error {
	g.calls++
	if authority != from {
		return errors.New("mock gateway: authority mismatch")
	}
	if g.balances[from] < amount {
		return errMockInsufficient
	}
	g.balances[from] -= amount
	g.balances[to] += amount
	return nil
}

type captureEmitter struct {
	events []events.Event
}

func (c *captureEmitter) Emit(evt events.Event) { c.events = append(c.events, evt) }

func addr(b byte) [20]byte {
	var out [20]byte
	out[19] = b
	return out
}

func newTestEngine(t *testing.T) (*Engine, *mockGateway, *captureEmitter) {
	t.Helper()
	gateway := &mockGateway{balances: make(map[[20]byte]uint64)}
	emitter := &captureEmitter{}
	engine := NewEngine(addr(0xBB))
	engine.SetState(newMockState())
	engine.SetGateway(gateway)
	engine.SetEmitter(emitter)
	if _, err := engine.Initialize(addr(1), addr(0x10)); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	emitter.events = nil
	return engine, gateway, emitter
}

func TestInitializeOnce(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	st, err := engine.State()
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if st.DelegationFee != DelegationFee || st.Owner != addr(1) {
		t.Fatalf("unexpected state: %+v", st)
	}
	if _, err := engine.Initialize(addr(2), addr(0x10)); !errors.Is(err, common.ErrAlreadyInitialized) {
		t.Fatalf("expected ErrAlreadyInitialized, got %v", err)
	}
}

func TestDelegateChargesOnlyWhenSetting(t *testing.T) {
	engine, gateway, emitter := newTestEngine(t)
	delegator := addr(3)
	gateway.balances[delegator] = 3 * DelegationFee

	first, second := addr(4), addr(5)
	if _, err := engine.DelegateTo(delegator, &first); err != nil {
		t.Fatalf("delegate: %v", err)
	}
	if _, err := engine.DelegateTo(delegator, &second); err != nil {
		t.Fatalf("re-delegate: %v", err)
	}
	if gateway.balances[engine.Custody()] != 2*DelegationFee {
		t.Fatalf("expected two fees in custody, got %d", gateway.balances[engine.Custody()])
	}

	if _, err := engine.DelegateTo(delegator, nil); err != nil {
		t.Fatalf("clear: %v", err)
	}
	zero := [20]byte{}
	cleared, err := engine.DelegateTo(delegator, &zero)
	if err != nil {
		t.Fatalf("clear with null identity: %v", err)
	}
	if _, ok := cleared.Active(); ok {
		t.Fatalf("null identity must clear the delegate")
	}
	if gateway.calls != 2 {
		t.Fatalf("clearing must not charge, gateway calls=%d", gateway.calls)
	}
	if len(emitter.events) != 4 {
		t.Fatalf("expected four delegation events, got %d", len(emitter.events))
	}
	last := events.Payload(emitter.events[3])
	if last.Type != EventTypeDelegationSet || last.Attributes["delegate"] != "" {
		t.Fatalf("unexpected clear event: %+v", last)
	}
}

func TestDelegateTransferFailureKeepsRecord(t *testing.T) {
	engine, gateway, emitter := newTestEngine(t)
	delegator := addr(3)
	gateway.balances[delegator] = DelegationFee - 1
	delegate := addr(4)
	if _, err := engine.DelegateTo(delegator, &delegate); !errors.Is(err, errMockInsufficient) {
		t.Fatalf("expected gateway error, got %v", err)
	}
	d, err := engine.Delegation(delegator)
	if err != nil {
		t.Fatalf("delegation: %v", err)
	}
	if _, ok := d.Active(); ok {
		t.Fatalf("delegation recorded despite failed fee")
	}
	if len(emitter.events) != 0 {
		t.Fatalf("events emitted on failure")
	}
}

func TestRejectDelegation(t *testing.T) {
	engine, gateway, _ := newTestEngine(t)
	delegator, delegate := addr(3), addr(4)
	gateway.balances[delegator] = DelegationFee

	if err := engine.RejectDelegation(delegate, delegator); !errors.Is(err, ErrNoDelegationToReject) {
		t.Fatalf("expected ErrNoDelegationToReject without record, got %v", err)
	}
	if _, err := engine.DelegateTo(delegator, &delegate); err != nil {
		t.Fatalf("delegate: %v", err)
	}
	err := engine.RejectDelegation(addr(9), delegator)
	if !errors.Is(err, ErrNotDelegate) || !errors.Is(err, common.ErrAuthorization) {
		t.Fatalf("expected stranger to fail with an authorization error, got %v", err)
	}
	if err := engine.RejectDelegation(delegate, delegator); err != nil {
		t.Fatalf("reject: %v", err)
	}
	d, _ := engine.Delegation(delegator)
	if _, ok := d.Active(); ok {
		t.Fatalf("delegate not cleared")
	}
	if err := engine.RejectDelegation(delegate, delegator); !errors.Is(err, ErrNoDelegationToReject) {
		t.Fatalf("expected second reject to fail, got %v", err)
	}
	if gateway.calls != 1 {
		t.Fatalf("reject must not move funds")
	}
}

func TestSetDelegationFeeOwnerOnly(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	if err := engine.SetDelegationFee(addr(2), 5); !errors.Is(err, common.ErrAuthorization) {
		t.Fatalf("expected authorization error, got %v", err)
	}
	if err := engine.SetDelegationFee(addr(1), 5); err != nil {
		t.Fatalf("set fee: %v", err)
	}
	st, _ := engine.State()
	if st.DelegationFee != 5 {
		t.Fatalf("fee not updated: %d", st.DelegationFee)
	}
}

func TestWithdrawFees(t *testing.T) {
	engine, gateway, emitter := newTestEngine(t)
	delegator, delegate := addr(3), addr(4)
	gateway.balances[delegator] = DelegationFee
	if _, err := engine.DelegateTo(delegator, &delegate); err != nil {
		t.Fatalf("delegate: %v", err)
	}
	emitter.events = nil

	if err := engine.WithdrawFees(addr(2), 1); !errors.Is(err, ErrOnlyOwner) {
		t.Fatalf("expected ErrOnlyOwner, got %v", err)
	}
	if err := engine.WithdrawFees(addr(1), DelegationFee+1); !errors.Is(err, errMockInsufficient) {
		t.Fatalf("expected over-withdrawal to fail in the gateway, got %v", err)
	}
	if err := engine.WithdrawFees(addr(1), DelegationFee/2); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if gateway.balances[addr(1)] != DelegationFee/2 {
		t.Fatalf("unexpected owner balance %d", gateway.balances[addr(1)])
	}
	if len(emitter.events) != 1 || emitter.events[0].EventType() != EventTypeFeesWithdrawn {
		t.Fatalf("expected a single withdrawal event")
	}
}
