package mailer

import (
	"errors"
	"testing"

	"mailchain/core/events"
	"mailchain/native/common"
)

type mockState struct {
	states map[[20]byte]*State
	claims map[[40]byte]*RecipientClaim
}

func newMockState() *mockState {
	return &mockState{
		states: make(map[[20]byte]*State),
		claims: make(map[[40]byte]*RecipientClaim),
	}
}

func claimKey(program, recipient [20]byte) [40]byte {
	var key [40]byte
	copy(key[:20], program[:])
	copy(key[20:], recipient[:])
	return key
}

func (m *mockState) MailerStateGet(program [20]byte) (*State, bool, error) {
	st, ok := m.states[program]
	if !ok {
		return nil, false, nil
	}
	return st.Clone(), true, nil
}

func (m *mockState) MailerStatePut(program [20]byte, st *State) error {
	m.states[program] = st.Clone()
	return nil
}

func (m *mockState) MailerClaimGet(program, recipient [20]byte) (*RecipientClaim, bool, error) {
	claim, ok := m.claims[claimKey(program, recipient)]
	if !ok {
		return nil, false, nil
	}
	return claim.Clone(), true, nil
}

func (m *mockState) MailerClaimPut(program [20]byte, claim *RecipientClaim) error {
	m.claims[claimKey(program, claim.Recipient)] = claim.Clone()
	return nil
}

var errMockInsufficient = errors.New("mock gateway: insufficient funds")

type mockGateway struct {
	balances map[[20]byte]uint64
	calls    int
}

func newMockGateway() *mockGateway {
	return &mockGateway{balances: make(map[[20]byte]uint64)}
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
	types []string
}

func (c *captureEmitter) Emit(evt events.Event) { c.types = append(c.types, evt.EventType()) }

func addr(b byte) [20]byte {
	var out [20]byte
	out[19] = b
	return out
}

type fixture struct {
	engine  *Engine
	state   *mockState
	gateway *mockGateway
	emitter *captureEmitter
	now     int64
	owner   [20]byte
	mint    [20]byte
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		state:   newMockState(),
		gateway: newMockGateway(),
		emitter: &captureEmitter{},
		now:     1_700_000_000,
		owner:   addr(1),
		mint:    addr(0x10),
	}
	f.engine = NewEngine(addr(0xAA))
	f.engine.SetState(f.state)
	f.engine.SetGateway(f.gateway)
	f.engine.SetEmitter(f.emitter)
	f.engine.SetNowFunc(func() int64 { return f.now })
	if _, err := f.engine.Initialize(f.owner, f.mint); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	f.emitter.types = nil
	return f
}

func (f *fixture) state0(t *testing.T) *State {
	t.Helper()
	st, err := f.engine.State()
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	return st
}

func (f *fixture) claim(t *testing.T, recipient [20]byte) *RecipientClaim {
	t.Helper()
	claim, err := f.engine.Claim(recipient)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	return claim
}

func TestInitializeDefaults(t *testing.T) {
	f := newFixture(t)
	st := f.state0(t)
	if st.Owner != f.owner || st.USDCMint != f.mint {
		t.Fatalf("unexpected identities: %+v", st)
	}
	if st.SendFee != SendFee || st.OwnerClaimable != 0 {
		t.Fatalf("unexpected defaults: %+v", st)
	}
	if _, err := f.engine.Initialize(addr(2), f.mint); !errors.Is(err, common.ErrAlreadyInitialized) {
		t.Fatalf("expected ErrAlreadyInitialized, got %v", err)
	}
}

func TestOperationsRequireInitialization(t *testing.T) {
	engine := NewEngine(addr(0xAB))
	engine.SetState(newMockState())
	engine.SetGateway(newMockGateway())
	if err := engine.Send(addr(3), "s", "b"); !errors.Is(err, common.ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
	if _, err := engine.ClaimRecipientShare(addr(3)); !errors.Is(err, common.ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}

func TestSplitFeeSumsToTotal(t *testing.T) {
	for _, total := range []uint64{0, 1, 9, 10, 11, 99, 100_000, 123_457, ^uint64(0)} {
		owner, recipient := splitFee(total)
		if owner+recipient != total {
			t.Fatalf("split of %d leaks: owner=%d recipient=%d", total, owner, recipient)
		}
		if owner != total/100*10+(total%100)*10/100 {
			t.Fatalf("owner share of %d not floored: %d", total, owner)
		}
	}
}

func TestPriorityScenarioBoundaryClaim(t *testing.T) {
	f := newFixture(t)
	sender := addr(3)
	f.gateway.balances[sender] = 100_000

	if err := f.engine.SendPriority(sender, "hello", "world"); err != nil {
		t.Fatalf("send priority: %v", err)
	}
	claim := f.claim(t, sender)
	if claim.Amount != 90_000 || claim.Timestamp != f.now {
		t.Fatalf("unexpected claim after send: %+v", claim)
	}
	if st := f.state0(t); st.OwnerClaimable != 10_000 {
		t.Fatalf("unexpected owner claimable: %d", st.OwnerClaimable)
	}
	if f.gateway.balances[f.engine.Custody()] != 100_000 || f.gateway.balances[sender] != 0 {
		t.Fatalf("fee not moved into custody")
	}
	if len(f.emitter.types) != 2 || f.emitter.types[0] != EventTypeSharesRecorded || f.emitter.types[1] != EventTypeMailSent {
		t.Fatalf("unexpected events: %v", f.emitter.types)
	}

	f.now = claim.Timestamp + ClaimPeriod
	amount, err := f.engine.ClaimRecipientShare(sender)
	if err != nil {
		t.Fatalf("boundary claim: %v", err)
	}
	if amount != 90_000 || f.gateway.balances[sender] != 90_000 {
		t.Fatalf("unexpected payout %d balance %d", amount, f.gateway.balances[sender])
	}
	claim = f.claim(t, sender)
	if claim.Amount != 0 || claim.Timestamp != 0 {
		t.Fatalf("claim not cleared: %+v", claim)
	}
}

func TestPriorityScenarioExpiredSweep(t *testing.T) {
	f := newFixture(t)
	sender := addr(3)
	f.gateway.balances[sender] = 100_000
	if err := f.engine.SendPriority(sender, "hello", "world"); err != nil {
		t.Fatalf("send priority: %v", err)
	}
	opened := f.claim(t, sender).Timestamp

	f.now = opened + ClaimPeriod + 1
	if _, err := f.engine.ClaimRecipientShare(sender); !errors.Is(err, ErrClaimPeriodExpired) || !errors.Is(err, common.ErrWindow) {
		t.Fatalf("expected window error, got %v", err)
	}
	if _, err := f.engine.ClaimExpiredShares(sender, sender); !errors.Is(err, ErrOnlyOwner) {
		t.Fatalf("expected only-owner error, got %v", err)
	}
	amount, err := f.engine.ClaimExpiredShares(f.owner, sender)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if amount != 90_000 {
		t.Fatalf("unexpected swept amount %d", amount)
	}
	if st := f.state0(t); st.OwnerClaimable != 100_000 {
		t.Fatalf("unexpected owner claimable: %d", st.OwnerClaimable)
	}
	claim := f.claim(t, sender)
	if claim.Amount != 0 || claim.Timestamp != 0 {
		t.Fatalf("claim not cleared: %+v", claim)
	}
	if f.gateway.calls != 1 {
		t.Fatalf("expiry must not move tokens, gateway calls=%d", f.gateway.calls)
	}
}

func TestExpiryRejectedInsideWindow(t *testing.T) {
	f := newFixture(t)
	sender := addr(3)
	f.gateway.balances[sender] = 100_000
	if err := f.engine.SendPriority(sender, "s", "b"); err != nil {
		t.Fatalf("send priority: %v", err)
	}
	f.now += ClaimPeriod
	if _, err := f.engine.ClaimExpiredShares(f.owner, sender); !errors.Is(err, ErrClaimPeriodNotExpired) {
		t.Fatalf("expected ErrClaimPeriodNotExpired at boundary, got %v", err)
	}
}

func TestClaimAndExpiryAreComplements(t *testing.T) {
	for _, offset := range []int64{0, 1, ClaimPeriod - 1, ClaimPeriod, ClaimPeriod + 1, 2 * ClaimPeriod} {
		f := newFixture(t)
		sender := addr(3)
		f.gateway.balances[sender] = 100_000
		if err := f.engine.SendPriority(sender, "s", "b"); err != nil {
			t.Fatalf("send priority: %v", err)
		}
		f.now += offset
		status, err := f.engine.ClaimStatus(sender)
		if err != nil {
			t.Fatalf("status: %v", err)
		}
		_, claimErr := f.engine.ClaimRecipientShare(sender)
		_, expireErr := f.engine.ClaimExpiredShares(f.owner, sender)
		if (claimErr == nil) == (expireErr == nil) {
			t.Fatalf("offset %d: claim=%v expire=%v must be exclusive", offset, claimErr, expireErr)
		}
		wantClaimable := offset <= ClaimPeriod
		if (claimErr == nil) != wantClaimable {
			t.Fatalf("offset %d: unexpected claim outcome %v", offset, claimErr)
		}
		if (status.Phase == ClaimPhaseClaimable) != wantClaimable {
			t.Fatalf("offset %d: status phase %s disagrees", offset, status.Phase)
		}
	}
}

func TestAccrualKeepsFirstTimestamp(t *testing.T) {
	f := newFixture(t)
	sender := addr(3)
	f.gateway.balances[sender] = 1_000_000
	fees := []uint64{100_000, 55_555, 1}
	var wantRecipient, wantOwner uint64
	first := f.now
	for i, fee := range fees {
		if err := f.engine.SetFee(f.owner, fee); err != nil {
			t.Fatalf("set fee: %v", err)
		}
		if err := f.engine.SendPriority(sender, "s", "b"); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
		wantOwner += fee * OwnerShare / 100
		wantRecipient += fee - fee*OwnerShare/100
		f.now += 1000
	}
	claim := f.claim(t, sender)
	if claim.Amount != wantRecipient {
		t.Fatalf("claim amount %d, want %d", claim.Amount, wantRecipient)
	}
	if claim.Timestamp != first {
		t.Fatalf("timestamp moved to %d, want %d", claim.Timestamp, first)
	}
	if st := f.state0(t); st.OwnerClaimable != wantOwner {
		t.Fatalf("owner claimable %d, want %d", st.OwnerClaimable, wantOwner)
	}

	if _, err := f.engine.ClaimRecipientShare(sender); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := f.engine.SendPriority(sender, "s", "b"); err != nil {
		t.Fatalf("send after claim: %v", err)
	}
	if reopened := f.claim(t, sender); reopened.Timestamp != f.now || reopened.Amount != 1 {
		t.Fatalf("expected a fresh window, got %+v", reopened)
	}
}

func TestStandardSendsOnlyCreditOwner(t *testing.T) {
	f := newFixture(t)
	sender := addr(3)
	f.gateway.balances[sender] = 1_000_000
	if err := f.engine.Send(sender, "s", "b"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := f.engine.SendPrepared(sender, "mail-1"); err != nil {
		t.Fatalf("send prepared: %v", err)
	}
	if st := f.state0(t); st.OwnerClaimable != 20_000 {
		t.Fatalf("unexpected owner claimable %d", st.OwnerClaimable)
	}
	if claim := f.claim(t, sender); claim.Amount != 0 || claim.Timestamp != 0 {
		t.Fatalf("standard send touched claim: %+v", claim)
	}
	if f.gateway.balances[sender] != 980_000 {
		t.Fatalf("unexpected sender balance %d", f.gateway.balances[sender])
	}
	if len(f.emitter.types) != 2 || f.emitter.types[0] != EventTypeMailSent || f.emitter.types[1] != EventTypePreparedMailSent {
		t.Fatalf("unexpected events: %v", f.emitter.types)
	}
}

func TestTransferFailureLeavesStateUntouched(t *testing.T) {
	f := newFixture(t)
	sender := addr(3)
	f.gateway.balances[sender] = 99_999
	if err := f.engine.SendPriorityPrepared(sender, "mail-1"); !errors.Is(err, errMockInsufficient) {
		t.Fatalf("expected gateway error, got %v", err)
	}
	if err := f.engine.Send(addr(4), "s", "b"); !errors.Is(err, errMockInsufficient) {
		t.Fatalf("expected gateway error, got %v", err)
	}
	if st := f.state0(t); st.OwnerClaimable != 0 {
		t.Fatalf("owner claimable changed: %d", st.OwnerClaimable)
	}
	if claim := f.claim(t, sender); claim.Amount != 0 {
		t.Fatalf("claim changed: %+v", claim)
	}
	if len(f.state.claims) != 0 {
		t.Fatalf("claim record created on failure")
	}
	if len(f.emitter.types) != 0 {
		t.Fatalf("events emitted on failure: %v", f.emitter.types)
	}
}

func TestClaimOwnerShare(t *testing.T) {
	f := newFixture(t)
	if _, err := f.engine.ClaimOwnerShare(f.owner); !errors.Is(err, ErrNoClaimableAmount) {
		t.Fatalf("expected ErrNoClaimableAmount, got %v", err)
	}
	sender := addr(3)
	f.gateway.balances[sender] = 100_000
	if err := f.engine.Send(sender, "s", "b"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := f.engine.ClaimOwnerShare(sender); !errors.Is(err, common.ErrAuthorization) {
		t.Fatalf("expected authorization error, got %v", err)
	}
	amount, err := f.engine.ClaimOwnerShare(f.owner)
	if err != nil {
		t.Fatalf("claim owner share: %v", err)
	}
	if amount != 10_000 || f.gateway.balances[f.owner] != 10_000 {
		t.Fatalf("unexpected owner payout %d balance %d", amount, f.gateway.balances[f.owner])
	}
	if st := f.state0(t); st.OwnerClaimable != 0 {
		t.Fatalf("owner claimable not cleared")
	}
}

func TestClaimRecipientShareWithoutAccrual(t *testing.T) {
	f := newFixture(t)
	if _, err := f.engine.ClaimRecipientShare(addr(9)); !errors.Is(err, ErrNoClaimableAmount) || !errors.Is(err, common.ErrState) {
		t.Fatalf("expected no claimable state error, got %v", err)
	}
	if _, err := f.engine.ClaimExpiredShares(f.owner, addr(9)); !errors.Is(err, ErrNoClaimableAmount) {
		t.Fatalf("expected ErrNoClaimableAmount, got %v", err)
	}
}

func TestSetFeeOwnerOnly(t *testing.T) {
	f := newFixture(t)
	if err := f.engine.SetFee(addr(3), 1); !errors.Is(err, ErrOnlyOwner) {
		t.Fatalf("expected ErrOnlyOwner, got %v", err)
	}
	if err := f.engine.SetFee(f.owner, 250_000); err != nil {
		t.Fatalf("set fee: %v", err)
	}
	if st := f.state0(t); st.SendFee != 250_000 {
		t.Fatalf("fee not updated: %d", st.SendFee)
	}
	if len(f.emitter.types) != 1 || f.emitter.types[0] != EventTypeFeeUpdated {
		t.Fatalf("unexpected events: %v", f.emitter.types)
	}
}

func TestZeroFeeDoesNotOpenWindow(t *testing.T) {
	f := newFixture(t)
	if err := f.engine.SetFee(f.owner, 0); err != nil {
		t.Fatalf("set fee: %v", err)
	}
	if err := f.engine.SendPriority(addr(3), "s", "b"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if claim := f.claim(t, addr(3)); claim.Amount != 0 || claim.Timestamp != 0 {
		t.Fatalf("zero accrual opened a window: %+v", claim)
	}
}

func TestOwnerClaimableOverflowAborts(t *testing.T) {
	f := newFixture(t)
	st := f.state0(t)
	st.OwnerClaimable = ^uint64(0)
	_ = f.state.MailerStatePut(f.engine.Program(), st)
	f.gateway.balances[addr(3)] = 100_000
	if err := f.engine.Send(addr(3), "s", "b"); !errors.Is(err, common.ErrArithmeticOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	if f.gateway.calls != 0 {
		t.Fatalf("transfer must not run when accounting would overflow")
	}
}
