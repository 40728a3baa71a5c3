package rpc

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"mailchain/core"
	"mailchain/core/events"
	"mailchain/core/programs"
	"mailchain/core/types"
	"mailchain/crypto"
	"mailchain/native/mailer"
	"mailchain/native/mailservice"
	"mailchain/services/indexer"
	"mailchain/storage"
)

const testChainID = 99

type testSigner struct {
	key   *ecdsa.PrivateKey
	addr  [20]byte
	nonce uint64
}

func newSigner(t *testing.T) *testSigner {
	t.Helper()
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	var addr [20]byte
	copy(addr[:], ethcrypto.PubkeyToAddress(key.PublicKey).Bytes())
	return &testSigner{key: key, addr: addr}
}

func (s *testSigner) bech32() string { return crypto.FromArray(s.addr).String() }

type fixture struct {
	t         *testing.T
	server    *Server
	http      *httptest.Server
	broker    *events.Broker
	index     *indexer.Store
	now       int64
	owner     *testSigner
	mint      [20]byte
	mailerID  [20]byte
	serviceID [20]byte
	tokenID   [20]byte
}

func newFixture(t *testing.T, cfg ServerConfig) *fixture {
	t.Helper()
	f := &fixture{
		t:         t,
		now:       1_700_000_000,
		owner:     newSigner(t),
		broker:    events.NewBroker(),
		mailerID:  programs.DefaultID(programs.NameMailer),
		serviceID: programs.DefaultID(programs.NameMailService),
		tokenID:   programs.DefaultID(programs.NameToken),
	}
	f.mint[19] = 0x42

	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	mailerProgram := programs.NewMailerProgram(f.mailerID)
	serviceProgram := programs.NewMailServiceProgram(f.serviceID)
	registry, err := programs.NewRegistry(mailerProgram, serviceProgram, programs.NewTokenProgram(f.tokenID))
	require.NoError(t, err)

	index, err := indexer.Open(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })
	f.index = index

	sp := core.NewStateProcessor(db, registry, testChainID)
	sp.SetNowFunc(func() int64 { return f.now })
	sp.SetEmitter(events.Multi{f.broker, index})
	query := core.NewQuery(db, mailerProgram, serviceProgram, func() int64 { return f.now })

	f.server = NewServer(sp, query, f.broker, index, cfg)
	f.http = httptest.NewServer(f.server.Handler())
	t.Cleanup(f.http.Close)
	return f
}

func (f *fixture) bootstrap(token string) {
	f.t.Helper()
	f.send(f.owner, f.tokenID, programs.MethodTokenCreateMint, programs.CreateMintArgs{Mint: f.mint, Decimals: 6}, token)
	f.send(f.owner, f.mailerID, programs.MethodMailerInitialize, programs.InitializeArgs{USDCMint: f.mint}, token)
	f.send(f.owner, f.serviceID, programs.MethodServiceInitialize, programs.InitializeArgs{USDCMint: f.mint}, token)
}

func (f *fixture) signed(from *testSigner, program [20]byte, method string, args interface{}) TransactionParams {
	f.t.Helper()
	data, err := programs.EncodeArgs(args)
	require.NoError(f.t, err)
	tx := &types.Transaction{
		ChainID: testChainID,
		Program: append([]byte(nil), program[:]...),
		Method:  method,
		Nonce:   from.nonce,
		Data:    data,
	}
	require.NoError(f.t, tx.Sign(from.key))
	return TransactionParamsFrom(tx)
}

func (f *fixture) call(method string, params interface{}, token string) (int, RPCResponse) {
	f.t.Helper()
	req := map[string]interface{}{"jsonrpc": "2.0", "id": 1, "method": method}
	if params != nil {
		req["params"] = []interface{}{params}
	}
	body, err := json.Marshal(req)
	require.NoError(f.t, err)
	httpReq, err := http.NewRequest(http.MethodPost, f.http.URL+"/", bytes.NewReader(body))
	require.NoError(f.t, err)
	httpReq.Header.Set("Content-Type", "application/json")
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(httpReq)
	require.NoError(f.t, err)
	defer resp.Body.Close()
	var out RPCResponse
	require.NoError(f.t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func (f *fixture) send(from *testSigner, program [20]byte, method string, args interface{}, token string) RPCResponse {
	f.t.Helper()
	status, resp := f.call("mail_sendTransaction", f.signed(from, program, method, args), token)
	require.Equal(f.t, http.StatusOK, status, "%s: %+v", method, resp.Error)
	require.Nil(f.t, resp.Error)
	from.nonce++
	return resp
}

func decodeResult(t *testing.T, resp RPCResponse, out interface{}) {
	t.Helper()
	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

func TestSendPriorityAndQueryClaim(t *testing.T) {
	f := newFixture(t, ServerConfig{})
	f.bootstrap("")
	alice := newSigner(t)
	f.send(f.owner, f.tokenID, programs.MethodTokenMintTo, programs.MintToArgs{Mint: f.mint, To: alice.addr, Amount: 1_000_000}, "")

	resp := f.send(alice, f.mailerID, programs.MethodMailerSendPriority, programs.SendArgs{Subject: "hi", Body: "there"}, "")
	var receipt types.Receipt
	decodeResult(t, resp, &receipt)
	require.Equal(t, programs.NameMailer, receipt.Program)
	require.Equal(t, alice.bech32(), receipt.Signer)
	require.Len(t, receipt.Events, 3)
	require.Equal(t, mailer.EventTypeMailSent, receipt.Events[2].Type)

	status, claimResp := f.call("mail_getClaimStatus", recipientParams{Recipient: alice.bech32()}, "")
	require.Equal(t, http.StatusOK, status)
	var claim ClaimResult
	decodeResult(t, claimResp, &claim)
	require.Equal(t, uint64(90_000), claim.Amount)
	require.Equal(t, string(mailer.ClaimPhaseClaimable), claim.Phase)
	require.Equal(t, f.now+mailer.ClaimPeriod, claim.WindowEnd)

	_, stateResp := f.call("mail_getMailerState", nil, "")
	var st MailerStateResult
	decodeResult(t, stateResp, &st)
	require.Equal(t, mailer.SendFee, st.SendFee)
	require.Equal(t, f.owner.bech32(), st.Owner)

	_, balanceResp := f.call("token_getBalance", balanceParams{Mint: encodeHex(f.mint[:]), Owner: alice.bech32()}, "")
	var balance BalanceResult
	decodeResult(t, balanceResp, &balance)
	require.Equal(t, uint64(900_000), balance.Balance)

	_, nonceResp := f.call("mail_getNonce", addressParams{Address: alice.bech32()}, "")
	var nonce NonceResult
	decodeResult(t, nonceResp, &nonce)
	require.Equal(t, uint64(1), nonce.Nonce)

	_, eventsResp := f.call("mail_listEvents", listEventsParams{Account: alice.bech32(), Type: mailer.EventTypeSharesRecorded}, "")
	var records []indexer.Record
	decodeResult(t, eventsResp, &records)
	require.Len(t, records, 1)
	require.Equal(t, "90000", records[0].Event.Attributes["recipientAmount"])
}

func TestProgramErrorsAreClassified(t *testing.T) {
	f := newFixture(t, ServerConfig{})
	f.bootstrap("")
	alice := newSigner(t)

	status, resp := f.call("mail_sendTransaction", f.signed(alice, f.mailerID, programs.MethodMailerClaimRecipientShare, programs.NoArgs{}), "")
	require.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeRejected, resp.Error.Code)
	var data ProgramErrorData
	raw, _ := json.Marshal(resp.Error.Data)
	require.NoError(t, json.Unmarshal(raw, &data))
	require.Equal(t, "state", data.Kind)
	require.Equal(t, 6001, data.Code)

	// nonce was not consumed, so a wrong nonce is rejected as invalid params
	alice.nonce = 5
	status, resp = f.call("mail_sendTransaction", f.signed(alice, f.mailerID, programs.MethodMailerSend, programs.SendArgs{}), "")
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, codeInvalidParams, resp.Error.Code)

	alice.nonce = 0
	status, resp = f.call("mail_sendTransaction", f.signed(alice, f.mailerID, "bogus", programs.NoArgs{}), "")
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, codeMethodNotFound, resp.Error.Code)
}

func TestRequestValidation(t *testing.T) {
	f := newFixture(t, ServerConfig{})

	status, resp := f.call("mail_unknown", nil, "")
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, codeMethodNotFound, resp.Error.Code)

	status, resp = f.call("mail_getClaimStatus", map[string]string{"recipient": "nope"}, "")
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, codeInvalidParams, resp.Error.Code)

	status, resp = f.call("mail_getClaimStatus", map[string]string{"who": "x"}, "")
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, codeInvalidParams, resp.Error.Code)

	status, resp = f.call("mail_getMailerState", nil, "")
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, codeNotFound, resp.Error.Code)

	httpResp, err := http.Post(f.http.URL+"/", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	httpResp.Body.Close()
	require.Equal(t, http.StatusBadRequest, httpResp.StatusCode)
	require.NotEmpty(t, httpResp.Header.Get(requestIDHeader))
}

func TestSendTransactionRequiresJWT(t *testing.T) {
	secret := []byte("test-secret")
	f := newFixture(t, ServerConfig{JWTSecret: secret})
	alice := newSigner(t)
	params := f.signed(alice, f.tokenID, programs.MethodTokenCreateMint, programs.CreateMintArgs{Mint: f.mint})

	status, resp := f.call("mail_sendTransaction", params, "")
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, codeUnauthorized, resp.Error.Code)

	bad := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	badToken, err := bad.SignedString([]byte("other"))
	require.NoError(t, err)
	status, _ = f.call("mail_sendTransaction", params, badToken)
	require.Equal(t, http.StatusUnauthorized, status)

	good := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	token, err := good.SignedString(secret)
	require.NoError(t, err)
	f.send(alice, f.tokenID, programs.MethodTokenCreateMint, programs.CreateMintArgs{Mint: f.mint}, token)

	// queries stay open
	status, _ = f.call("mail_getNonce", addressParams{Address: alice.bech32()}, "")
	require.Equal(t, http.StatusOK, status)
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, ServerConfig{RateLimitPerSecond: 0.001, RateBurst: 1})
	alice := newSigner(t)
	status, _ := f.call("mail_getNonce", addressParams{Address: alice.bech32()}, "")
	require.Equal(t, http.StatusOK, status)
	status, resp := f.call("mail_getNonce", addressParams{Address: alice.bech32()}, "")
	require.Equal(t, http.StatusTooManyRequests, status)
	require.Equal(t, codeRateLimited, resp.Error.Code)
}

func TestEventStream(t *testing.T) {
	f := newFixture(t, ServerConfig{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(f.http.URL, "http") + "/ws/events?type=mailer."
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "done")

	require.Eventually(t, func() bool { return f.broker.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)
	f.bootstrap("")

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var evt types.Event
	require.NoError(t, json.Unmarshal(data, &evt))
	require.Equal(t, mailer.EventTypeInitialized, evt.Type)
	require.Equal(t, programs.NameMailer, evt.Program)
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t, ServerConfig{})
	resp, err := http.Get(f.http.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(f.http.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestTransactionParamsRoundTrip(t *testing.T) {
	f := newFixture(t, ServerConfig{})
	alice := newSigner(t)
	params := f.signed(alice, f.mailerID, programs.MethodMailerSend, programs.SendArgs{Subject: "a"})
	tx, err := params.Transaction()
	require.NoError(t, err)
	from, err := tx.From()
	require.NoError(t, err)
	require.Equal(t, alice.addr[:], from)

	params.R = "zz"
	_, err = params.Transaction()
	require.Error(t, err)
}

func TestDelegationQueryTracksSetAndClear(t *testing.T) {
	f := newFixture(t, ServerConfig{})
	f.bootstrap("")
	alice, bob := newSigner(t), newSigner(t)
	f.send(f.owner, f.tokenID, programs.MethodTokenMintTo, programs.MintToArgs{Mint: f.mint, To: alice.addr, Amount: mailservice.DelegationFee}, "")

	query := func() DelegationResult {
		t.Helper()
		status, resp := f.call("mail_getDelegation", delegatorParams{Delegator: alice.bech32()}, "")
		require.Equal(t, http.StatusOK, status)
		require.Nil(t, resp.Error)
		var out DelegationResult
		decodeResult(t, resp, &out)
		return out
	}

	require.Equal(t, DelegationResult{Delegator: alice.bech32()}, query())

	f.send(alice, f.serviceID, programs.MethodServiceDelegateTo, programs.DelegateArgs{Delegate: bob.addr[:]}, "")
	require.Equal(t, DelegationResult{Delegator: alice.bech32(), Delegate: bob.bech32(), Active: true}, query())

	f.send(bob, f.serviceID, programs.MethodServiceRejectDelegation, programs.RejectDelegationArgs{Delegator: alice.addr}, "")
	require.Equal(t, DelegationResult{Delegator: alice.bech32()}, query())

	f.send(alice, f.serviceID, programs.MethodServiceDelegateTo, programs.DelegateArgs{}, "")
	require.Equal(t, DelegationResult{Delegator: alice.bech32()}, query())

	_, balanceResp := f.call("token_getBalance", balanceParams{Mint: encodeHex(f.mint[:]), Owner: alice.bech32()}, "")
	var balance BalanceResult
	decodeResult(t, balanceResp, &balance)
	require.Zero(t, balance.Balance)
}

func TestRejectDelegationByStrangerIsAuthorizationError(t *testing.T) {
	f := newFixture(t, ServerConfig{})
	f.bootstrap("")
	alice, bob, carol := newSigner(t), newSigner(t), newSigner(t)
	f.send(f.owner, f.tokenID, programs.MethodTokenMintTo, programs.MintToArgs{Mint: f.mint, To: alice.addr, Amount: mailservice.DelegationFee}, "")
	f.send(alice, f.serviceID, programs.MethodServiceDelegateTo, programs.DelegateArgs{Delegate: bob.addr[:]}, "")

	status, resp := f.call("mail_sendTransaction", f.signed(carol, f.serviceID, programs.MethodServiceRejectDelegation, programs.RejectDelegationArgs{Delegator: alice.addr}), "")
	require.Equal(t, http.StatusBadRequest, status)
	var data ProgramErrorData
	raw, _ := json.Marshal(resp.Error.Data)
	require.NoError(t, json.Unmarshal(raw, &data))
	require.Equal(t, "authorization", data.Kind)
	require.Equal(t, 6003, data.Code)
}

func TestPaddedMethodIsNotRewritten(t *testing.T) {
	f := newFixture(t, ServerConfig{})
	f.bootstrap("")
	params := f.signed(f.owner, f.mailerID, " "+programs.MethodMailerSetFee, programs.SetFeeArgs{Fee: 1})

	tx, err := params.Transaction()
	require.NoError(t, err)
	require.Equal(t, " "+programs.MethodMailerSetFee, tx.Method)
	from, err := tx.From()
	require.NoError(t, err)
	require.Equal(t, f.owner.addr[:], from)

	status, resp := f.call("mail_sendTransaction", params, "")
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, codeMethodNotFound, resp.Error.Code)
}
