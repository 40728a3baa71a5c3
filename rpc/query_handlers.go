package rpc

import (
	"errors"
	"net/http"
	"strings"

	"mailchain/core"
	"mailchain/crypto"
	"mailchain/native/common"
	"mailchain/services/indexer"
)

type recipientParams struct {
	Recipient string `json:"recipient"`
}

type delegatorParams struct {
	Delegator string `json:"delegator"`
}

type addressParams struct {
	Address string `json:"address"`
}

type balanceParams struct {
	Mint  string `json:"mint"`
	Owner string `json:"owner"`
}

type listEventsParams struct {
	Type    string `json:"type,omitempty"`
	Program string `json:"program,omitempty"`
	TxHash  string `json:"txHash,omitempty"`
	Account string `json:"account,omitempty"`
	After   int64  `json:"after,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

func (s *Server) writeQueryError(w http.ResponseWriter, req *RPCRequest, err error) {
	if errors.Is(err, common.ErrNotInitialized) || errors.Is(err, core.ErrProgramNotConfigured) {
		writeError(w, http.StatusNotFound, req.ID, codeNotFound, err.Error(), nil)
		return
	}
	writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "query failed", err.Error())
}

func (s *Server) queryAvailable(w http.ResponseWriter, req *RPCRequest) bool {
	if s.query == nil {
		writeError(w, http.StatusServiceUnavailable, req.ID, codeServerError, "state queries unavailable", nil)
		return false
	}
	return true
}

// identityParam decodes a bech32 address field, writing the error response
// when it is invalid.
func identityParam(w http.ResponseWriter, req *RPCRequest, field, value string) ([20]byte, bool) {
	if strings.TrimSpace(value) == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, field+" is required", nil)
		return [20]byte{}, false
	}
	id, err := crypto.ParseIdentity(value)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid "+field+" address", err.Error())
		return [20]byte{}, false
	}
	return id, true
}

func (s *Server) handleGetMailerState(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if !s.queryAvailable(w, req) {
		return
	}
	st, err := s.query.MailerState()
	if err != nil {
		s.writeQueryError(w, req, err)
		return
	}
	custody, err := s.query.MailerCustody()
	if err != nil {
		s.writeQueryError(w, req, err)
		return
	}
	writeResult(w, req.ID, mailerStateResult(st, custody))
}

func (s *Server) handleGetRecipientClaim(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if !s.queryAvailable(w, req) {
		return
	}
	var params recipientParams
	if rpcErr := decodeParamObject(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	recipient, ok := identityParam(w, req, "recipient", params.Recipient)
	if !ok {
		return
	}
	claim, err := s.query.RecipientClaim(recipient)
	if err != nil {
		s.writeQueryError(w, req, err)
		return
	}
	writeResult(w, req.ID, claimResult(claim))
}

func (s *Server) handleGetClaimStatus(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if !s.queryAvailable(w, req) {
		return
	}
	var params recipientParams
	if rpcErr := decodeParamObject(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	recipient, ok := identityParam(w, req, "recipient", params.Recipient)
	if !ok {
		return
	}
	status, err := s.query.ClaimStatus(recipient)
	if err != nil {
		s.writeQueryError(w, req, err)
		return
	}
	writeResult(w, req.ID, claimStatusResult(status))
}

func (s *Server) handleGetServiceState(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if !s.queryAvailable(w, req) {
		return
	}
	st, err := s.query.MailServiceState()
	if err != nil {
		s.writeQueryError(w, req, err)
		return
	}
	custody, err := s.query.MailServiceCustody()
	if err != nil {
		s.writeQueryError(w, req, err)
		return
	}
	writeResult(w, req.ID, serviceStateResult(st, custody))
}

func (s *Server) handleGetDelegation(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if !s.queryAvailable(w, req) {
		return
	}
	var params delegatorParams
	if rpcErr := decodeParamObject(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	delegator, ok := identityParam(w, req, "delegator", params.Delegator)
	if !ok {
		return
	}
	delegation, err := s.query.Delegation(delegator)
	if err != nil {
		s.writeQueryError(w, req, err)
		return
	}
	writeResult(w, req.ID, delegationResult(delegation))
}

func (s *Server) handleGetNonce(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if !s.queryAvailable(w, req) {
		return
	}
	var params addressParams
	if rpcErr := decodeParamObject(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	addr, ok := identityParam(w, req, "address", params.Address)
	if !ok {
		return
	}
	nonce, err := s.query.Nonce(addr)
	if err != nil {
		s.writeQueryError(w, req, err)
		return
	}
	writeResult(w, req.ID, NonceResult{Address: params.Address, Nonce: nonce})
}

func (s *Server) handleGetBalance(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if !s.queryAvailable(w, req) {
		return
	}
	var params balanceParams
	if rpcErr := decodeParamObject(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	mint, err := ParseMint(params.Mint)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid mint", err.Error())
		return
	}
	owner, ok := identityParam(w, req, "owner", params.Owner)
	if !ok {
		return
	}
	balance, err := s.query.TokenBalance(mint, owner)
	if err != nil {
		s.writeQueryError(w, req, err)
		return
	}
	writeResult(w, req.ID, BalanceResult{Mint: encodeHex(mint[:]), Owner: params.Owner, Balance: balance})
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if s.events == nil {
		writeError(w, http.StatusServiceUnavailable, req.ID, codeServerError, "event index disabled", nil)
		return
	}
	var params listEventsParams
	if len(req.Params) > 0 {
		if rpcErr := decodeParamObject(req, &params); rpcErr != nil {
			writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
			return
		}
	}
	if params.Account != "" {
		if _, ok := identityParam(w, req, "account", params.Account); !ok {
			return
		}
	}
	records, err := s.events.List(r.Context(), indexer.Filter{
		Type:    params.Type,
		Program: params.Program,
		TxHash:  params.TxHash,
		Account: params.Account,
		After:   params.After,
		Limit:   params.Limit,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to list events", err.Error())
		return
	}
	if records == nil {
		records = []indexer.Record{}
	}
	writeResult(w, req.ID, records)
}
