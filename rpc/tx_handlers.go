package rpc

import (
	"errors"
	"net/http"

	"mailchain/core"
	"mailchain/core/programs"
	"mailchain/core/types"
	"mailchain/native/common"
)

// ProgramErrorData describes an instruction that aborted inside a program.
type ProgramErrorData struct {
	Kind    string `json:"kind"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (s *Server) handleSendTransaction(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	if s.applier == nil {
		writeError(w, http.StatusServiceUnavailable, req.ID, codeServerError, "transaction processing unavailable", nil)
		return
	}
	var params TransactionParams
	if rpcErr := decodeParamObject(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	tx, err := params.Transaction()
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid transaction format", err.Error())
		return
	}

	receipt, err := s.applier.Apply(r.Context(), tx)
	if err != nil {
		s.logger.WarnContext(r.Context(), "transaction rejected",
			"requestId", RequestIDFromContext(r.Context()),
			"method", tx.Method,
			"error", err.Error())
		status, code, message, data := classifyApplyError(err)
		writeError(w, status, req.ID, code, message, data)
		return
	}
	writeResult(w, req.ID, receipt)
}

func classifyApplyError(err error) (int, int, string, interface{}) {
	var classified *common.Error
	switch {
	case errors.As(err, &classified):
		return http.StatusBadRequest, codeRejected, "instruction rejected", ProgramErrorData{
			Kind:    classified.Kind.String(),
			Code:    classified.Code,
			Message: classified.Message,
		}
	case errors.Is(err, core.ErrInvalidSignature), errors.Is(err, types.ErrMissingSignature):
		return http.StatusUnauthorized, codeUnauthorized, "invalid transaction signature", err.Error()
	case errors.Is(err, core.ErrChainIDMismatch),
		errors.Is(err, core.ErrInvalidNonce),
		errors.Is(err, types.ErrInvalidProgram),
		errors.Is(err, programs.ErrInvalidArgs):
		return http.StatusBadRequest, codeInvalidParams, "invalid transaction", err.Error()
	case errors.Is(err, programs.ErrUnknownProgram), errors.Is(err, programs.ErrUnknownMethod):
		return http.StatusNotFound, codeMethodNotFound, "unknown program instruction", err.Error()
	default:
		return http.StatusInternalServerError, codeServerError, "failed to apply transaction", err.Error()
	}
}
