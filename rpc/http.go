package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"mailchain/core"
	"mailchain/core/events"
	"mailchain/core/types"
	"mailchain/observability"
	"mailchain/services/indexer"
)

const (
	jsonRPCVersion         = "2.0"
	defaultMaxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeNotFound       = -32004
	codeRateLimited    = -32020
	codeRejected       = -32050
)

// Applier executes signed transactions.
type Applier interface {
	Apply(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
}

// EventLister serves historical events.
type EventLister interface {
	List(ctx context.Context, filter indexer.Filter) ([]indexer.Record, error)
}

// ServerConfig tunes the HTTP surface.
type ServerConfig struct {
	RateLimitPerSecond float64
	RateBurst          int
	MaxBodyBytes       int64
	ReadHeaderTimeout  time.Duration
	// JWTSecret enables HS256 bearer auth on mail_sendTransaction when set.
	JWTSecret []byte
	Logger    *slog.Logger
}

type Server struct {
	applier Applier
	query   *core.Query
	broker  *events.Broker
	events  EventLister

	cfg     ServerConfig
	logger  *slog.Logger
	limiter *clientLimiter

	serverMu   sync.Mutex
	httpServer *http.Server
}

// NewServer wires the JSON-RPC, websocket and metrics endpoints. broker and
// lister may be nil, which disables streaming and mail_listEvents.
func NewServer(applier Applier, query *core.Query, broker *events.Broker, lister EventLister, cfg ServerConfig) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxRequestBytes
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = 5 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		applier: applier,
		query:   query,
		broker:  broker,
		events:  lister,
		cfg:     cfg,
		logger:  logger.With("component", "rpc"),
		limiter: newClientLimiter(cfg.RateLimitPerSecond, cfg.RateBurst),
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws/events", s.handleEventStream)
	r.Post("/", s.handle)
	return otelhttp.NewHandler(r, "mailchain.rpc")
}

// Serve accepts connections on listener until Shutdown is called.
func (s *Server) Serve(listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
	}
	s.serverMu.Lock()
	s.httpServer = srv
	s.serverMu.Unlock()
	s.logger.Info("serving JSON-RPC", "address", listener.Addr().String())
	return srv.Serve(listener)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.serverMu.Lock()
	srv := s.httpServer
	s.serverMu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *RPCError) Error() string { return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message) }

// statusWriter remembers the JSON-RPC error code for metrics.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if sw, ok := w.(*statusWriter); ok {
		sw.code = code
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

type handlerFunc func(s *Server, w http.ResponseWriter, r *http.Request, req *RPCRequest)

var methods = map[string]handlerFunc{
	"mail_sendTransaction":   (*Server).handleSendTransaction,
	"mail_getMailerState":    (*Server).handleGetMailerState,
	"mail_getRecipientClaim": (*Server).handleGetRecipientClaim,
	"mail_getClaimStatus":    (*Server).handleGetClaimStatus,
	"mail_getServiceState":   (*Server).handleGetServiceState,
	"mail_getDelegation":     (*Server).handleGetDelegation,
	"mail_getNonce":          (*Server).handleGetNonce,
	"mail_listEvents":        (*Server).handleListEvents,
	"token_getBalance":       (*Server).handleGetBalance,
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	sw := &statusWriter{ResponseWriter: w}
	reader := http.MaxBytesReader(sw, r.Body, s.cfg.MaxBodyBytes)
	defer func() {
		_ = reader.Close()
	}()

	sw.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", s.cfg.MaxBodyBytes)
		}
		writeError(sw, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(sw, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(sw, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(sw, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(sw, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}
	module := moduleOf(req.Method)
	defer func() {
		observability.ModuleMetrics().Observe(module, req.Method, sw.code, time.Since(start))
	}()

	handler, ok := methods[req.Method]
	if !ok {
		writeError(sw, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("unknown method %s", req.Method), nil)
		return
	}
	if source := clientSource(r); !s.limiter.allow(source) {
		observability.ModuleMetrics().RecordThrottle(module, "rate_limit")
		writeError(sw, http.StatusTooManyRequests, req.ID, codeRateLimited, "rate limit exceeded", source)
		return
	}
	handler(s, sw, r, req)
}

func moduleOf(method string) string {
	if module, _, ok := strings.Cut(method, "_"); ok {
		return module
	}
	return "unknown"
}

func clientSource(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// decodeParamObject unmarshals the single positional parameter object.
func decodeParamObject(req *RPCRequest, out interface{}) *RPCError {
	if len(req.Params) != 1 {
		return &RPCError{Code: codeInvalidParams, Message: "exactly one parameter object expected"}
	}
	dec := json.NewDecoder(bytes.NewReader(req.Params[0]))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return &RPCError{Code: codeInvalidParams, Message: "invalid parameter object", Data: err.Error()}
	}
	return nil
}
