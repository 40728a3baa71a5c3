package core

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mailchain/core/events"
	"mailchain/core/programs"
	"mailchain/core/state"
	"mailchain/core/types"
	"mailchain/crypto"
	"mailchain/observability"
	"mailchain/storage"
)

var (
	ErrNilTransaction   = errors.New("core: nil transaction")
	ErrChainIDMismatch  = errors.New("core: chain id mismatch")
	ErrInvalidNonce     = errors.New("core: invalid nonce")
	ErrInvalidSignature = errors.New("core: invalid signature")
)

// StateProcessor applies signed instructions to the ledger. Each transaction
// runs inside one storage write transaction: either every write and event it
// produced commits, or none do.
type StateProcessor struct {
	db       storage.Database
	registry *programs.Registry
	chainID  uint64
	emitter  events.Emitter
	nowFn    func() int64
	logger   *slog.Logger
	tracer   trace.Tracer

	// commitMu orders commit and event delivery so emitters observe events
	// in commit order.
	commitMu sync.Mutex
}

// NewStateProcessor constructs a processor over db dispatching to registry.
func NewStateProcessor(db storage.Database, registry *programs.Registry, chainID uint64) *StateProcessor {
	return &StateProcessor{
		db:       db,
		registry: registry,
		chainID:  chainID,
		emitter:  events.NoopEmitter{},
		nowFn:    func() int64 { return time.Now().Unix() },
		logger:   slog.Default(),
		tracer:   otel.Tracer("mailchain/core"),
	}
}

// SetEmitter configures where committed events are forwarded.
func (sp *StateProcessor) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		sp.emitter = events.NoopEmitter{}
		return
	}
	sp.emitter = emitter
}

// SetNowFunc overrides the ledger clock.
func (sp *StateProcessor) SetNowFunc(now func() int64) {
	if now == nil {
		sp.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	sp.nowFn = now
}

// SetLogger replaces the structured logger.
func (sp *StateProcessor) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	sp.logger = logger
}

// ChainID returns the chain id transactions must be bound to.
func (sp *StateProcessor) ChainID() uint64 { return sp.chainID }

func (sp *StateProcessor) now() int64 {
	if sp.nowFn == nil {
		return time.Now().Unix()
	}
	return sp.nowFn()
}

// Apply verifies and executes tx, returning a receipt for committed
// transactions.
func (sp *StateProcessor) Apply(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	if tx == nil {
		return nil, ErrNilTransaction
	}
	start := time.Now()
	ctx, span := sp.tracer.Start(ctx, "StateProcessor.Apply", trace.WithAttributes(
		attribute.String("tx.method", tx.Method),
		attribute.Int64("tx.nonce", int64(tx.Nonce)),
	))
	defer span.End()

	receipt, programName, err := sp.apply(tx)
	observability.Runtime().ObserveTransaction(programName, tx.Method, err, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		sp.logger.WarnContext(ctx, "transaction rejected",
			slog.String("program", programName),
			slog.String("method", tx.Method),
			slog.Uint64("nonce", tx.Nonce),
			slog.String("error", err.Error()))
		return nil, err
	}
	for _, evt := range receipt.Events {
		observability.Runtime().RecordEvent(evt.Type, evt.Attributes)
	}
	span.SetAttributes(attribute.String("tx.hash", receipt.TxHash), attribute.String("tx.program", programName))
	sp.logger.DebugContext(ctx, "transaction applied",
		slog.String("tx_hash", receipt.TxHash),
		slog.String("program", programName),
		slog.String("method", tx.Method),
		slog.String("signer", receipt.Signer),
		slog.Int("events", len(receipt.Events)))
	return receipt, nil
}

func (sp *StateProcessor) apply(tx *types.Transaction) (*types.Receipt, string, error) {
	if tx.ChainID != sp.chainID {
		return nil, "", fmt.Errorf("%w: expected %d, got %d", ErrChainIDMismatch, sp.chainID, tx.ChainID)
	}
	programID, err := tx.ProgramID()
	if err != nil {
		return nil, "", err
	}
	program, err := sp.registry.Lookup(programID)
	if err != nil {
		return nil, "", err
	}
	from, err := tx.From()
	if err != nil {
		return nil, program.Name(), fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	var signer [20]byte
	copy(signer[:], from)
	hash, err := tx.Hash()
	if err != nil {
		return nil, program.Name(), err
	}

	now := sp.now()
	buffer := events.NewBuffer()
	sp.commitMu.Lock()
	defer sp.commitMu.Unlock()
	err = sp.db.Update(func(txn storage.Txn) error {
		manager := state.NewManager(txn)
		nonce, err := manager.NonceGet(signer)
		if err != nil {
			return err
		}
		if nonce != tx.Nonce {
			return fmt.Errorf("%w: expected %d, got %d", ErrInvalidNonce, nonce, tx.Nonce)
		}
		execCtx := &programs.ExecContext{
			Caller:  signer,
			Now:     now,
			State:   manager,
			Emitter: buffer,
		}
		if err := program.Execute(execCtx, tx.Method, tx.Data); err != nil {
			return err
		}
		return manager.NoncePut(signer, nonce+1)
	})
	if err != nil {
		buffer.Reset()
		return nil, program.Name(), err
	}

	txHash := "0x" + hex.EncodeToString(hash)
	committed := buffer.Flush(sp.emitter, program.Name(), txHash, now)
	return &types.Receipt{
		TxHash:    txHash,
		Program:   program.Name(),
		Method:    tx.Method,
		Signer:    crypto.FromArray(signer).String(),
		Nonce:     tx.Nonce,
		Timestamp: now,
		Events:    committed,
	}, program.Name(), nil
}
