package programs

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"mailchain/core/events"
	"mailchain/core/state"
	"mailchain/crypto"
)

var (
	ErrUnknownProgram = errors.New("programs: unknown program")
	ErrUnknownMethod  = errors.New("programs: unknown method")
	ErrInvalidArgs    = errors.New("programs: invalid arguments")
)

// Well-known program names. Default program ids are derived from them.
const (
	NameMailer      = "mailer"
	NameMailService = "mailservice"
	NameToken       = "token"
)

// ExecContext carries the capabilities available to a single instruction.
// State and Emitter are scoped to the enclosing transaction; Caller is the
// recovered signer and Now is the clock reading taken once per transaction.
type ExecContext struct {
	Caller  [20]byte
	Now     int64
	State   *state.Manager
	Emitter events.Emitter
}

// Program dispatches signed instructions to a native engine.
type Program interface {
	Name() string
	ID() [20]byte
	Execute(ctx *ExecContext, method string, data []byte) error
}

// DefaultID returns the program id derived from a well-known name.
func DefaultID(name string) [20]byte { return crypto.ProgramID(name) }

// Registry resolves programs by id.
type Registry struct {
	byID map[[20]byte]Program
}

// NewRegistry indexes the supplied programs.
func NewRegistry(programs ...Program) (*Registry, error) {
	r := &Registry{byID: make(map[[20]byte]Program, len(programs))}
	for _, p := range programs {
		if p == nil {
			continue
		}
		if _, exists := r.byID[p.ID()]; exists {
			return nil, fmt.Errorf("programs: duplicate program id for %s", p.Name())
		}
		r.byID[p.ID()] = p
	}
	return r, nil
}

// Lookup returns the program registered under id.
func (r *Registry) Lookup(id [20]byte) (Program, error) {
	if r == nil {
		return nil, ErrUnknownProgram
	}
	p, ok := r.byID[id]
	if !ok {
		return nil, ErrUnknownProgram
	}
	return p, nil
}

// EncodeArgs serialises method arguments for Transaction.Data.
func EncodeArgs(args interface{}) ([]byte, error) {
	if args == nil {
		return rlp.EncodeToBytes([]interface{}{})
	}
	return rlp.EncodeToBytes(args)
}

func decodeArgs(data []byte, out interface{}) error {
	if err := rlp.DecodeBytes(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgs, err)
	}
	return nil
}

func unknownMethod(program, method string) error {
	return fmt.Errorf("%w: %s.%s", ErrUnknownMethod, program, method)
}

// decodeIdentity converts an optional identity argument.
func decodeIdentity(raw []byte) (*[20]byte, error) {
	switch len(raw) {
	case 0:
		return nil, nil
	case 20:
		var out [20]byte
		copy(out[:], raw)
		return &out, nil
	default:
		return nil, fmt.Errorf("%w: identity must be 0 or 20 bytes, got %d", ErrInvalidArgs, len(raw))
	}
}
