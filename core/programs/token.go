package programs

import (
	"mailchain/native/token"
)

// TokenProgram exposes mint management and transfers.
type TokenProgram struct {
	id [20]byte
}

func NewTokenProgram(id [20]byte) *TokenProgram { return &TokenProgram{id: id} }

func (p *TokenProgram) Name() string { return NameToken }

func (p *TokenProgram) ID() [20]byte { return p.id }

func newTokenEngine(ctx *ExecContext) *token.Engine {
	engine := token.NewEngine()
	engine.SetState(ctx.State)
	engine.SetEmitter(ctx.Emitter)
	return engine
}

func (p *TokenProgram) Execute(ctx *ExecContext, method string, data []byte) error {
	engine := newTokenEngine(ctx)
	switch method {
	case MethodTokenCreateMint:
		var args CreateMintArgs
		if err := decodeArgs(data, &args); err != nil {
			return err
		}
		_, err := engine.CreateMint(args.Mint, ctx.Caller, args.Decimals)
		return err
	case MethodTokenMintTo:
		var args MintToArgs
		if err := decodeArgs(data, &args); err != nil {
			return err
		}
		return engine.MintTo(args.Mint, ctx.Caller, args.To, args.Amount)
	case MethodTokenTransfer:
		var args TransferArgs
		if err := decodeArgs(data, &args); err != nil {
			return err
		}
		return engine.Transfer(args.Mint, ctx.Caller, args.To, ctx.Caller, args.Amount)
	}
	return unknownMethod(NameToken, method)
}
