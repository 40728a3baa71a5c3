package programs

import (
	"mailchain/native/mailservice"
)

// MailServiceProgram routes delegation instructions to the mail-service engine.
type MailServiceProgram struct {
	id [20]byte
}

func NewMailServiceProgram(id [20]byte) *MailServiceProgram { return &MailServiceProgram{id: id} }

func (p *MailServiceProgram) Name() string { return NameMailService }

func (p *MailServiceProgram) ID() [20]byte { return p.id }

// Engine builds a mail-service engine bound to the execution context.
func (p *MailServiceProgram) Engine(ctx *ExecContext) *mailservice.Engine {
	engine := mailservice.NewEngine(p.id)
	engine.SetState(ctx.State)
	engine.SetGateway(newTokenEngine(ctx))
	engine.SetEmitter(ctx.Emitter)
	return engine
}

func (p *MailServiceProgram) Execute(ctx *ExecContext, method string, data []byte) error {
	engine := p.Engine(ctx)
	caller := ctx.Caller
	switch method {
	case MethodServiceInitialize:
		var args InitializeArgs
		if err := decodeArgs(data, &args); err != nil {
			return err
		}
		_, err := engine.Initialize(caller, args.USDCMint)
		return err
	case MethodServiceDelegateTo:
		var args DelegateArgs
		if err := decodeArgs(data, &args); err != nil {
			return err
		}
		delegate, err := decodeIdentity(args.Delegate)
		if err != nil {
			return err
		}
		_, err = engine.DelegateTo(caller, delegate)
		return err
	case MethodServiceRejectDelegation:
		var args RejectDelegationArgs
		if err := decodeArgs(data, &args); err != nil {
			return err
		}
		return engine.RejectDelegation(caller, args.Delegator)
	case MethodServiceSetDelegationFee:
		var args SetFeeArgs
		if err := decodeArgs(data, &args); err != nil {
			return err
		}
		return engine.SetDelegationFee(caller, args.Fee)
	case MethodServiceWithdrawFees:
		var args WithdrawArgs
		if err := decodeArgs(data, &args); err != nil {
			return err
		}
		return engine.WithdrawFees(caller, args.Amount)
	}
	return unknownMethod(NameMailService, method)
}
