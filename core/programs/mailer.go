package programs

import (
	"mailchain/native/mailer"
)

// MailerProgram routes mailer instructions to the fee engine.
type MailerProgram struct {
	id [20]byte
}

func NewMailerProgram(id [20]byte) *MailerProgram { return &MailerProgram{id: id} }

func (p *MailerProgram) Name() string { return NameMailer }

func (p *MailerProgram) ID() [20]byte { return p.id }

// Engine builds a mailer engine bound to the execution context.
func (p *MailerProgram) Engine(ctx *ExecContext) *mailer.Engine {
	engine := mailer.NewEngine(p.id)
	engine.SetState(ctx.State)
	engine.SetGateway(newTokenEngine(ctx))
	engine.SetEmitter(ctx.Emitter)
	now := ctx.Now
	engine.SetNowFunc(func() int64 { return now })
	return engine
}

func (p *MailerProgram) Execute(ctx *ExecContext, method string, data []byte) error {
	engine := p.Engine(ctx)
	caller := ctx.Caller
	switch method {
	case MethodMailerInitialize:
		var args InitializeArgs
		if err := decodeArgs(data, &args); err != nil {
			return err
		}
		_, err := engine.Initialize(caller, args.USDCMint)
		return err
	case MethodMailerSendPriority:
		var args SendArgs
		if err := decodeArgs(data, &args); err != nil {
			return err
		}
		return engine.SendPriority(caller, args.Subject, args.Body)
	case MethodMailerSendPriorityPrepared:
		var args SendPreparedArgs
		if err := decodeArgs(data, &args); err != nil {
			return err
		}
		return engine.SendPriorityPrepared(caller, args.MailID)
	case MethodMailerSend:
		var args SendArgs
		if err := decodeArgs(data, &args); err != nil {
			return err
		}
		return engine.Send(caller, args.Subject, args.Body)
	case MethodMailerSendPrepared:
		var args SendPreparedArgs
		if err := decodeArgs(data, &args); err != nil {
			return err
		}
		return engine.SendPrepared(caller, args.MailID)
	case MethodMailerClaimRecipientShare:
		_, err := engine.ClaimRecipientShare(caller)
		return err
	case MethodMailerClaimOwnerShare:
		_, err := engine.ClaimOwnerShare(caller)
		return err
	case MethodMailerClaimExpiredShares:
		var args ClaimExpiredArgs
		if err := decodeArgs(data, &args); err != nil {
			return err
		}
		_, err := engine.ClaimExpiredShares(caller, args.Recipient)
		return err
	case MethodMailerSetFee:
		var args SetFeeArgs
		if err := decodeArgs(data, &args); err != nil {
			return err
		}
		return engine.SetFee(caller, args.Fee)
	}
	return unknownMethod(NameMailer, method)
}
