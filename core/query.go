package core

import (
	"errors"

	"mailchain/core/programs"
	"mailchain/core/state"
	"mailchain/native/mailer"
	"mailchain/native/mailservice"
	"mailchain/storage"
)

// ErrProgramNotConfigured is returned when a query targets a program the node
// does not run.
var ErrProgramNotConfigured = errors.New("query: program not configured")

// Query serves read-only views over committed ledger state.
type Query struct {
	db          storage.Database
	mailer      *programs.MailerProgram
	mailService *programs.MailServiceProgram
	nowFn       func() int64
}

// NewQuery constructs a query service. Either program may be nil.
func NewQuery(db storage.Database, mailerProgram *programs.MailerProgram, serviceProgram *programs.MailServiceProgram, now func() int64) *Query {
	return &Query{db: db, mailer: mailerProgram, mailService: serviceProgram, nowFn: now}
}

func (q *Query) view(fn func(ctx *programs.ExecContext) error) error {
	return q.db.View(func(r storage.Reader) error {
		var now int64
		if q.nowFn != nil {
			now = q.nowFn()
		}
		return fn(&programs.ExecContext{State: state.NewReadOnlyManager(r), Now: now})
	})
}

func (q *Query) mailerEngine(ctx *programs.ExecContext) (*mailer.Engine, error) {
	if q.mailer == nil {
		return nil, ErrProgramNotConfigured
	}
	return q.mailer.Engine(ctx), nil
}

func (q *Query) serviceEngine(ctx *programs.ExecContext) (*mailservice.Engine, error) {
	if q.mailService == nil {
		return nil, ErrProgramNotConfigured
	}
	return q.mailService.Engine(ctx), nil
}

// MailerState returns the mailer singleton.
func (q *Query) MailerState() (*mailer.State, error) {
	var out *mailer.State
	err := q.view(func(ctx *programs.ExecContext) error {
		engine, err := q.mailerEngine(ctx)
		if err != nil {
			return err
		}
		out, err = engine.State()
		return err
	})
	return out, err
}

// MailerCustody returns the account holding mailer fees.
func (q *Query) MailerCustody() ([20]byte, error) {
	if q.mailer == nil {
		return [20]byte{}, ErrProgramNotConfigured
	}
	return mailer.NewEngine(q.mailer.ID()).Custody(), nil
}

// RecipientClaim returns the claim recorded for recipient.
func (q *Query) RecipientClaim(recipient [20]byte) (*mailer.RecipientClaim, error) {
	var out *mailer.RecipientClaim
	err := q.view(func(ctx *programs.ExecContext) error {
		engine, err := q.mailerEngine(ctx)
		if err != nil {
			return err
		}
		out, err = engine.Claim(recipient)
		return err
	})
	return out, err
}

// ClaimStatus evaluates recipient's claim against the ledger clock.
func (q *Query) ClaimStatus(recipient [20]byte) (*mailer.ClaimStatus, error) {
	var out *mailer.ClaimStatus
	err := q.view(func(ctx *programs.ExecContext) error {
		engine, err := q.mailerEngine(ctx)
		if err != nil {
			return err
		}
		out, err = engine.ClaimStatus(recipient)
		return err
	})
	return out, err
}

// MailServiceState returns the mail-service singleton.
func (q *Query) MailServiceState() (*mailservice.State, error) {
	var out *mailservice.State
	err := q.view(func(ctx *programs.ExecContext) error {
		engine, err := q.serviceEngine(ctx)
		if err != nil {
			return err
		}
		out, err = engine.State()
		return err
	})
	return out, err
}

// MailServiceCustody returns the account holding delegation fees.
func (q *Query) MailServiceCustody() ([20]byte, error) {
	if q.mailService == nil {
		return [20]byte{}, ErrProgramNotConfigured
	}
	return mailservice.NewEngine(q.mailService.ID()).Custody(), nil
}

// Delegation returns the delegation recorded for delegator.
func (q *Query) Delegation(delegator [20]byte) (*mailservice.Delegation, error) {
	var out *mailservice.Delegation
	err := q.view(func(ctx *programs.ExecContext) error {
		engine, err := q.serviceEngine(ctx)
		if err != nil {
			return err
		}
		out, err = engine.Delegation(delegator)
		return err
	})
	return out, err
}

// TokenBalance returns the balance owner holds of mint.
func (q *Query) TokenBalance(mint [20]byte, owner [20]byte) (uint64, error) {
	var out uint64
	err := q.db.View(func(r storage.Reader) error {
		var err error
		out, err = state.NewReadOnlyManager(r).TokenBalance(mint, owner)
		return err
	})
	return out, err
}

// Nonce returns the next expected nonce for addr.
func (q *Query) Nonce(addr [20]byte) (uint64, error) {
	var out uint64
	err := q.db.View(func(r storage.Reader) error {
		var err error
		out, err = state.NewReadOnlyManager(r).NonceGet(addr)
		return err
	})
	return out, err
}
