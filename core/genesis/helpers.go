package genesis

import (
	"fmt"

	"mailchain/core/programs"
	"mailchain/crypto"
	"mailchain/native/token"
)

func parseIdentity(addr string) ([20]byte, error) {
	id, err := crypto.ParseIdentity(addr)
	if err != nil {
		return id, fmt.Errorf("decode account %q: %w", addr, err)
	}
	return id, nil
}

func tokenEngine(ctx *programs.ExecContext) *token.Engine {
	engine := token.NewEngine()
	engine.SetState(ctx.State)
	engine.SetEmitter(ctx.Emitter)
	return engine
}
