package main

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

type queryCommand struct {
	method string
	usage  string
	bind   func(fs *flag.FlagSet) func() (interface{}, error)
}

func requiredField(fs *flag.FlagSet, name, jsonKey, usage string) func(map[string]interface{}) error {
	value := fs.String(name, "", usage)
	return func(out map[string]interface{}) error {
		trimmed := strings.TrimSpace(*value)
		if trimmed == "" {
			return fmt.Errorf("--%s is required", name)
		}
		out[jsonKey] = trimmed
		return nil
	}
}

func bindFields(fields ...func(*flag.FlagSet) func(map[string]interface{}) error) func(fs *flag.FlagSet) func() (interface{}, error) {
	return func(fs *flag.FlagSet) func() (interface{}, error) {
		setters := make([]func(map[string]interface{}) error, 0, len(fields))
		for _, field := range fields {
			setters = append(setters, field(fs))
		}
		return func() (interface{}, error) {
			if len(setters) == 0 {
				return nil, nil
			}
			params := make(map[string]interface{}, len(setters))
			for _, set := range setters {
				if err := set(params); err != nil {
					return nil, err
				}
			}
			return params, nil
		}
	}
}

func field(name, jsonKey, usage string) func(*flag.FlagSet) func(map[string]interface{}) error {
	return func(fs *flag.FlagSet) func(map[string]interface{}) error {
		return requiredField(fs, name, jsonKey, usage)
	}
}

var queries = map[string]queryCommand{
	"mailer-state":  {"mail_getMailerState", "", bindFields()},
	"claim":         {"mail_getRecipientClaim", "--recipient mail1...", bindFields(field("recipient", "recipient", "recipient address"))},
	"claim-status":  {"mail_getClaimStatus", "--recipient mail1...", bindFields(field("recipient", "recipient", "recipient address"))},
	"service-state": {"mail_getServiceState", "", bindFields()},
	"delegation":    {"mail_getDelegation", "--delegator mail1...", bindFields(field("delegator", "delegator", "delegator address"))},
	"nonce":         {"mail_getNonce", "--address mail1...", bindFields(field("address", "address", "account address"))},
	"balance": {"token_getBalance", "--mint 0x... --owner mail1...", bindFields(
		field("mint", "mint", "0x-prefixed mint id"),
		field("owner", "owner", "token owner address"),
	)},
	"events": {"mail_listEvents", "[--type T] [--program P] [--tx H] [--account A] [--after N] [--limit N]", bindEventFilter},
}

func bindEventFilter(fs *flag.FlagSet) func() (interface{}, error) {
	eventType := fs.String("type", "", "event type prefix")
	program := fs.String("program", "", "program name")
	txHash := fs.String("tx", "", "transaction hash")
	account := fs.String("account", "", "account address appearing in the event")
	after := fs.Int64("after", 0, "only return events after this sequence")
	limit := fs.Int("limit", 0, "maximum events to return")
	return func() (interface{}, error) {
		params := map[string]interface{}{}
		for key, value := range map[string]string{"type": *eventType, "program": *program, "txHash": *txHash, "account": *account} {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				params[key] = trimmed
			}
		}
		if *after < 0 || *limit < 0 {
			return nil, fmt.Errorf("--after and --limit must not be negative")
		}
		if *after > 0 {
			params["after"] = *after
		}
		if *limit > 0 {
			params["limit"] = *limit
		}
		return params, nil
	}
}

func runQueryCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, queryUsage())
		return 1
	}
	q, ok := queries[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "Unknown query: %s\n", args[0])
		fmt.Fprintln(stderr, queryUsage())
		return 1
	}
	fs := flag.NewFlagSet("query "+args[0], flag.ContinueOnError)
	fs.SetOutput(stderr)
	build := q.bind(fs)
	if err := fs.Parse(args[1:]); err != nil {
		return 1
	}
	params, err := build()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	result, err := rpcCall(q.method, params, false)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	printJSONResult(stdout, result)
	return 0
}

func queryUsage() string {
	var b strings.Builder
	b.WriteString("Usage: mail-cli query <name> [flags]\n")
	for _, name := range []string{"mailer-state", "claim", "claim-status", "service-state", "delegation", "nonce", "balance", "events"} {
		fmt.Fprintf(&b, "  %-14s %s\n", name, queries[name].usage)
	}
	return strings.TrimRight(b.String(), "\n")
}
