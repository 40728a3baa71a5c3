package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"mailchain/config"
	"mailchain/core/programs"
	"mailchain/core/types"
	"mailchain/crypto"
	"mailchain/rpc"
)

// instruction describes one signed program call. bind registers the
// instruction's flags and returns a builder for its arguments.
type instruction struct {
	program string
	method  string
	usage   string
	bind    func(fs *flag.FlagSet) func() (interface{}, error)
}

func noArgs(*flag.FlagSet) func() (interface{}, error) {
	return func() (interface{}, error) { return programs.NoArgs{}, nil }
}

func bindInitialize(fs *flag.FlagSet) func() (interface{}, error) {
	mint := fs.String("mint", "", "0x-prefixed 20-byte stablecoin mint id")
	return func() (interface{}, error) {
		id, err := rpc.ParseMint(*mint)
		if err != nil {
			return nil, fmt.Errorf("--mint: %w", err)
		}
		return programs.InitializeArgs{USDCMint: id}, nil
	}
}

func bindSend(fs *flag.FlagSet) func() (interface{}, error) {
	subject := fs.String("subject", "", "message subject")
	body := fs.String("body", "", "message body")
	return func() (interface{}, error) {
		return programs.SendArgs{Subject: *subject, Body: *body}, nil
	}
}

func bindSendPrepared(fs *flag.FlagSet) func() (interface{}, error) {
	mailID := fs.String("mail-id", "", "identifier of the prepared message")
	return func() (interface{}, error) {
		return programs.SendPreparedArgs{MailID: *mailID}, nil
	}
}

func bindFee(fs *flag.FlagSet) func() (interface{}, error) {
	fee := fs.Uint64("fee", 0, "new fee in token base units")
	return func() (interface{}, error) {
		return programs.SetFeeArgs{Fee: *fee}, nil
	}
}

func bindAddress(fs *flag.FlagSet, name, usage string) *string {
	return fs.String(name, "", usage)
}

func parseAddress(flagName, value string) ([20]byte, error) {
	if strings.TrimSpace(value) == "" {
		return [20]byte{}, fmt.Errorf("--%s is required", flagName)
	}
	id, err := crypto.ParseIdentity(value)
	if err != nil {
		return id, fmt.Errorf("--%s: %w", flagName, err)
	}
	return id, nil
}

var instructions = map[string]map[string]instruction{
	"mailer": {
		"initialize":             {programs.NameMailer, programs.MethodMailerInitialize, "--mint 0x...", bindInitialize},
		"send-priority":          {programs.NameMailer, programs.MethodMailerSendPriority, "--subject S --body B", bindSend},
		"send-priority-prepared": {programs.NameMailer, programs.MethodMailerSendPriorityPrepared, "--mail-id ID", bindSendPrepared},
		"send":                   {programs.NameMailer, programs.MethodMailerSend, "--subject S --body B", bindSend},
		"send-prepared":          {programs.NameMailer, programs.MethodMailerSendPrepared, "--mail-id ID", bindSendPrepared},
		"claim-recipient":        {programs.NameMailer, programs.MethodMailerClaimRecipientShare, "", noArgs},
		"claim-owner":            {programs.NameMailer, programs.MethodMailerClaimOwnerShare, "", noArgs},
		"claim-expired": {programs.NameMailer, programs.MethodMailerClaimExpiredShares, "--recipient mail1...", func(fs *flag.FlagSet) func() (interface{}, error) {
			recipient := bindAddress(fs, "recipient", "recipient whose expired shares are swept")
			return func() (interface{}, error) {
				id, err := parseAddress("recipient", *recipient)
				return programs.ClaimExpiredArgs{Recipient: id}, err
			}
		}},
		"set-fee": {programs.NameMailer, programs.MethodMailerSetFee, "--fee N", bindFee},
	},
	"service": {
		"initialize": {programs.NameMailService, programs.MethodServiceInitialize, "--mint 0x...", bindInitialize},
		"delegate": {programs.NameMailService, programs.MethodServiceDelegateTo, "[--to mail1...]", func(fs *flag.FlagSet) func() (interface{}, error) {
			to := bindAddress(fs, "to", "delegate address; omit to clear the delegation")
			return func() (interface{}, error) {
				if strings.TrimSpace(*to) == "" {
					return programs.DelegateArgs{}, nil
				}
				id, err := parseAddress("to", *to)
				return programs.DelegateArgs{Delegate: id[:]}, err
			}
		}},
		"reject": {programs.NameMailService, programs.MethodServiceRejectDelegation, "--delegator mail1...", func(fs *flag.FlagSet) func() (interface{}, error) {
			delegator := bindAddress(fs, "delegator", "delegator whose delegation to you is rejected")
			return func() (interface{}, error) {
				id, err := parseAddress("delegator", *delegator)
				return programs.RejectDelegationArgs{Delegator: id}, err
			}
		}},
		"set-fee": {programs.NameMailService, programs.MethodServiceSetDelegationFee, "--fee N", bindFee},
		"withdraw": {programs.NameMailService, programs.MethodServiceWithdrawFees, "--amount N", func(fs *flag.FlagSet) func() (interface{}, error) {
			amount := fs.Uint64("amount", 0, "amount to withdraw in token base units")
			return func() (interface{}, error) { return programs.WithdrawArgs{Amount: *amount}, nil }
		}},
	},
	"token": {
		"create-mint": {programs.NameToken, programs.MethodTokenCreateMint, "--mint 0x... [--decimals N]", func(fs *flag.FlagSet) func() (interface{}, error) {
			mint := fs.String("mint", "", "0x-prefixed 20-byte mint id")
			decimals := fs.Uint("decimals", 6, "display decimals")
			return func() (interface{}, error) {
				id, err := rpc.ParseMint(*mint)
				if err != nil {
					return nil, fmt.Errorf("--mint: %w", err)
				}
				if *decimals > 18 {
					return nil, errors.New("--decimals must be 18 or fewer")
				}
				return programs.CreateMintArgs{Mint: id, Decimals: uint8(*decimals)}, nil
			}
		}},
		"mint-to":  {programs.NameToken, programs.MethodTokenMintTo, "--mint 0x... --to mail1... --amount N", bindTokenMove(true)},
		"transfer": {programs.NameToken, programs.MethodTokenTransfer, "--mint 0x... --to mail1... --amount N", bindTokenMove(false)},
	},
}

func bindTokenMove(mintTo bool) func(fs *flag.FlagSet) func() (interface{}, error) {
	return func(fs *flag.FlagSet) func() (interface{}, error) {
		mint := fs.String("mint", "", "0x-prefixed 20-byte mint id")
		to := bindAddress(fs, "to", "destination address")
		amount := fs.Uint64("amount", 0, "amount in token base units")
		return func() (interface{}, error) {
			id, err := rpc.ParseMint(*mint)
			if err != nil {
				return nil, fmt.Errorf("--mint: %w", err)
			}
			dest, err := parseAddress("to", *to)
			if err != nil {
				return nil, err
			}
			if mintTo {
				return programs.MintToArgs{Mint: id, To: dest, Amount: *amount}, nil
			}
			return programs.TransferArgs{Mint: id, To: dest, Amount: *amount}, nil
		}
	}
}

// runInstructionCommand handles "mailer", "service" and "token".
func runInstructionCommand(group string, args []string, stdout, stderr io.Writer) int {
	table := instructions[group]
	if len(args) == 0 {
		fmt.Fprintln(stderr, instructionUsage(group))
		return 1
	}
	ins, ok := table[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "Unknown %s subcommand: %s\n", group, args[0])
		fmt.Fprintln(stderr, instructionUsage(group))
		return 1
	}
	fs := flag.NewFlagSet(group+" "+args[0], flag.ContinueOnError)
	fs.SetOutput(stderr)
	keyFile := fs.String("key", "", "signer keystore file")
	build := ins.bind(fs)
	if err := fs.Parse(args[1:]); err != nil {
		return 1
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(stderr, "Error: unexpected positional arguments")
		return 1
	}
	instructionArgs, err := build()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	key, err := loadSigner(*keyFile)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	receipt, err := submit(key, ins.program, ins.method, instructionArgs)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	printJSONResult(stdout, receipt)
	return 0
}

func instructionUsage(group string) string {
	names := make([]string, 0, len(instructions[group]))
	for name := range instructions[group] {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	fmt.Fprintf(&b, "Usage: mail-cli %s <subcommand> --key FILE [flags]\n", group)
	for _, name := range names {
		fmt.Fprintf(&b, "  %-24s %s\n", name, instructions[group][name].usage)
	}
	return strings.TrimRight(b.String(), "\n")
}

func programIDs() (config.ProgramIDs, error) {
	return config.ProgramsConfig{
		Mailer:      os.Getenv("MAIL_MAILER_PROGRAM"),
		MailService: os.Getenv("MAIL_SERVICE_PROGRAM"),
		Token:       os.Getenv("MAIL_TOKEN_PROGRAM"),
	}.Resolve()
}

func programID(name string) ([20]byte, error) {
	ids, err := programIDs()
	if err != nil {
		return [20]byte{}, err
	}
	switch name {
	case programs.NameMailer:
		return ids.Mailer, nil
	case programs.NameMailService:
		return ids.MailService, nil
	case programs.NameToken:
		return ids.Token, nil
	default:
		return [20]byte{}, fmt.Errorf("unknown program %q", name)
	}
}

// submit fetches the signer nonce, signs the instruction and sends it.
func submit(key *crypto.PrivateKey, program, method string, args interface{}) (json.RawMessage, error) {
	id, err := programID(program)
	if err != nil {
		return nil, err
	}
	data, err := programs.EncodeArgs(args)
	if err != nil {
		return nil, err
	}
	address := key.PubKey().Address().String()
	raw, err := rpcCall("mail_getNonce", map[string]string{"address": address}, false)
	if err != nil {
		return nil, fmt.Errorf("fetch nonce: %w", err)
	}
	var nonce rpc.NonceResult
	if err := json.Unmarshal(raw, &nonce); err != nil {
		return nil, fmt.Errorf("decode nonce: %w", err)
	}
	tx := &types.Transaction{
		ChainID: chainID,
		Program: append([]byte(nil), id[:]...),
		Method:  method,
		Nonce:   nonce.Nonce,
		Data:    data,
	}
	if err := tx.Sign(key.PrivateKey); err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	return rpcCall("mail_sendTransaction", rpc.TransactionParamsFrom(tx), true)
}
