package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"mailchain/config"
)

const defaultRPCEndpoint = "http://localhost:8545"

var (
	rpcEndpoint  = defaultRPCEndpoint
	rpcAuthToken = strings.TrimSpace(os.Getenv("MAIL_RPC_TOKEN"))
	chainID      = uint64(config.DefaultChainID)
)

func init() {
	if endpoint := strings.TrimSpace(os.Getenv("RPC_URL")); endpoint != "" {
		rpcEndpoint = endpoint
	}
	if raw := strings.TrimSpace(os.Getenv("MAIL_CHAIN_ID")); raw != "" {
		if parsed, err := strconv.ParseUint(raw, 10, 64); err == nil {
			chainID = parsed
		}
	}
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	args, err := applyGlobalFlags(args)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if len(args) == 0 {
		printUsage(stderr)
		return 1
	}
	command, rest := args[0], args[1:]
	switch command {
	case "keygen":
		return runKeygen(rest, stdout, stderr)
	case "address":
		return runAddress(rest, stdout, stderr)
	case "mailer", "service", "token":
		return runInstructionCommand(command, rest, stdout, stderr)
	case "query":
		return runQueryCommand(rest, stdout, stderr)
	case "events":
		return runQueryCommand(append([]string{"events"}, rest...), stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", command)
		printUsage(stderr)
		return 1
	}
}

// applyGlobalFlags strips leading --rpc and --chain-id options.
func applyGlobalFlags(args []string) ([]string, error) {
	for len(args) > 0 {
		arg := args[0]
		var name, value string
		switch {
		case arg == "--rpc" || arg == "--chain-id":
			if len(args) < 2 {
				return nil, fmt.Errorf("%s requires a value", arg)
			}
			name, value = arg, args[1]
			args = args[2:]
		case strings.HasPrefix(arg, "--rpc="):
			name, value = "--rpc", strings.TrimPrefix(arg, "--rpc=")
			args = args[1:]
		case strings.HasPrefix(arg, "--chain-id="):
			name, value = "--chain-id", strings.TrimPrefix(arg, "--chain-id=")
			args = args[1:]
		default:
			return args, nil
		}
		value = strings.TrimSpace(value)
		if value == "" {
			return nil, fmt.Errorf("%s requires a value", name)
		}
		if name == "--rpc" {
			rpcEndpoint = value
			continue
		}
		parsed, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --chain-id %q", value)
		}
		chainID = parsed
	}
	return args, nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: mail-cli [--rpc URL] [--chain-id N] <command> [arguments]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  keygen   --out FILE [--force]     Generate an encrypted signer keystore")
	fmt.Fprintln(w, "  address  --key FILE               Print the address of a keystore")
	fmt.Fprintln(w, "  mailer   <subcommand> --key FILE  Send a mailer instruction")
	fmt.Fprintln(w, "  service  <subcommand> --key FILE  Send a mail service instruction")
	fmt.Fprintln(w, "  token    <subcommand> --key FILE  Send a token instruction")
	fmt.Fprintln(w, "  query    <name> [flags]           Read program state")
	fmt.Fprintln(w, "  events   [flags]                  List indexed events")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Environment: RPC_URL, MAIL_RPC_TOKEN, MAIL_CHAIN_ID, MAIL_KEY_PASS,")
	fmt.Fprintln(w, "MAIL_MAILER_PROGRAM, MAIL_SERVICE_PROGRAM, MAIL_TOKEN_PROGRAM")
}
