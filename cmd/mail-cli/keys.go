package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"mailchain/cmd/internal/passphrase"
	"mailchain/crypto"
)

const keyPassEnv = "MAIL_KEY_PASS"

// passphraseSource is swapped out in tests.
var passphraseSource = func(confirm bool) func() (string, error) {
	src := passphrase.NewSource(keyPassEnv, "signer key")
	if confirm {
		src = src.WithConfirmation()
	}
	return src.Get
}

func loadSigner(path string) (*crypto.PrivateKey, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("--key is required")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("keystore %s not found. run mail-cli keygen first", path)
		}
		return nil, err
	}
	pass, err := passphraseSource(false)()
	if err != nil {
		return nil, err
	}
	key, err := crypto.LoadFromKeystore(path, pass)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt keystore %s: %w", path, err)
	}
	return key, nil
}

func runKeygen(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	out := fs.String("out", "signer.keystore", "path of the keystore file to create")
	force := fs.Bool("force", false, "overwrite an existing keystore")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if _, err := os.Stat(*out); err == nil && !*force {
		fmt.Fprintf(stderr, "Error: %s already exists (use --force to overwrite)\n", *out)
		return 1
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	pass, err := passphraseSource(true)()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := crypto.SaveToKeystore(*out, key, pass); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	result, _ := json.Marshal(map[string]string{"address": key.PubKey().Address().String(), "keystore": *out})
	printJSONResult(stdout, result)
	return 0
}

func runAddress(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("address", flag.ContinueOnError)
	fs.SetOutput(stderr)
	keyFile := fs.String("key", "", "keystore file")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	key, err := loadSigner(*keyFile)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, key.PubKey().Address().String())
	return 0
}
