package main

import (
	"flag"
	"fmt"
	"os"

	"curvefoundry/cmd/internal/passphrase"
	"curvefoundry/crypto"

	"github.com/ethereum/go-ethereum/common"
)

const (
	keygenCommand  = "keygen"
	addressCommand = "address"
	defaultPassEnv = "FOUNDRY_KEYSTORE_PASS"

	minPassphraseLength = 8
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case keygenCommand:
		err = runKeygen(os.Args[2:])
	case addressCommand:
		err = runAddress(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: foundryctl <command> [flags]")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintf(os.Stderr, "  %-8s generate a signer keystore\n", keygenCommand)
	fmt.Fprintf(os.Stderr, "  %-8s print the address of a keystore\n", addressCommand)
}

func runKeygen(args []string) error {
	fs := flag.NewFlagSet(keygenCommand, flag.ExitOnError)
	out := fs.String("out", "signer.keystore", "Output path for the keystore file")
	passEnv := fs.String("pass-env", defaultPassEnv, "Environment variable containing the keystore passphrase")
	force := fs.Bool("force", false, "Overwrite an existing keystore file")
	light := fs.Bool("light", false, "Use light scrypt parameters (test keys only)")
	fs.Parse(args)

	pass, err := passphrase.NewSource(*passEnv, "new keystore "+*out, passphrase.ForNewKeystore(minPassphraseLength)).Get()
	if err != nil {
		return err
	}
	params := crypto.StandardScrypt
	if *light {
		params = crypto.LightScrypt
	}
	addr, err := generateKeystore(*out, pass, params, *force)
	if err != nil {
		return err
	}
	fmt.Println(addr.Hex())
	return nil
}

func generateKeystore(path, pass string, params crypto.ScryptParams, force bool) (common.Address, error) {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return common.Address{}, fmt.Errorf("keystore file %s already exists (use --force to overwrite)", path)
		} else if !os.IsNotExist(err) {
			return common.Address{}, err
		}
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return common.Address{}, err
	}
	addr, err := crypto.SaveToKeystore(path, key, pass, params)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to write keystore: %w", err)
	}
	return addr, nil
}

func runAddress(args []string) error {
	fs := flag.NewFlagSet(addressCommand, flag.ExitOnError)
	keystorePath := fs.String("keystore", "signer.keystore", "Keystore file to read")
	passEnv := fs.String("pass-env", defaultPassEnv, "Environment variable containing the keystore passphrase")
	fs.Parse(args)

	pass, err := passphrase.NewSource(*passEnv, "keystore "+*keystorePath).Get()
	if err != nil {
		return err
	}
	key, err := crypto.LoadFromKeystore(*keystorePath, pass)
	if err != nil {
		return err
	}
	fmt.Println(key.Address().Hex())
	return nil
}
