// Package main provides a CLI tool for generating gateway API keys.
// Generated keys are printed once; store them in the API_KEYS environment
// variable of the gateway and distribute them to clients out of band.
// With -verify/-against it instead checks a key against a stored bcrypt
// hash, e.g. one recorded earlier with -hash.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"analytics-gateway/pkg/secrets"
)

type keyOutput struct {
	Keys    []string `json:"keys"`
	Hashes  []string `json:"hashes,omitempty"`
	EnvLine string   `json:"env_line"`
}

func main() {
	count := flag.Int("n", 1, "Number of keys to generate")
	withHash := flag.Bool("hash", false, "Also print a bcrypt hash of each key for audit records")
	asJSON := flag.Bool("json", false, "Output as JSON")
	verifyKey := flag.String("verify", "", "Verify a key against a bcrypt hash instead of generating")
	against := flag.String("against", "", "Bcrypt hash to verify the key against")
	flag.Usage = printUsage
	flag.Parse()

	if *verifyKey != "" || *against != "" {
		if err := runVerify(*verifyKey, *against); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println("key matches hash")
		return
	}

	if *count < 1 || *count > 100 {
		fmt.Fprintln(os.Stderr, "key count must be between 1 and 100")
		os.Exit(1)
	}

	out := keyOutput{}
	for range *count {
		key, err := secrets.Generate()
		if err != nil {
			fmt.Fprintf(os.Stderr, "generate key: %v\n", err)
			os.Exit(1)
		}
		out.Keys = append(out.Keys, key)

		if *withHash {
			hash, err := secrets.Hash(key)
			if err != nil {
				fmt.Fprintf(os.Stderr, "hash key: %v\n", err)
				os.Exit(1)
			}
			out.Hashes = append(out.Hashes, hash)
		}
	}
	out.EnvLine = "API_KEYS=" + strings.Join(out.Keys, ",")

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			fmt.Fprintf(os.Stderr, "encode output: %v\n", err)
			os.Exit(1)
		}
		return
	}

	for i, key := range out.Keys {
		fmt.Println(key)
		if *withHash {
			fmt.Printf("  hash: %s\n", out.Hashes[i])
		}
	}
	fmt.Println()
	fmt.Println(out.EnvLine)
}

// runVerify checks a plaintext key against a stored bcrypt hash.
func runVerify(key, hash string) error {
	if key == "" || hash == "" {
		return errors.New("-verify and -against must be used together")
	}
	if err := secrets.Verify(key, hash); err != nil {
		return errors.New("key does not match hash")
	}
	return nil
}

func printUsage() {
	fmt.Println(`keygen - Generate API keys for the analytics gateway

Usage:
  keygen [flags]

Flags:
  -n int           Number of keys to generate (default 1)
  -hash            Also print a bcrypt hash of each key for audit records
  -json            Output as JSON
  -verify string   Verify a key against a bcrypt hash instead of generating
  -against string  Bcrypt hash to verify the key against

Examples:
  # Generate one key
  keygen

  # Generate three keys and the API_KEYS line to paste into the environment
  keygen -n 3

  # JSON output with hashes
  keygen -n 2 -hash -json

  # Check a key against a previously recorded hash
  keygen -verify KEY -against '$2a$10$...'`)
}
