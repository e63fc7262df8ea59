package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/big"
	"os"
	"strconv"
	"strings"

	"custodychain/core/types"
	"custodychain/crypto"
	"custodychain/native/bank"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}
	switch args[0] {
	case "generate-key":
		return runGenerateKey(args[1:], stdout, stderr)
	case "address":
		return runAddress(args[1:], stdout, stderr)
	case "tx":
		return runTx(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", args[0])
		printUsage(stderr)
		return 1
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: custody-cli <command> [args]")
	fmt.Fprintln(w, "  generate-key <key_file>")
	fmt.Fprintln(w, "  address <key_file>")
	fmt.Fprintln(w, "  tx [--chain id] [--nonce n] --key <key_file> <kind> [args]")
	fmt.Fprintln(w, "     kinds: transfer <to> <amount>")
	fmt.Fprintln(w, "            create <beneficiary> <block_delay>")
	fmt.Fprintln(w, "            set-beneficiary <beneficiary>")
	fmt.Fprintln(w, "            set-delay <block_delay>")
	fmt.Fprintln(w, "            ping | delete")
	fmt.Fprintln(w, "            act-transfer <trustor> <to> <amount>")
	fmt.Fprintln(w, "            act-sweep <trustor> <to>")
}

func runGenerateKey(args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(stderr, "Error: expected a key file path.")
		return 1
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := os.WriteFile(args[0], []byte(hex.EncodeToString(key.Bytes())), 0o600); err != nil {
		fmt.Fprintf(stderr, "Error: writing key: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, key.PubKey().Address().String())
	return 0
}

func runAddress(args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(stderr, "Error: expected a key file path.")
		return 1
	}
	key, err := loadPrivateKey(args[0])
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, key.PubKey().Address().String())
	return 0
}

func loadPrivateKey(path string) (*crypto.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading private key: %w", err)
	}
	decoded, err := hex.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("decoding private key: %w", err)
	}
	return crypto.PrivateKeyFromBytes(decoded)
}

func runTx(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("tx", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	chainID := fs.Uint64("chain", 187001, "Chain id the transaction is signed for")
	nonce := fs.Uint64("nonce", 0, "Sender nonce")
	keyFile := fs.String("key", "", "Hex encoded private key file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintln(stderr, err)
		printUsage(stderr)
		return 1
	}
	positional := fs.Args()
	if len(positional) < 1 || strings.TrimSpace(*keyFile) == "" {
		fmt.Fprintln(stderr, "Error: expected --key and a transaction kind.")
		printUsage(stderr)
		return 1
	}
	key, err := loadPrivateKey(*keyFile)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	tx, err := buildTx(positional[0], positional[1:])
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	tx.ChainID = *chainID
	tx.Nonce = *nonce
	if err := tx.Sign(key.PrivateKey); err != nil {
		fmt.Fprintf(stderr, "Error: signing transaction: %v\n", err)
		return 1
	}
	if err := json.NewEncoder(stdout).Encode(tx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func parseAccount(s string) ([20]byte, error) {
	addr, err := crypto.DecodeAddress(strings.TrimSpace(s))
	if err != nil {
		return [20]byte{}, fmt.Errorf("parsing address %q: %w", s, err)
	}
	return addr.Raw(), nil
}

func parseAmount(s string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok || amount.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be a positive integer")
	}
	return amount, nil
}

func expectArgs(kind string, args []string, n int) error {
	if len(args) != n {
		return fmt.Errorf("%s expects %d argument(s), got %d", kind, n, len(args))
	}
	return nil
}

func buildTx(kind string, args []string) (*types.Transaction, error) {
	tx := new(types.Transaction)
	var payload interface{}
	switch kind {
	case "transfer":
		if err := expectArgs(kind, args, 2); err != nil {
			return nil, err
		}
		to, err := parseAccount(args[0])
		if err != nil {
			return nil, err
		}
		amount, err := parseAmount(args[1])
		if err != nil {
			return nil, err
		}
		tx.Type = types.TxTypeTransfer
		payload = &types.TransferPayload{To: to, Amount: amount}
	case "create":
		if err := expectArgs(kind, args, 2); err != nil {
			return nil, err
		}
		beneficiary, err := parseAccount(args[0])
		if err != nil {
			return nil, err
		}
		delay, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid block delay: %w", err)
		}
		tx.Type = types.TxTypeCustodyCreate
		payload = &types.CustodyCreatePayload{Beneficiary: beneficiary, BlockDelay: delay}
	case "set-beneficiary":
		if err := expectArgs(kind, args, 1); err != nil {
			return nil, err
		}
		beneficiary, err := parseAccount(args[0])
		if err != nil {
			return nil, err
		}
		tx.Type = types.TxTypeCustodyUpdateBeneficiary
		payload = &types.CustodyUpdateBeneficiaryPayload{Beneficiary: beneficiary}
	case "set-delay":
		if err := expectArgs(kind, args, 1); err != nil {
			return nil, err
		}
		delay, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid block delay: %w", err)
		}
		tx.Type = types.TxTypeCustodyUpdateDelay
		payload = &types.CustodyUpdateDelayPayload{BlockDelay: delay}
	case "ping":
		if err := expectArgs(kind, args, 0); err != nil {
			return nil, err
		}
		tx.Type = types.TxTypeCustodyPing
	case "delete":
		if err := expectArgs(kind, args, 0); err != nil {
			return nil, err
		}
		tx.Type = types.TxTypeCustodyDelete
	case "act-transfer", "act-sweep":
		want := 3
		if kind == "act-sweep" {
			want = 2
		}
		if err := expectArgs(kind, args, want); err != nil {
			return nil, err
		}
		trustor, err := parseAccount(args[0])
		if err != nil {
			return nil, err
		}
		to, err := parseAccount(args[1])
		if err != nil {
			return nil, err
		}
		var call types.DelegatedCall = bank.Sweep{To: to}
		if kind == "act-transfer" {
			amount, err := parseAmount(args[2])
			if err != nil {
				return nil, err
			}
			call = bank.Transfer{To: to, Amount: amount}
		}
		env, err := bank.EncodeCall(call)
		if err != nil {
			return nil, err
		}
		tx.Type = types.TxTypeCustodyActAsTrustor
		payload = &types.CustodyActPayload{Trustor: trustor, Call: env}
	default:
		return nil, fmt.Errorf("unknown transaction kind %q", kind)
	}
	if err := tx.EncodePayload(payload); err != nil {
		return nil, err
	}
	return tx, nil
}
