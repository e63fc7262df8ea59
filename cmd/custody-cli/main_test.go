package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"custodychain/core/types"
	"custodychain/crypto"
)

func TestGenerateKeyAndSignCreate(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "trustor.key")

	var stdout, stderr bytes.Buffer
	if code := run([]string{"generate-key", keyFile}, &stdout, &stderr); code != 0 {
		t.Fatalf("generate-key exit %d: %s", code, stderr.String())
	}
	signer := strings.TrimSpace(stdout.String())
	signerAddr, err := crypto.DecodeAddress(signer)
	if err != nil {
		t.Fatalf("decode signer: %v", err)
	}

	var beneficiary [20]byte
	beneficiary[0] = 0xB1
	stdout.Reset()
	args := []string{"tx", "--chain", "7", "--nonce", "3", "--key", keyFile, "create", crypto.FormatAddress(beneficiary), "12"}
	if code := run(args, &stdout, &stderr); code != 0 {
		t.Fatalf("tx exit %d: %s", code, stderr.String())
	}

	var tx types.Transaction
	if err := json.Unmarshal(stdout.Bytes(), &tx); err != nil {
		t.Fatalf("decode tx: %v", err)
	}
	if tx.ChainID != 7 || tx.Nonce != 3 || tx.Type != types.TxTypeCustodyCreate {
		t.Fatalf("unexpected tx header %+v", tx)
	}
	from, err := tx.From()
	if err != nil {
		t.Fatalf("recover signer: %v", err)
	}
	if from != signerAddr.Raw() {
		t.Fatalf("expected signer %s, got %x", signer, from)
	}
	var payload types.CustodyCreatePayload
	if err := tx.DecodePayload(&payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Beneficiary != beneficiary || payload.BlockDelay != 12 {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestTxRejectsBadArguments(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "k.key")
	var stdout, stderr bytes.Buffer
	if code := run([]string{"generate-key", keyFile}, &stdout, &stderr); code != 0 {
		t.Fatalf("generate-key failed: %s", stderr.String())
	}
	cases := [][]string{
		{"tx", "--key", keyFile, "create", "cst1bad", "10"},
		{"tx", "--key", keyFile, "set-delay", "soon"},
		{"tx", "--key", keyFile, "ping", "extra"},
		{"tx", "--key", keyFile, "launch"},
		{"tx", "create"},
		{"unknown"},
	}
	for _, args := range cases {
		stderr.Reset()
		if code := run(args, &stdout, &stderr); code == 0 {
			t.Fatalf("expected failure for %v", args)
		}
	}
}
