package crypto

import (
	"strings"
	"testing"
)

func TestAddressBech32RoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	addr := key.PubKey().Address()
	encoded := addr.String()
	if !strings.HasPrefix(encoded, "cst1") {
		t.Fatalf("expected cst1 prefix, got %s", encoded)
	}
	decoded, err := DecodeAddress(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Raw() != addr.Raw() {
		t.Fatalf("round trip mismatch: %x != %x", decoded.Raw(), addr.Raw())
	}
	if FormatAddress(addr.Raw()) != encoded {
		t.Fatalf("FormatAddress mismatch")
	}
}

func TestNewAddressRejectsShortInput(t *testing.T) {
	if _, err := NewAddress(AccountPrefix, []byte{0x01}); err == nil {
		t.Fatalf("expected error for short address")
	}
}

func TestPrivateKeyFromBytes(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	restored, err := PrivateKeyFromBytes(key.Bytes())
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.PubKey().Address().Raw() != key.PubKey().Address().Raw() {
		t.Fatalf("restored key derives a different address")
	}
}
