package incrcrypt

import (
	"bytes"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	plaintext := []byte("the quick brown fox jumps over the lazy dog")
	passphrase := []byte("correct horse battery staple")

	ct, err := Encrypt(plaintext, passphrase)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	pt, err := Decrypt(ct, passphrase)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(pt, plaintext) {
		t.Fatalf("round trip mismatch: got %q want %q", pt, plaintext)
	}
}

func TestDecryptWithWrongPassphraseFails(t *testing.T) {
	ct, err := Encrypt([]byte("secret incremental state"), []byte("right-passphrase"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, err := Decrypt(ct, []byte("wrong-passphrase")); err == nil {
		t.Fatalf("expected Decrypt to fail with the wrong passphrase")
	}
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	ct, err := Encrypt([]byte("secret incremental state"), []byte("passphrase"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	ct[len(ct)-1] ^= 1
	if _, err := Decrypt(ct, []byte("passphrase")); err == nil {
		t.Fatalf("expected Decrypt to reject tampered ciphertext")
	}
}

func TestDecryptRejectsTooShortInput(t *testing.T) {
	if _, err := Decrypt([]byte("short"), []byte("passphrase")); err != ErrCiphertextTooShort {
		t.Fatalf("expected ErrCiphertextTooShort, got %v", err)
	}
}

func TestEncryptProducesDistinctCiphertextsForSamePlaintext(t *testing.T) {
	pt := []byte("same plaintext both times")
	pass := []byte("passphrase")

	ct1, err := Encrypt(pt, pass)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	ct2, err := Encrypt(pt, pass)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if bytes.Equal(ct1, ct2) {
		t.Fatalf("expected distinct ciphertexts from fresh random salt/nonce, got identical output")
	}
}

func TestEncryptToWriterDecryptFromReaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	plaintext := []byte("incremental state goes here")
	passphrase := []byte("passphrase")

	if err := EncryptToWriter(&buf, plaintext, passphrase); err != nil {
		t.Fatalf("EncryptToWriter: %v", err)
	}
	pt, err := DecryptFromReader(&buf, passphrase)
	if err != nil {
		t.Fatalf("DecryptFromReader: %v", err)
	}
	if !bytes.Equal(pt, plaintext) {
		t.Fatalf("round trip mismatch: got %q want %q", pt, plaintext)
	}
}
