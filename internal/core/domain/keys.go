package domain

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"

	"github.com/cloudflare/cfssl/helpers"

	"github.com/trustfabric/trustfabric/internal/core/errors"
)

const privateKeyBlockType = "PRIVATE KEY"

// GenerateKey generates a fresh Ed25519 key pair. Ed25519 is the network's
// default signing algorithm; RSA and ECDSA keys remain accepted on the
// verification side.
func GenerateKey() (crypto.Signer, error) {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, errors.Wrap(errors.ErrIO, err)
	}
	return key, nil
}

// MarshalPrivateKeyPEM serializes a private key as PKCS#8 PEM. A non-empty
// passphrase produces a legacy-encrypted PEM block, the format the load
// path decrypts.
func MarshalPrivateKeyPEM(key crypto.Signer, passphrase []byte) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, errors.Wrap(errors.ErrIO, err)
	}
	if len(passphrase) == 0 {
		return pem.EncodeToMemory(&pem.Block{Type: privateKeyBlockType, Bytes: der}), nil
	}
	//nolint:staticcheck // PEM encryption is the interchange format credential files use.
	block, err := x509.EncryptPEMBlock(rand.Reader, privateKeyBlockType, der, passphrase, x509.PEMCipherAES256)
	if err != nil {
		return nil, errors.Wrap(errors.ErrIO, err)
	}
	return pem.EncodeToMemory(block), nil
}

// ParsePrivateKeyPEM parses a PKCS#8 PEM private key, decrypting it with
// the passphrase when the block is encrypted. A wrong passphrase fails
// with DECRYPTION_FAILED.
func ParsePrivateKeyPEM(data []byte, passphrase []byte) (crypto.Signer, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.Wrapf(errors.ErrIO, "no PEM block in key material")
	}
	//nolint:staticcheck // matches the encryption used by MarshalPrivateKeyPEM
	encrypted := x509.IsEncryptedPEMBlock(block)
	if encrypted && len(passphrase) == 0 {
		return nil, errors.Wrapf(errors.ErrDecryptionFailed, "key is encrypted and no passphrase was supplied")
	}

	key, err := helpers.ParsePrivateKeyPEMWithPassword(data, passphrase)
	if err != nil {
		if encrypted {
			return nil, errors.Wrap(errors.ErrDecryptionFailed, err)
		}
		return nil, errors.Wrap(errors.ErrIO, err)
	}
	return key, nil
}

// PublicKeysEqual reports whether two public keys are the same key.
func PublicKeysEqual(a, b crypto.PublicKey) bool {
	switch ak := a.(type) {
	case ed25519.PublicKey:
		bk, ok := b.(ed25519.PublicKey)
		return ok && bytes.Equal(ak, bk)
	case *rsa.PublicKey:
		bk, ok := b.(*rsa.PublicKey)
		return ok && ak.Equal(bk)
	case *ecdsa.PublicKey:
		bk, ok := b.(*ecdsa.PublicKey)
		return ok && ak.Equal(bk)
	}
	return false
}
