// Package tlsconf builds TLS configs for the optional TCP HTTP API from a
// shared passphrase, with no CA and no certificate files.
//
// The server key is derived from the passphrase:
//
//	HKDF-SHA256(ikm=passphrase, salt="clipkeep-http-tls-v1", info="p256")
//	→ 48 bytes → reduced into [1, N-1] → ECDSA P-256 key
//
// The certificate wrapping it is random on every start. Clients derive the
// same key and accept a server only if its certificate carries that public
// key.
package tlsconf

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"fmt"
	"io"
	"math/big"
	"time"

	"golang.org/x/crypto/hkdf"
)

const serverName = "clipkeep"

// ErrKeyMismatch is returned by the client handshake when the server's key
// was derived from a different passphrase.
var ErrKeyMismatch = errors.New("tlsconf: server key does not match passphrase")

// ServerConfig returns a TLS 1.3 config whose certificate key is derived
// from passphrase.
func ServerConfig(passphrase string) (*tls.Config, error) {
	key, err := deriveKey(passphrase)
	if err != nil {
		return nil, err
	}
	der, err := selfSigned(key)
	if err != nil {
		return nil, fmt.Errorf("tlsconf: certificate: %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{{Certificate: [][]byte{der}, PrivateKey: key}},
		NextProtos:   []string{"h2", "http/1.1"},
		MinVersion:   tls.VersionTLS13,
	}, nil
}

// ClientConfig returns a config that trusts exactly the server key derived
// from passphrase.
func ClientConfig(passphrase string) (*tls.Config, error) {
	key, err := deriveKey(passphrase)
	if err != nil {
		return nil, err
	}
	want, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("tlsconf: public key: %w", err)
	}
	return &tls.Config{
		// The chain is not checked; the pinned key below is.
		InsecureSkipVerify: true, //nolint:gosec
		ServerName:         serverName,
		MinVersion:         tls.VersionTLS13,
		VerifyPeerCertificate: func(raw [][]byte, _ [][]*x509.Certificate) error {
			if len(raw) == 0 {
				return ErrKeyMismatch
			}
			cert, err := x509.ParseCertificate(raw[0])
			if err != nil {
				return fmt.Errorf("tlsconf: server certificate: %w", err)
			}
			got, err := x509.MarshalPKIXPublicKey(cert.PublicKey)
			if err != nil || !bytes.Equal(got, want) {
				return ErrKeyMismatch
			}
			return nil
		},
	}, nil
}

func deriveKey(passphrase string) (*ecdsa.PrivateKey, error) {
	if passphrase == "" {
		return nil, errors.New("tlsconf: empty passphrase")
	}
	// 48 bytes keeps the modulo bias below 2^-128.
	buf := make([]byte, 48)
	r := hkdf.New(sha256.New, []byte(passphrase), []byte("clipkeep-http-tls-v1"), []byte("p256"))
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("tlsconf: hkdf: %w", err)
	}

	curve := elliptic.P256()
	nMinus1 := new(big.Int).Sub(curve.Params().N, big.NewInt(1))
	d := new(big.Int).SetBytes(buf)
	d.Mod(d, nMinus1).Add(d, big.NewInt(1))

	key := &ecdsa.PrivateKey{D: d}
	key.Curve = curve
	key.X, key.Y = curve.ScalarBaseMult(d.FillBytes(make([]byte, 32)))
	return key, nil
}

func selfSigned(key *ecdsa.PrivateKey) ([]byte, error) {
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 126))
	if err != nil {
		return nil, err
	}
	now := time.Now()
	tmpl := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: serverName},
		DNSNames:              []string{serverName},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.AddDate(10, 0, 0),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}
	return x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
}
