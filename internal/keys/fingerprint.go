package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"strings"

	"golang.org/x/crypto/ssh"
)

// Fingerprint computes the MD5 fingerprint of an OpenSSH public key in
// the "MD5:aa:bb:..." form downstream git hosting expects.
func Fingerprint(publicKey string) (string, error) {
	pub, _, _, _, err := ssh.ParseAuthorizedKey([]byte(publicKey))
	if err != nil {
		return "", fmt.Errorf("invalid public key: %w", err)
	}
	return "MD5:" + ssh.FingerprintLegacyMD5(pub), nil
}

// GenerateKeyPair creates an RSA-2048 keypair, returning the private key
// as PEM and the public key as a single authorized_keys line. The private
// half is handed to the caller exactly once and never stored.
func GenerateKeyPair() (private, public string, err error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate key: %w", err)
	}

	privatePEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	sshPub, err := ssh.NewPublicKey(&key.PublicKey)
	if err != nil {
		return "", "", fmt.Errorf("failed to derive public key: %w", err)
	}

	return string(privatePEM), strings.TrimSpace(string(ssh.MarshalAuthorizedKey(sshPub))), nil
}
