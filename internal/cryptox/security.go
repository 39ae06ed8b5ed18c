package cryptox

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/bulletinkeeper/internal/common"
	"github.com/zeebo/blake3"
)

// Security is an ed25519 identity. Its account id is the base64 encoding of
// the public key.
type Security struct {
	key ed25519.PrivateKey
}

// GenerateSecurity creates a fresh random key pair.
func GenerateSecurity() (*Security, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &Security{key: priv}, nil
}

// SecurityFromSeed rebuilds a key pair from its 32-byte seed.
func SecurityFromSeed(seed []byte) (*Security, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: seed length %d", common.ErrInvalidKeyPairFile, len(seed))
	}
	return &Security{key: ed25519.NewKeyFromSeed(seed)}, nil
}

func (s *Security) PublicKey() ed25519.PublicKey {
	return s.key.Public().(ed25519.PublicKey)
}

func (s *Security) AccountID() string {
	return base64.StdEncoding.EncodeToString(s.PublicKey())
}

func (s *Security) seed() []byte {
	return s.key.Seed()
}

// Sign returns a detached signature over data.
func (s *Security) Sign(data []byte) ([]byte, error) {
	return ed25519.Sign(s.key, data), nil
}

// SignReader signs the blake3 digest of everything read from r.
func (s *Security) SignReader(r io.Reader) ([]byte, error) {
	digest, err := digestReader(r)
	if err != nil {
		return nil, err
	}
	return s.Sign(digest)
}

// ParseAccountID decodes an account id into its public key.
func ParseAccountID(accountID string) (ed25519.PublicKey, error) {
	raw, err := base64.StdEncoding.DecodeString(accountID)
	if err != nil || len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: malformed account id", common.ErrSignatureVerification)
	}
	return ed25519.PublicKey(raw), nil
}

// Verify checks a detached signature made by accountID over data.
func Verify(accountID string, data, sig []byte) error {
	pub, err := ParseAccountID(accountID)
	if err != nil {
		return err
	}
	if !ed25519.Verify(pub, data, sig) {
		return common.ErrSignatureVerification
	}
	return nil
}

// VerifyBase64 is Verify for a base64-encoded signature.
func VerifyBase64(accountID string, data []byte, sigB64 string) error {
	sig, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return fmt.Errorf("%w: malformed signature", common.ErrSignatureVerification)
	}
	return Verify(accountID, data, sig)
}

// VerifyReader checks a signature produced by SignReader.
func VerifyReader(accountID string, r io.Reader, sig []byte) error {
	digest, err := digestReader(r)
	if err != nil {
		return err
	}
	return Verify(accountID, digest, sig)
}

// SignFile writes a detached signature of path into sigPath.
func (s *Security) SignFile(path, sigPath string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sig, err := s.SignReader(f)
	if err != nil {
		return err
	}
	return os.WriteFile(sigPath, sig, 0o600)
}

// VerifyFile checks that sigPath holds accountID's signature of path.
func VerifyFile(accountID, path, sigPath string) error {
	sig, err := os.ReadFile(sigPath)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrFileVerification, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrFileVerification, err)
	}
	defer f.Close()

	if err := VerifyReader(accountID, f, sig); err != nil {
		return fmt.Errorf("%w: %v", common.ErrFileVerification, err)
	}
	return nil
}

// Digest returns the blake3-256 digest of data.
func Digest(data []byte) []byte {
	sum := blake3.Sum256(data)
	return sum[:]
}

func digestReader(r io.Reader) ([]byte, error) {
	h := blake3.New()
	if _, err := io.Copy(h, r); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}
