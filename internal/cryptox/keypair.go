package cryptox

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dmitrijs2005/bulletinkeeper/internal/common"
)

const keyPairFileVersion = 1

// keyPairFile is the on-disk layout of keypair.dat.
type keyPairFile struct {
	Version    int    `json:"version"`
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// WriteKeyPair stores the key pair seed encrypted under passphrase.
func WriteKeyPair(w io.Writer, s *Security, passphrase []byte) error {
	salt := common.GenerateRandByteArray(saltSize)
	key := DeriveKey(passphrase, salt)
	defer common.WipeByteArray(key)

	ciphertext, nonce, err := seal(s.seed(), key)
	if err != nil {
		return err
	}

	return json.NewEncoder(w).Encode(keyPairFile{
		Version:    keyPairFileVersion,
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: ciphertext,
	})
}

// ReadKeyPair decrypts a key pair written by WriteKeyPair. A wrong passphrase
// yields common.ErrInvalidPassphrase; a corrupt file common.ErrInvalidKeyPairFile.
func ReadKeyPair(r io.Reader, passphrase []byte) (*Security, error) {
	var f keyPairFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidKeyPairFile, err)
	}
	if f.Version != keyPairFileVersion || len(f.Salt) == 0 || len(f.Nonce) == 0 {
		return nil, common.ErrInvalidKeyPairFile
	}

	key := DeriveKey(passphrase, f.Salt)
	defer common.WipeByteArray(key)

	seed, err := open(f.Ciphertext, f.Nonce, key)
	if err != nil {
		return nil, common.ErrInvalidPassphrase
	}
	defer common.WipeByteArray(seed)

	return SecurityFromSeed(seed)
}
