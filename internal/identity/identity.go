// Package identity manages the long-lived keypair whose public-key
// hash addresses a node on the mesh. The hash, not any network
// location, is how peers name each other.
package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// HashLen is the truncated identity hash length in bytes.
const HashLen = 16

type Identity struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
	hash string
}

// Hash is the hex form of the truncated public-key digest. This is the
// address other nodes know this identity by.
func (i *Identity) Hash() string {
	return i.hash
}

func (i *Identity) PublicKey() ed25519.PublicKey {
	return i.pub
}

func (i *Identity) Sign(data []byte) []byte {
	return ed25519.Sign(i.priv, data)
}

func fromSeed(seed []byte) (*Identity, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("identity seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	digest := sha256.Sum256(pub)
	return &Identity{
		priv: priv,
		pub:  pub,
		hash: hex.EncodeToString(digest[:HashLen]),
	}, nil
}

// LoadOrCreate reads the identity seed from path, generating and
// persisting a fresh one when the file does not exist yet.
func LoadOrCreate(path string) (*Identity, error) {
	seed, err := os.ReadFile(path)
	if err == nil {
		return fromSeed(seed)
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read identity file: %w", err)
	}

	seed = make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("generate identity seed: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create identity directory: %w", err)
		}
	}
	if err := os.WriteFile(path, seed, 0o600); err != nil {
		return nil, fmt.Errorf("write identity file: %w", err)
	}
	return fromSeed(seed)
}
