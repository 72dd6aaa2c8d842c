// Package identity turns platform user ids into the ids stored with responses.
package identity

import (
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/blake2b"
)

// Transformer maps a platform user id to its stored form. It must be
// deterministic: the same id always gives the same result.
type Transformer interface {
	Transform(id string) (string, error)
}

// Reverser is a Transformer whose stored ids can be turned back into
// platform ids, so respondents can be named in results.
type Reverser interface {
	Transformer
	Reverse(stored string) (string, error)
}

type TransformerFunc func(id string) (string, error)

func (f TransformerFunc) Transform(id string) (string, error) {
	return f(id)
}

// Passthrough stores platform ids as they are.
type Passthrough struct{}

func (Passthrough) Transform(id string) (string, error) { return id, nil }
func (Passthrough) Reverse(stored string) (string, error) { return stored, nil }

var ErrNoKey = errors.New("identity: empty key")

type keyed struct {
	key []byte
}

// Keyed returns a one-way transformer: a keyed BLAKE2b-256 hash, hex encoded.
// Keys longer than 64 bytes are hashed down first.
func Keyed(key []byte) (Transformer, error) {
	if len(key) == 0 {
		return nil, ErrNoKey
	}
	if len(key) > blake2b.Size {
		sum := blake2b.Sum512(key)
		key = sum[:]
	}
	return &keyed{key: append([]byte(nil), key...)}, nil
}

func (k *keyed) Transform(id string) (string, error) {
	h, err := blake2b.New256(k.key)
	if err != nil {
		return "", err
	}
	h.Write([]byte(id))
	return hex.EncodeToString(h.Sum(nil)), nil
}

// New picks Keyed when key is set and Passthrough otherwise.
func New(key string) (Transformer, error) {
	if key == "" {
		return Passthrough{}, nil
	}
	return Keyed([]byte(key))
}
