// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package action

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

const HashSize = 32

var ErrInvalidHash = errors.New("invalid hash")

// Hash is a keccak-256 digest used to fingerprint proposals and timelock
// operations
type Hash [HashSize]byte

// ZeroHash is the empty predecessor/salt value
var ZeroHash Hash

// Keccak256 hashes the concatenation of the provided byte slices
func Keccak256(data ...[]byte) Hash {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	var ret Hash
	copy(ret[:], h.Sum(nil))
	return ret
}

// HashFromBytes converts a 32-byte slice into a Hash
func HashFromBytes(b []byte) (Hash, error) {
	var ret Hash
	if len(b) != HashSize {
		return ret, fmt.Errorf(
			"%w: expected %d bytes, got %d",
			ErrInvalidHash,
			HashSize,
			len(b),
		)
	}
	copy(ret[:], b)
	return ret, nil
}

// ParseHash decodes a hex string with an optional 0x prefix
func ParseHash(s string) (Hash, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, fmt.Errorf("%w: %w", ErrInvalidHash, err)
	}
	return HashFromBytes(b)
}

func (h Hash) Bytes() []byte {
	return h[:]
}

func (h Hash) IsZero() bool {
	return h == ZeroHash
}

func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Hash) UnmarshalText(text []byte) error {
	tmp, err := ParseHash(string(text))
	if err != nil {
		return err
	}
	*h = tmp
	return nil
}
