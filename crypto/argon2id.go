package crypto

import (
	"github.com/alexedwards/argon2id"
)

type Argon2idHasher struct {
	params *argon2id.Params
}

// NewArgon2idHasher creates a new hasher with the specified difficulty
// parameters.
//
// memory must be provided in Kilobytes (KB).
func NewArgon2idHasher(time, memory, keyLength, saltLength uint32, parallelism uint8) *Argon2idHasher {
	return &Argon2idHasher{
		params: &argon2id.Params{
			Memory:      memory,
			Iterations:  time,
			Parallelism: parallelism,
			SaltLength:  saltLength,
			KeyLength:   keyLength,
		},
	}
}

// DefaultHasher is tuned for short-lived session passcodes.
func DefaultHasher() *Argon2idHasher {
	return NewArgon2idHasher(2, 19*1024, 32, 16, 1)
}

func (h *Argon2idHasher) Hash(passcode string) string {
	hash, _ := argon2id.CreateHash(passcode, h.params)
	return hash
}

// Compare verifies a passcode against a hash.
func (h *Argon2idHasher) Compare(hash, passcode string) bool {
	match, _ := argon2id.ComparePasswordAndHash(passcode, hash)
	return match
}
