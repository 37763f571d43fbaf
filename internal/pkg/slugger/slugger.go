package slugger

import (
	"crypto/rand"
	"fmt"
)

// Alphabet for generated slugs (36 characters: 0-9, a-z).
// Uppercase is excluded so generated slugs match the public slug rules.
const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// GenerateSlug creates a cryptographically secure random slug.
func GenerateSlug(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid slug length: %d", length)
	}

	// Rejection sampling to avoid modulo bias.
	// 252 is the largest multiple of 36 below 256.
	const maxRandomByte = 252

	slug := make([]byte, length)
	buf := make([]byte, length*2)
	written := 0

	for written < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read secure random bytes: %w", err)
		}

		for _, b := range buf {
			if b >= maxRandomByte {
				continue
			}
			slug[written] = alphabet[int(b)%len(alphabet)]
			written++
			if written == length {
				break
			}
		}
	}

	return string(slug), nil
}
