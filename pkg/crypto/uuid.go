package crypto

import "github.com/google/uuid"

// UUIDv4 returns a lowercase, hyphenated UUIDv4 string (8-4-4-4-12).
func UUIDv4() string {
	return uuid.New().String()
}
