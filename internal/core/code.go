package core

import (
	"crypto/rand"
	"errors"

	"github.com/dkeye/Lobby/internal/domain"
)

const (
	codeAlphabet      = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	DefaultCodeLength = 6
	maxCodeAttempts   = 16
)

var ErrCodeSpaceExhausted = errors.New("failed to generate unique session code")

// CodeGenerator yields candidate join codes; uniqueness is checked by the store.
type CodeGenerator func() (domain.SessionCode, error)

// RandomCodes draws codes of the given length from an alphabet without
// look-alike characters (no 0/O, 1/I).
func RandomCodes(length int) CodeGenerator {
	if length <= 0 {
		length = DefaultCodeLength
	}
	return func() (domain.SessionCode, error) {
		b := make([]byte, length)
		if _, err := rand.Read(b); err != nil {
			return "", err
		}
		for i := range b {
			b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
		}
		return domain.SessionCode(b), nil
	}
}
