package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

const (
	codeAlphabet    = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	codeLength      = 7
	maxCodeAttempts = 10
)

var aliasPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,32}$`)

// reservedAliases collide with top-level routes served next to /:code.
var reservedAliases = map[string]struct{}{
	"api":       {},
	"health":    {},
	"metrics":   {},
	"static":    {},
	"assets":    {},
	"login":     {},
	"register":  {},
	"dashboard": {},
	"pricing":   {},
	"admin":     {},
}

// CodeGenerator produces candidate short codes.
type CodeGenerator func() (string, error)

// RandomCode returns a base62 code of codeLength characters read from crypto/rand.
func RandomCode() (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	var b strings.Builder
	b.Grow(codeLength)
	for i := 0; i < codeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

func validateAlias(alias string) error {
	if !aliasPattern.MatchString(alias) {
		return ErrInvalidAlias
	}
	if _, ok := reservedAliases[strings.ToLower(alias)]; ok {
		return ErrReservedAlias
	}
	return nil
}
