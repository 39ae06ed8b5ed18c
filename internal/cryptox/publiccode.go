package cryptox

import (
	"strings"

	"github.com/zeebo/blake3"
)

const publicCodeDigits = 20

// PublicCode derives the human-comparable code for an account, formatted
// as five dot-separated groups of four digits.
func PublicCode(accountID string) (string, error) {
	pub, err := ParseAccountID(accountID)
	if err != nil {
		return "", err
	}
	sum := blake3.Sum256(pub)

	var b strings.Builder
	for i := 0; i < publicCodeDigits; i++ {
		if i > 0 && i%4 == 0 {
			b.WriteByte('.')
		}
		b.WriteByte('0' + sum[i]%10)
	}
	return b.String(), nil
}
