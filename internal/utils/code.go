package utils

import (
	"crypto/rand"
	"math/big"
)

// GenerateRandomCode creates a numeric code with the given length using crypto/rand.
func GenerateRandomCode(n int) (string, error) {
	if n <= 0 {
		n = 6
	}
	digits := make([]byte, n)
	ten := big.NewInt(10)
	for i := range digits {
		v, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + v.Int64())
	}
	return string(digits), nil
}
