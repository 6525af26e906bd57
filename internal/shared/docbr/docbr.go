// Package docbr validates and generates Brazilian national identifiers
// (CPF for natural persons, CNPJ for companies) using the standard
// mod-11 check-digit algorithm.
package docbr

import (
	"math/rand"
	"strconv"
	"strings"
)

// IsValidCPF reports whether s is a valid 11-digit CPF.
// Formatting characters are not accepted; callers must pass bare digits.
func IsValidCPF(s string) bool {
	digits, ok := toDigits(s, 11)
	if !ok || allSame(digits) {
		return false
	}

	d1 := cpfCheckDigit(digits[:9], 10)
	if digits[9] != d1 {
		return false
	}
	d2 := cpfCheckDigit(digits[:10], 11)
	return digits[10] == d2
}

// IsValidCNPJ reports whether s is a valid 14-digit CNPJ.
func IsValidCNPJ(s string) bool {
	digits, ok := toDigits(s, 14)
	if !ok || allSame(digits) {
		return false
	}

	d1 := cnpjCheckDigit(digits[:12])
	if digits[12] != d1 {
		return false
	}
	d2 := cnpjCheckDigit(digits[:13])
	return digits[13] == d2
}

// GenerateCPF returns a random valid CPF.
func GenerateCPF() string {
	digits := make([]int, 9, 11)
	for i := range digits {
		digits[i] = rand.Intn(10)
	}
	digits = append(digits, cpfCheckDigit(digits, 10))
	digits = append(digits, cpfCheckDigit(digits, 11))
	return digitsToString(digits)
}

// GenerateCNPJ returns a random valid CNPJ with the common 0001 branch suffix.
func GenerateCNPJ() string {
	digits := make([]int, 0, 14)
	for i := 0; i < 8; i++ {
		digits = append(digits, rand.Intn(10))
	}
	digits = append(digits, 0, 0, 0, 1)
	digits = append(digits, cnpjCheckDigit(digits))
	digits = append(digits, cnpjCheckDigit(digits))
	return digitsToString(digits)
}

// cpfCheckDigit computes a CPF verification digit over digits with
// descending weights starting at startWeight (10 for the first digit,
// 11 for the second).
func cpfCheckDigit(digits []int, startWeight int) int {
	sum := 0
	for i, d := range digits {
		sum += d * (startWeight - i)
	}
	d := sum * 10 % 11
	if d == 10 {
		return 0
	}
	return d
}

// cnpjCheckDigit computes a CNPJ verification digit. Weights cycle
// 9..2 from the rightmost position leftwards.
func cnpjCheckDigit(digits []int) int {
	weight := 2
	sum := 0
	for i := len(digits) - 1; i >= 0; i-- {
		sum += digits[i] * weight
		weight++
		if weight > 9 {
			weight = 2
		}
	}
	d := 11 - sum%11
	if d >= 10 {
		return 0
	}
	return d
}

func toDigits(s string, want int) ([]int, bool) {
	if len(s) != want {
		return nil, false
	}
	digits := make([]int, want)
	for i := 0; i < want; i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return nil, false
		}
		digits[i] = int(c - '0')
	}
	return digits, true
}

func allSame(digits []int) bool {
	for _, d := range digits[1:] {
		if d != digits[0] {
			return false
		}
	}
	return true
}

func digitsToString(digits []int) string {
	var b strings.Builder
	b.Grow(len(digits))
	for _, d := range digits {
		b.WriteString(strconv.Itoa(d))
	}
	return b.String()
}
