package security

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"unicode"

	zxcvbn "github.com/nbutton23/zxcvbn-go"

	"github.com/AudereSemper/kokoru-garden-api/internal/core/port"
)

// PasswordPolicyConfig controls strength validation and temporary-password
// generation. Character-class requirements are individually toggleable.
type PasswordPolicyConfig struct {
	MinLength      int
	RequireUpper   bool
	RequireLower   bool
	RequireDigit   bool
	RequireSpecial bool
}

// DefaultPasswordPolicyConfig mirrors the production defaults: 8+ chars with
// upper, lower and digit required; specials optional.
func DefaultPasswordPolicyConfig() PasswordPolicyConfig {
	return PasswordPolicyConfig{
		MinLength:    8,
		RequireUpper: true,
		RequireLower: true,
		RequireDigit: true,
	}
}

// PasswordPolicy scores candidate passwords on a 0-5 scale and generates
// temporary passwords satisfying the configured classes.
type PasswordPolicy struct {
	cfg PasswordPolicyConfig
}

var _ port.PasswordPolicy = (*PasswordPolicy)(nil)

// NewPasswordPolicy builds a policy, defaulting a non-positive MinLength to 8.
func NewPasswordPolicy(cfg PasswordPolicyConfig) *PasswordPolicy {
	if cfg.MinLength <= 0 {
		cfg.MinLength = 8
	}
	return &PasswordPolicy{cfg: cfg}
}

var commonPatterns = []string{
	"password", "qwerty", "123456", "abcdef", "letmein", "welcome", "admin",
}

// ValidateStrength applies the configured rules and returns the collected
// violations plus a score clamped to [0,5].
func (p *PasswordPolicy) ValidateStrength(password string) port.PasswordStrength {
	var errs []string

	length := len([]rune(password))
	if length < p.cfg.MinLength {
		errs = append(errs, fmt.Sprintf("password must be at least %d characters long", p.cfg.MinLength))
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsSymbol(r) || unicode.IsPunct(r):
			hasSpecial = true
		}
	}

	if p.cfg.RequireUpper && !hasUpper {
		errs = append(errs, "password must include at least one uppercase letter")
	}
	if p.cfg.RequireLower && !hasLower {
		errs = append(errs, "password must include at least one lowercase letter")
	}
	if p.cfg.RequireDigit && !hasDigit {
		errs = append(errs, "password must include at least one digit")
	}
	if p.cfg.RequireSpecial && !hasSpecial {
		errs = append(errs, "password must include at least one special character")
	}

	score := 0
	classes := 0
	for _, ok := range []bool{hasUpper, hasLower, hasDigit, hasSpecial} {
		if ok {
			classes++
		}
	}
	if length >= p.cfg.MinLength {
		score++
	}
	if classes >= 3 {
		score++
	}
	if length >= 12 {
		score++
	}
	if length >= 16 {
		score++
	}
	// zxcvbn catches dictionary words and keyboard walks the class checks miss.
	if zxcvbn.PasswordStrength(password, nil).Score >= 3 {
		score++
	}

	lowered := strings.ToLower(password)
	for _, pattern := range commonPatterns {
		if strings.Contains(lowered, pattern) {
			errs = append(errs, "password contains a common pattern")
			score -= 2
			break
		}
	}
	if hasTripleRepeat(password) {
		errs = append(errs, "password must not repeat the same character 3+ times in a row")
		score--
	}

	if score < 0 {
		score = 0
	}
	if score > 5 {
		score = 5
	}

	return port.PasswordStrength{
		IsValid: len(errs) == 0,
		Errors:  errs,
		Score:   score,
	}
}

func hasTripleRepeat(s string) bool {
	runes := []rune(s)
	for i := 2; i < len(runes); i++ {
		if runes[i] == runes[i-1] && runes[i] == runes[i-2] {
			return true
		}
	}
	return false
}

const (
	tempPasswordLength = 12
	upperChars         = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	lowerChars         = "abcdefghijkmnopqrstuvwxyz"
	digitChars         = "23456789"
	specialChars       = "!@#$%^&*-_=+"
)

// GenerateTemporaryPassword returns a 12-character random password guaranteed
// to contain at least one uppercase letter, one lowercase letter and one
// digit, plus one special character when the policy requires it.
func (p *PasswordPolicy) GenerateTemporaryPassword() (string, error) {
	charset := upperChars + lowerChars + digitChars + specialChars

	buf := make([]byte, tempPasswordLength)
	for i := range buf {
		c, err := randomChar(charset)
		if err != nil {
			return "", err
		}
		buf[i] = c
	}

	// Overwrite fixed positions so required classes are always present.
	required := []string{upperChars, lowerChars, digitChars}
	if p.cfg.RequireSpecial {
		required = append(required, specialChars)
	}
	for i, set := range required {
		c, err := randomChar(set)
		if err != nil {
			return "", err
		}
		buf[i] = c
	}

	return string(buf), nil
}

func randomChar(set string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
	if err != nil {
		return 0, fmt.Errorf("generate random character: %w", err)
	}
	return set[n.Int64()], nil
}
