package security

import (
	"strings"
	"testing"
	"unicode"
)

func TestValidateStrengthAcceptsStrongPassword(t *testing.T) {
	p := NewPasswordPolicy(DefaultPasswordPolicyConfig())

	result := p.ValidateStrength("Vk9#mTraq2Lz")
	if !result.IsValid {
		t.Fatalf("expected valid, got errors: %v", result.Errors)
	}
	if result.Score < 3 {
		t.Fatalf("expected score >= 3, got %d", result.Score)
	}
}

func TestValidateStrengthRejectsShortPassword(t *testing.T) {
	p := NewPasswordPolicy(DefaultPasswordPolicyConfig())

	result := p.ValidateStrength("Ab1")
	if result.IsValid {
		t.Fatal("expected short password to be rejected")
	}
}

func TestValidateStrengthMissingClasses(t *testing.T) {
	p := NewPasswordPolicy(DefaultPasswordPolicyConfig())

	result := p.ValidateStrength("alllowercaseword")
	if result.IsValid {
		t.Fatal("expected password without upper/digit to be rejected")
	}
	if len(result.Errors) < 2 {
		t.Fatalf("expected violations for uppercase and digit, got %v", result.Errors)
	}
}

func TestValidateStrengthPenalizesCommonPatterns(t *testing.T) {
	p := NewPasswordPolicy(DefaultPasswordPolicyConfig())

	result := p.ValidateStrength("MyPassword123")
	if result.IsValid {
		t.Fatal("expected common-pattern password to be rejected")
	}

	clean := p.ValidateStrength("Vk9#mTraq2Lz")
	if result.Score >= clean.Score {
		t.Fatalf("common pattern should lower score: got %d vs %d", result.Score, clean.Score)
	}
}

func TestValidateStrengthPenalizesRepeats(t *testing.T) {
	p := NewPasswordPolicy(DefaultPasswordPolicyConfig())

	result := p.ValidateStrength("Aaabbb111xyZ")
	if result.IsValid {
		t.Fatal("expected 3+ repeated characters to be rejected")
	}
}

func TestValidateStrengthScoreBounds(t *testing.T) {
	p := NewPasswordPolicy(DefaultPasswordPolicyConfig())

	for _, candidate := range []string{"", "a", "password", "passwordpassword", "X8#qLmVt2$wNpZr4Kd"} {
		score := p.ValidateStrength(candidate).Score
		if score < 0 || score > 5 {
			t.Fatalf("score out of bounds for %q: %d", candidate, score)
		}
	}
}

func TestValidateStrengthLengthBonus(t *testing.T) {
	p := NewPasswordPolicy(DefaultPasswordPolicyConfig())

	short := p.ValidateStrength("Xq2#kTbn")
	long := p.ValidateStrength("Xq2#kTbnWm5!rJcV")
	if long.Score <= short.Score {
		t.Fatalf("expected length bonus: %d vs %d", long.Score, short.Score)
	}
}

func TestGenerateTemporaryPassword(t *testing.T) {
	p := NewPasswordPolicy(DefaultPasswordPolicyConfig())

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		pw, err := p.GenerateTemporaryPassword()
		if err != nil {
			t.Fatalf("GenerateTemporaryPassword returned error: %v", err)
		}
		if len(pw) != 12 {
			t.Fatalf("expected 12 characters, got %d", len(pw))
		}
		if !containsClass(pw, unicode.IsUpper) || !containsClass(pw, unicode.IsLower) || !containsClass(pw, unicode.IsDigit) {
			t.Fatalf("generated password missing a required class: %q", pw)
		}
		if seen[pw] {
			t.Fatalf("generated password repeated: %q", pw)
		}
		seen[pw] = true
	}
}

func TestGenerateTemporaryPasswordWithSpecial(t *testing.T) {
	cfg := DefaultPasswordPolicyConfig()
	cfg.RequireSpecial = true
	p := NewPasswordPolicy(cfg)

	pw, err := p.GenerateTemporaryPassword()
	if err != nil {
		t.Fatalf("GenerateTemporaryPassword returned error: %v", err)
	}
	if !strings.ContainsAny(pw, specialChars) {
		t.Fatalf("expected a special character in %q", pw)
	}
}

func containsClass(s string, class func(rune) bool) bool {
	for _, r := range s {
		if class(r) {
			return true
		}
	}
	return false
}
