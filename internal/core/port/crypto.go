package port

// Argon2Params captures tunable parameters for the Argon2id hashing algorithm.
type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// PasswordStrength is the result of scoring a candidate password.
type PasswordStrength struct {
	IsValid bool
	Errors  []string
	Score   int
}

// PasswordHasher hashes and verifies secrets using a self-describing encoding.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Verify never errors on malformed input; it returns false instead.
	Verify(encoded string, password string) bool
	// NeedsRehash reports whether the embedded parameters differ from the
	// currently configured ones.
	NeedsRehash(encoded string) bool
}

// PasswordPolicy scores candidate passwords and mints temporary ones.
type PasswordPolicy interface {
	ValidateStrength(password string) PasswordStrength
	GenerateTemporaryPassword() (string, error)
}
