package password

import (
	"fmt"
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// Argon2idParams controls Argon2id hashing cost.
// MemoryKiB is in KiB as required by argon2.IDKey.
type Argon2idParams struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Policy holds the signup password rules.
type Policy struct {
	MinLength int
	MaxLength int
	// RejectNumeric refuses passwords made only of digits.
	RejectNumeric bool
	// RejectCommon refuses passwords from the built-in common list.
	RejectCommon bool
	// RejectSimilar refuses passwords that contain, or are contained in, a user attribute.
	RejectSimilar bool
}

// Config is the single configuration surface for this package.
type Config struct {
	Params Argon2idParams
	Policy Policy
}

// DefaultConfig returns interactive-login cost and all rules enabled.
func DefaultConfig() Config {
	threads := min(max(runtime.NumCPU(), 1), 4)

	return Config{
		Params: Argon2idParams{
			MemoryKiB:   64 * 1024,
			Iterations:  3,
			Parallelism: uint8(threads), // #nosec G115 -- clamped to [1..4].
			SaltLength:  16,
			KeyLength:   32,
		},
		Policy: Policy{
			MinLength:     8,
			MaxLength:     256,
			RejectNumeric: true,
			RejectCommon:  true,
			RejectSimilar: true,
		},
	}
}

// Env names read by FromEnv.
const (
	EnvMinLen        = "LOCALLIBRARY_PASSWORD_MIN_LEN"
	EnvMaxLen        = "LOCALLIBRARY_PASSWORD_MAX_LEN"
	EnvRules         = "LOCALLIBRARY_PASSWORD_RULES"
	EnvArgonMemory   = "LOCALLIBRARY_ARGON2_MEMORY_KIB"
	EnvArgonIter     = "LOCALLIBRARY_ARGON2_ITERATIONS"
	EnvArgonParallel = "LOCALLIBRARY_ARGON2_PARALLELISM"
)

// FromEnv starts from DefaultConfig and applies the LOCALLIBRARY_* overrides.
//
// LOCALLIBRARY_PASSWORD_RULES is a comma list drawn from numeric, common and
// similar; "none" disables all three.
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	ints := []struct {
		key      string
		min, max int
		set      func(int)
	}{
		{EnvMinLen, 1, 1024, func(n int) { cfg.Policy.MinLength = n }},
		{EnvMaxLen, 1, 4096, func(n int) { cfg.Policy.MaxLength = n }},
		{EnvArgonMemory, 8 * 1024, 1024 * 1024, func(n int) { cfg.Params.MemoryKiB = uint32(n) }}, // #nosec G115 -- range-checked.
		{EnvArgonIter, 1, 20, func(n int) { cfg.Params.Iterations = uint32(n) }},                  // #nosec G115 -- range-checked.
		{EnvArgonParallel, 1, math.MaxUint8, func(n int) { cfg.Params.Parallelism = uint8(n) }},   // #nosec G115 -- range-checked.
	}
	for _, e := range ints {
		v, ok := os.LookupEnv(e.key)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return Config{}, fmt.Errorf("%s: not an integer", e.key)
		}
		if n < e.min || n > e.max {
			return Config{}, fmt.Errorf("%s: out of range [%d..%d]", e.key, e.min, e.max)
		}
		e.set(n)
	}

	if v, ok := os.LookupEnv(EnvRules); ok && strings.TrimSpace(v) != "" {
		p, err := parseRules(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvRules, err)
		}
		cfg.Policy.RejectNumeric, cfg.Policy.RejectCommon, cfg.Policy.RejectSimilar = p.RejectNumeric, p.RejectCommon, p.RejectSimilar
	}

	if cfg.Policy.MinLength > cfg.Policy.MaxLength {
		return Config{}, fmt.Errorf(
			"password policy invalid: min_len(%d) > max_len(%d)",
			cfg.Policy.MinLength,
			cfg.Policy.MaxLength,
		)
	}
	return cfg, nil
}

func parseRules(raw string) (Policy, error) {
	var p Policy
	for _, r := range strings.Split(raw, ",") {
		switch strings.ToLower(strings.TrimSpace(r)) {
		case "":
		case "none":
			return Policy{}, nil
		case "numeric":
			p.RejectNumeric = true
		case "common":
			p.RejectCommon = true
		case "similar":
			p.RejectSimilar = true
		default:
			return Policy{}, fmt.Errorf("unknown rule %q", r)
		}
	}
	return p, nil
}
