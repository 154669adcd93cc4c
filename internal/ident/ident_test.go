package ident

import (
	"strings"
	"testing"
)

func TestProviderJobIDUniqueAcrossCalls(t *testing.T) {
	const prompt = "a corgi surfing a wave at sunset"
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := ProviderJobID(prompt)
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q after %d iterations", id, i)
		}
		seen[id] = struct{}{}
	}
}

func TestProviderJobIDFixedLength(t *testing.T) {
	short := ProviderJobID("x")
	long := ProviderJobID(strings.Repeat("a very long prompt ", 50))
	if len(short) != len(long) {
		t.Fatalf("id lengths differ: %d vs %d", len(short), len(long))
	}
	if len(long) == 0 || len(long) > 32 {
		t.Fatalf("id length %d outside expected bound", len(long))
	}
}

func TestProviderJobIDDoesNotEmbedFullPrompt(t *testing.T) {
	prompt := strings.Repeat("secret-marker-", 20)
	id := ProviderJobID(prompt)
	if strings.Contains(id, prompt) {
		t.Fatal("full prompt leaked into id")
	}
}

func TestProviderJobIDURLSafeAlphabet(t *testing.T) {
	id := ProviderJobID("prompt with spaces & punctuation!")
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			t.Fatalf("id %q contains non-url-safe rune %q", id, r)
		}
	}
}

func TestSeedRangeAndVariety(t *testing.T) {
	seen := make(map[int32]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		s := Seed()
		if s < 0 || s >= 1<<31-1 {
			t.Fatalf("seed %d out of range", s)
		}
		seen[s] = struct{}{}
	}
	// 1000 draws from 2^31 values colliding down to a handful would indicate
	// a broken source.
	if len(seen) < 990 {
		t.Fatalf("only %d distinct seeds out of 1000", len(seen))
	}
}
