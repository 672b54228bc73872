package vectorstore

import "crypto/sha256"

// HashEmbed is the deterministic fallback embedder used when no real
// embedding model is configured: a SHA-256 digest of the text, each byte
// normalized into [0,1]. Grounded on the original's hash-based embedding
// fallback (`vector_store.py`, used "if FastEmbed is unavailable").
// Produces a fixed 32-dimension vector; good enough for exact-text reuse
// (identical text embeds identically) but not for real semantic
// similarity.
func HashEmbed(text string) []float32 {
	sum := sha256.Sum256([]byte(text))
	vec := make([]float32, len(sum))
	for i, b := range sum {
		vec[i] = float32(b) / 255.0
	}
	return vec
}
