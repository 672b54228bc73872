package vectorstore

import "github.com/omnikernel/kernel/pkg/manifest"

// ToVectorPayload stamps a raw search Result with the `omni.vector.search.v1`
// schema every reader validates against.
func ToVectorPayload(r Result) manifest.VectorPayload {
	score := float64(r.Score)
	return manifest.VectorPayload{
		Schema:   manifest.SchemaVectorSearchV1,
		ID:       r.ID,
		Content:  r.Content,
		Metadata: r.Metadata,
		Distance: 1 - float64(r.Score),
		Score:    &score,
	}
}
