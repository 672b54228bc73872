package vectorstore

import "fmt"

// New constructs the configured Provider. Only chromem and qdrant are
// wired — the teacher's factory also offered chroma/pinecone/weaviate/
// milvus, but no SPEC_FULL.md component needs a fourth backend; trimmed
// per the kernel's actual vector-store config surface (pkg/config/types.go).
func New(provider, path, address string) (Provider, error) {
	switch provider {
	case "", "chromem":
		return NewChromemProvider(ChromemConfig{PersistPath: path})
	case "qdrant":
		return NewQdrantProvider(QdrantConfig{Host: address})
	default:
		return nil, fmt.Errorf("unknown vector provider %q", provider)
	}
}
