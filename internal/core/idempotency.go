package core

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"studyforge.io/quiz-service/internal/store"
)

// DeriveJobID computes the deterministic identifier for a generation
// request: "{kind}_{doc_id}_{sha256 of the canonical params encoding}". The
// params map is serialized by encoding/json, which sorts keys at every
// level, so identical requests always produce identical ids and any changed
// parameter value changes the id. This id is the sole deduplication
// mechanism for generation jobs.
func DeriveJobID(kind store.JobKind, docID string, params map[string]any) (string, error) {
	canonical, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize request params: %w", err)
	}
	digest := sha256.Sum256(canonical)
	return fmt.Sprintf("%s_%s_%s", kind, docID, hex.EncodeToString(digest[:])), nil
}
