package jobstore

import (
	"encoding/json"
	"fmt"

	"github.com/petrijr/copilot/pkg/api"
)

// Artifacts are JSON documents by contract with the capability providers,
// so the persistent stores encode them as JSON rather than an opaque binary
// format. A nil artifact round-trips as an empty byte slice.

func encodeArtifact(v any) ([]byte, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case *api.ProcessGraph:
		if x == nil {
			return nil, nil
		}
	case *api.DataModel:
		if x == nil {
			return nil, nil
		}
	case *api.FormModel:
		if x == nil {
			return nil, nil
		}
	}
	return json.Marshal(v)
}

func decodeArtifact[T any](data []byte) (*T, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	return &v, nil
}

func artifactTypeError(stage api.StageTag, artifact any) error {
	return fmt.Errorf("artifact %T does not match stage %s", artifact, stage)
}
