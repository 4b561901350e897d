package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/wpdiag/internal/models"
)

// maxSnapshotBytes bounds request bodies on every surface.
const maxSnapshotBytes = 16 << 20

// FromProtoSnapshot maps the gRPC request struct into a domain Snapshot.
func FromProtoSnapshot(req *structpb.Struct) (models.Snapshot, error) {
	if req == nil {
		return models.Snapshot{}, fmt.Errorf("request is nil")
	}
	data, err := protojson.Marshal(req)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("encode request: %w", err)
	}
	return DecodeSnapshot(bytes.NewReader(data))
}

// ToProtoReport converts a domain report into the gRPC representation.
func ToProtoReport(report models.Report) (*structpb.Struct, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("convert report: %w", err)
	}
	return out, nil
}

// DecodeSnapshot reads a JSON snapshot document. Unknown fields are ignored so that newer
// collectors can talk to older engines.
func DecodeSnapshot(r io.Reader) (models.Snapshot, error) {
	var snapshot models.Snapshot
	dec := json.NewDecoder(io.LimitReader(r, maxSnapshotBytes))
	if err := dec.Decode(&snapshot); err != nil {
		return models.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snapshot, nil
}
