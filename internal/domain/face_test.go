package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultDetectOptions(t *testing.T) {
	opts := DefaultDetectOptions()

	assert.Equal(t, 20, opts.MinFaceSize)
	assert.False(t, opts.ReturnFaceData)
	assert.True(t, opts.ExtractEmbedding)
}

func TestFaceRecord_OptionalFieldsOmitted(t *testing.T) {
	raw, err := json.Marshal(FaceRecord{BBox: [4]int{1, 2, 3, 4}, Confidence: 0.9})
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))

	assert.Contains(t, fields, "bbox")
	assert.Contains(t, fields, "confidence")
	assert.NotContains(t, fields, "embedding")
	assert.NotContains(t, fields, "face_data")
}
