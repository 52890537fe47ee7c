package manifest_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxora/maestro/internal/manifest"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeManifest(t, `[
		{"video_name": "clip-001", "video_prompt": "waves rolling in", "image": "https://img.example.com/1.png"},
		{"video_name": "clip-002", "video_prompt": "slow dolly zoom", "image": "https://img.example.com/2.png", "duration": 10, "aspect_ratio": "9:16"}
	]`)

	reqs, err := manifest.Load(path, "kling-v2-1")
	require.NoError(t, err)
	require.Len(t, reqs, 2)

	assert.Equal(t, "clip-001", reqs[0].Label)
	assert.False(t, reqs[0].CreatedAt.IsZero())

	var body map[string]any
	require.NoError(t, json.Unmarshal(reqs[0].Payload, &body))
	assert.Equal(t, "kling-v2-1", body["model_name"])
	assert.Equal(t, "waves rolling in", body["prompt"])
	assert.Equal(t, "16:9", body["aspect_ratio"]) // default
	assert.Equal(t, float64(5), body["duration"]) // default

	require.NoError(t, json.Unmarshal(reqs[1].Payload, &body))
	assert.Equal(t, "9:16", body["aspect_ratio"])
	assert.Equal(t, float64(10), body["duration"])
}

func TestLoad_MissingRequiredFields(t *testing.T) {
	path := writeManifest(t, `[{"video_name": "clip-001"}]`)

	_, err := manifest.Load(path, "kling-v2-1")
	assert.Error(t, err)
}

func TestLoad_BadJSON(t *testing.T) {
	path := writeManifest(t, `{"not": "an array"`)

	_, err := manifest.Load(path, "kling-v2-1")
	assert.Error(t, err)
}

func TestFingerprint_StableAndDistinct(t *testing.T) {
	path := writeManifest(t, `[
		{"video_name": "clip-001", "video_prompt": "waves", "image": "a.png"},
		{"video_name": "clip-002", "video_prompt": "waves", "image": "a.png"}
	]`)

	reqs, err := manifest.Load(path, "kling-v2-1")
	require.NoError(t, err)

	assert.Equal(t, manifest.Fingerprint(reqs[0]), manifest.Fingerprint(reqs[0]))
	assert.NotEqual(t, manifest.Fingerprint(reqs[0]), manifest.Fingerprint(reqs[1]))
}
