// Package manifest loads generation requests from a JSON manifest and
// builds the vendor payloads for them.
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/voxora/maestro/internal/domain"
)

// Entry is one generation request as authored in the manifest file.
type Entry struct {
	VideoName   string   `json:"video_name"`
	VideoPrompt string   `json:"video_prompt"`
	Image       string   `json:"image"`
	ImageTail   string   `json:"image_tail,omitempty"`
	ImageList   []string `json:"image_list,omitempty"`
	AspectRatio string   `json:"aspect_ratio,omitempty"`
	Duration    int      `json:"duration,omitempty"`
}

// payload is the image2video request body built from an entry.
type payload struct {
	ModelName      string   `json:"model_name"`
	Mode           string   `json:"mode"`
	Duration       int      `json:"duration"`
	Image          string   `json:"image"`
	ImageTail      string   `json:"image_tail"`
	ImageList      []string `json:"image_list"`
	AspectRatio    string   `json:"aspect_ratio"`
	Prompt         string   `json:"prompt"`
	NegativePrompt string   `json:"negative_prompt"`
	CfgScale       float64  `json:"cfg_scale"`
}

const defaultNegativePrompt = "Over-saturated tones, overexposed, static, blurred details, subtitles, " +
	"style, artwork, painting, frame, motionless, overall grayish, worst quality, low quality, " +
	"JPEG compression artifacts, ugly, incomplete, deformed, disfigured, fused fingers, " +
	"motionless frames, chaotic backgrounds."

// Load reads a manifest file (a JSON array of entries) and returns one
// JobRequest per entry.
func Load(path, model string) ([]domain.JobRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: read %s: %w", path, err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("manifest: parse %s: %w", path, err)
	}

	reqs := make([]domain.JobRequest, 0, len(entries))
	for i, e := range entries {
		if e.VideoPrompt == "" || e.VideoName == "" {
			return nil, fmt.Errorf("manifest: entry %d: video_prompt and video_name are required", i)
		}
		body, err := buildPayload(e, model)
		if err != nil {
			return nil, fmt.Errorf("manifest: entry %d (%s): %w", i, e.VideoName, err)
		}
		reqs = append(reqs, domain.JobRequest{
			Label:     e.VideoName,
			Payload:   body,
			CreatedAt: time.Now().UTC(),
		})
	}
	return reqs, nil
}

func buildPayload(e Entry, model string) ([]byte, error) {
	if e.AspectRatio == "" {
		e.AspectRatio = "16:9"
	}
	if e.Duration == 0 {
		e.Duration = 5
	}
	return json.Marshal(payload{
		ModelName:      model,
		Mode:           "std",
		Duration:       e.Duration,
		Image:          e.Image,
		ImageTail:      e.ImageTail,
		ImageList:      e.ImageList,
		AspectRatio:    e.AspectRatio,
		Prompt:         e.VideoPrompt,
		NegativePrompt: defaultNegativePrompt,
		CfgScale:       0.5,
	})
}

// Fingerprint identifies a request across runs for dedupe purposes.
func Fingerprint(req domain.JobRequest) string {
	h := sha256.New()
	h.Write([]byte(req.Label))
	h.Write([]byte{0})
	h.Write(req.Payload)
	return hex.EncodeToString(h.Sum(nil))
}
