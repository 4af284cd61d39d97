package shadow

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
)

// Info is what the shadow surface needs to know before decoding.
type Info struct {
	Width     int
	Height    int
	Duration  float64
	FrameRate float64
}

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
}

type ffprobeStream struct {
	CodecType    string `json:"codec_type"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Duration     string `json:"duration"`
	AvgFrameRate string `json:"avg_frame_rate"`
}

// Probe runs ffprobe against input, a local path or a stream URL.
func Probe(ctx context.Context, ffprobePath, input string) (Info, error) {
	// #nosec G204 -- ffprobe path comes from configuration
	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format", "-show_streams",
		"-select_streams", "v:0",
		input,
	)
	out, err := cmd.Output()
	if err != nil {
		return Info{}, fmt.Errorf("ffprobe: %w", err)
	}
	return ParseProbe(out)
}

// ParseProbe converts ffprobe JSON output into Info.
func ParseProbe(data []byte) (Info, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return Info{}, fmt.Errorf("parse ffprobe JSON: %w", err)
	}

	for _, s := range raw.Streams {
		if s.CodecType != "video" || s.Width <= 0 || s.Height <= 0 {
			continue
		}
		info := Info{
			Width:     s.Width,
			Height:    s.Height,
			Duration:  parseFloat(raw.Format.Duration),
			FrameRate: parseRate(s.AvgFrameRate),
		}
		if info.Duration == 0 {
			info.Duration = parseFloat(s.Duration)
		}
		return info, nil
	}
	return Info{}, fmt.Errorf("no video stream found")
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// parseRate parses "30000/1001" or "25".
func parseRate(s string) float64 {
	for i := 0; i < len(s); i++ {
		if s[i] == '/' {
			num := parseFloat(s[:i])
			den := parseFloat(s[i+1:])
			if den == 0 {
				return 0
			}
			return num / den
		}
	}
	return parseFloat(s)
}

// scaledSize fits w x h under maxHeight keeping the aspect ratio. Both
// sides are rounded down to even numbers for the scaler.
func scaledSize(w, h, maxHeight int) (int, int) {
	if maxHeight <= 0 || h <= maxHeight {
		return w &^ 1, h &^ 1
	}
	sw := w * maxHeight / h
	return sw &^ 1, maxHeight &^ 1
}
