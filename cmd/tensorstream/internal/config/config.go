// Package config loads pipeline descriptions from YAML files.
package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/haivivi/tensorstream/pkg/media"
)

// Config describes one pipeline: a raw media source, conversion
// parameters, optional aggregation and backend stages, and the sink.
type Config struct {
	Source          Source     `yaml:"source"`
	FramesPerTensor int        `yaml:"frames_per_tensor"`
	Aggregate       *Aggregate `yaml:"aggregate,omitempty"`
	Filter          *Filter    `yaml:"filter,omitempty"`
	Sink            Sink       `yaml:"sink"`
}

// Source locates the raw input and declares its media format.
type Source struct {
	Path  string `yaml:"path"`
	Media string `yaml:"media"` // video, audio or text

	// Video fields.
	Pixel     string `yaml:"pixel,omitempty"`
	Width     int    `yaml:"width,omitempty"`
	Height    int    `yaml:"height,omitempty"`
	Framerate string `yaml:"framerate,omitempty"` // "30/1"

	// Audio fields.
	Sample   string `yaml:"sample,omitempty"`
	Channels int    `yaml:"channels,omitempty"`
	Rate     int    `yaml:"rate,omitempty"`
	// Samples per pushed buffer; defaults to one tensor's worth.
	Samples int `yaml:"samples,omitempty"`
}

// Aggregate holds the sliding-window parameters.
type Aggregate struct {
	FramesIn    int `yaml:"frames_in"`
	FramesOut   int `yaml:"frames_out"`
	FramesFlush int `yaml:"frames_flush,omitempty"`
	FramesDim   int `yaml:"frames_dim"`
}

// Filter names a registered backend and its property string. Output is
// the tensor caps string for backends that are told their output shape.
type Filter struct {
	Backend    string `yaml:"backend"`
	Properties string `yaml:"properties,omitempty"`
	Output     string `yaml:"output,omitempty"`
}

// Sink controls delivery and the optional dump file.
type Sink struct {
	SignalRate int    `yaml:"signal_rate,omitempty"`
	Dump       string `yaml:"dump,omitempty"`
}

// Load reads and parses a pipeline config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if c.FramesPerTensor == 0 {
		c.FramesPerTensor = 1
	}
	return &c, nil
}

// Format builds the media format the source declares.
func (s Source) Format() (media.Format, error) {
	switch s.Media {
	case "video":
		pixel, err := media.ParsePixelFormat(s.Pixel)
		if err != nil {
			return nil, err
		}
		n, d, err := parseFraction(s.Framerate)
		if err != nil {
			return nil, fmt.Errorf("framerate: %w", err)
		}
		if s.Width < 1 || s.Height < 1 {
			return nil, fmt.Errorf("bad video size %dx%d", s.Width, s.Height)
		}
		return media.Video{Pixel: pixel, Width: s.Width, Height: s.Height, RateN: n, RateD: d}, nil
	case "audio":
		sample, err := media.ParseSampleFormat(s.Sample)
		if err != nil {
			return nil, err
		}
		if s.Channels < 1 || s.Rate < 1 {
			return nil, fmt.Errorf("bad audio layout: %d channels at %d Hz", s.Channels, s.Rate)
		}
		return media.Audio{Sample: sample, Channels: s.Channels, Rate: s.Rate}, nil
	case "text":
		return media.Text{}, nil
	}
	return nil, fmt.Errorf("unknown media type %q", s.Media)
}

func parseFraction(s string) (n, d int, err error) {
	if s == "" {
		return 0, 0, fmt.Errorf("missing fraction")
	}
	if _, err := fmt.Sscanf(s, "%d/%d", &n, &d); err != nil {
		return 0, 0, fmt.Errorf("bad fraction %q", s)
	}
	if d < 1 {
		return 0, 0, fmt.Errorf("bad fraction %q", s)
	}
	return n, d, nil
}
