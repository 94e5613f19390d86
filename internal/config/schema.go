package config

import "fmt"

// Size is a width/height pair serialized as a two-element YAML sequence,
// e.g. "target_size: [640, 640]".
type Size [2]int

// Width returns the first element.
func (s Size) Width() int { return s[0] }

// Height returns the second element.
func (s Size) Height() int { return s[1] }

// CameraConfig selects the capture device and bounds the frame rate.
// An FPSLimit of 0 disables throttling entirely.
type CameraConfig struct {
	CameraID   int  `yaml:"camera_id"`
	TargetSize Size `yaml:"target_size"`
	FPSLimit   int  `yaml:"fps_limit"`
}

// DefaultCamera returns a CameraConfig with the schema defaults.
func DefaultCamera() *CameraConfig {
	return &CameraConfig{
		CameraID:   0,
		TargetSize: Size{640, 640},
		FPSLimit:   30,
	}
}

func (c *CameraConfig) Validate() error {
	if c.CameraID < 0 {
		return fmt.Errorf("camera_id must not be negative, got %d", c.CameraID)
	}
	if c.TargetSize.Width() <= 0 || c.TargetSize.Height() <= 0 {
		return fmt.Errorf("target_size must have positive dimensions, got %v", c.TargetSize)
	}
	if c.FPSLimit < 0 {
		return fmt.Errorf("fps_limit must not be negative, got %d", c.FPSLimit)
	}
	return nil
}

// ProcessorConfig drives the frame preprocessor. The interpolation and
// normalization names are looked up at use and fall back to the
// defaults when unknown, so they are deliberately not validated here.
type ProcessorConfig struct {
	Interpolation    string `yaml:"interpolation"`
	NormalizeAlpha   int    `yaml:"normalize_alpha"`
	NormalizeBeta    int    `yaml:"normalize_beta"`
	Normalize        string `yaml:"normalize"`
	ModelInputFormat string `yaml:"model_input_format"`
	FrameWidth       int    `yaml:"frame_width"`
	FrameHeight      int    `yaml:"frame_height"`
}

// DefaultProcessor returns a ProcessorConfig with the schema defaults.
func DefaultProcessor() *ProcessorConfig {
	return &ProcessorConfig{
		Interpolation:    "linear",
		NormalizeAlpha:   0,
		NormalizeBeta:    255,
		Normalize:        "norm_minmax",
		ModelInputFormat: "RGB",
		FrameWidth:       640,
		FrameHeight:      640,
	}
}

func (c *ProcessorConfig) Validate() error {
	if c.FrameWidth <= 0 || c.FrameHeight <= 0 {
		return fmt.Errorf("frame dimensions must be positive, got %dx%d", c.FrameWidth, c.FrameHeight)
	}
	return nil
}

// AppConfig holds the dashboard's own settings. It is nested on
// purpose; the round-trip behavior of nested schemas through Save and
// LoadFrom is part of the registry contract.
type AppConfig struct {
	ListenAddr  string            `yaml:"listen_addr"`
	Motion      MotionConfig      `yaml:"motion"`
	Translation TranslationConfig `yaml:"translation"`
	History     HistoryConfig     `yaml:"history"`
	Snapshot    SnapshotConfig    `yaml:"snapshot"`
}

// MotionConfig gates translation on scene activity.
type MotionConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Threshold float64 `yaml:"threshold"`
}

// TranslationConfig selects the recognition model and shapes how raw
// per-frame predictions are smoothed into stable glosses. An empty
// Model runs the built-in mock translator.
type TranslationConfig struct {
	Model        string  `yaml:"model"`
	SmoothWindow int     `yaml:"smooth_window"`
	MinAgreement float64 `yaml:"min_agreement"`
	MinScore     float64 `yaml:"min_score"`
}

// HistoryConfig bounds the stored translation history.
type HistoryConfig struct {
	Limit int `yaml:"limit"`
}

// SnapshotConfig controls where captured stills are written. An empty
// Dir falls back to the registry's output_dir path.
type SnapshotConfig struct {
	Dir string `yaml:"dir"`
}

// DefaultApp returns an AppConfig with the schema defaults.
func DefaultApp() *AppConfig {
	return &AppConfig{
		ListenAddr: ":8080",
		Motion:     MotionConfig{Enabled: true, Threshold: 2.0},
		Translation: TranslationConfig{
			Model:        "",
			SmoothWindow: 5,
			MinAgreement: 0.6,
			MinScore:     0.5,
		},
		History:  HistoryConfig{Limit: 500},
		Snapshot: SnapshotConfig{},
	}
}

func (c *AppConfig) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr must not be empty")
	}
	if c.Motion.Threshold < 0 || c.Motion.Threshold > 100 {
		return fmt.Errorf("motion threshold must be between 0 and 100, got %v", c.Motion.Threshold)
	}
	if c.Translation.SmoothWindow < 1 {
		return fmt.Errorf("smooth_window must be at least 1, got %d", c.Translation.SmoothWindow)
	}
	if c.Translation.MinAgreement <= 0 || c.Translation.MinAgreement > 1 {
		return fmt.Errorf("min_agreement must be in (0, 1], got %v", c.Translation.MinAgreement)
	}
	if c.History.Limit < 0 {
		return fmt.Errorf("history limit must not be negative, got %d", c.History.Limit)
	}
	return nil
}

// RegisterDefaults registers the built-in schemas on r. Call it once
// right after NewRegistry; later registrations can still override
// individual schemas.
func RegisterDefaults(r *Registry) {
	r.RegisterSchema("camera", func() Config { return DefaultCamera() })
	r.RegisterSchema("processor", func() Config { return DefaultProcessor() })
	r.RegisterSchema("app", func() Config { return DefaultApp() })
}
