// Package process reshapes raw camera frames into model-ready input.
// It sits between capture and translation so models with different
// input contracts can be swapped without touching either side.
package process

import (
	"image"
	"log/slog"

	"gocv.io/x/gocv"

	"github.com/nmurali/signbridge/internal/config"
	"github.com/nmurali/signbridge/internal/logging"
)

// interpolations maps config names onto gocv resize flags.
var interpolations = map[string]gocv.InterpolationFlags{
	"nearest": gocv.InterpolationNearestNeighbor,
	"linear":  gocv.InterpolationLinear,
	"cubic":   gocv.InterpolationCubic,
	"area":    gocv.InterpolationArea,
	"lanczos": gocv.InterpolationLanczos4,
	"max":     gocv.InterpolationMax,
}

// normTypes maps config names onto gocv normalization types.
var normTypes = map[string]gocv.NormType{
	"norm_inf":      gocv.NormInf,
	"norm_l1":       gocv.NormL1,
	"norm_l2":       gocv.NormL2,
	"norm_l2sqr":    gocv.NormL2Sqr,
	"norm_hamming":  gocv.NormHamming,
	"norm_hamming2": gocv.NormHamming2,
	"norm_relative": gocv.NormRelative,
	"norm_minmax":   gocv.NormMinMax,
}

// Preprocessor applies the configured resize, normalization and color
// conversion steps to each frame. It holds no per-frame state.
type Preprocessor struct {
	cfg    *config.ProcessorConfig
	logger *slog.Logger
}

// New builds a preprocessor from processor settings. Unknown
// interpolation or normalization names are reported once here rather
// than on every frame; processing falls back to the defaults.
func New(cfg *config.ProcessorConfig, logger *slog.Logger) *Preprocessor {
	p := &Preprocessor{
		cfg:    cfg,
		logger: logging.WithComponent(logger, "preprocessor"),
	}
	if cfg.Interpolation != "" {
		if _, ok := interpolations[cfg.Interpolation]; !ok {
			p.logger.Warn("unknown interpolation, falling back to linear",
				slog.String("name", cfg.Interpolation))
		}
	}
	if cfg.Normalize != "" {
		if _, ok := normTypes[cfg.Normalize]; !ok {
			p.logger.Warn("unknown normalization, falling back to norm_minmax",
				slog.String("name", cfg.Normalize))
		}
	}
	return p
}

// Process returns a model-ready copy of src. The returned Mat is owned
// by the caller, who must Close it. The bool result is false when src
// holds no pixels, in which case no Mat is returned.
//
// Steps run in config order: resize when an interpolation is set,
// normalize (converting to 32-bit float) when a normalization is set,
// then a BGR to RGB swap when the model asks for RGB input.
func (p *Preprocessor) Process(src gocv.Mat) (gocv.Mat, bool) {
	if src.Empty() {
		return gocv.Mat{}, false
	}

	out := gocv.NewMat()
	if p.cfg.Interpolation != "" {
		size := image.Pt(p.cfg.FrameWidth, p.cfg.FrameHeight)
		gocv.Resize(src, &out, size, 0, 0, interpolationFlag(p.cfg.Interpolation))
	} else {
		src.CopyTo(&out)
	}

	if p.cfg.Normalize != "" {
		f32 := gocv.NewMat()
		out.ConvertTo(&f32, gocv.MatTypeCV32F)
		gocv.Normalize(f32, &out,
			float64(p.cfg.NormalizeAlpha), float64(p.cfg.NormalizeBeta),
			normType(p.cfg.Normalize))
		f32.Close()
	}

	if p.cfg.ModelInputFormat == "RGB" {
		rgb := gocv.NewMat()
		gocv.CvtColor(out, &rgb, gocv.ColorBGRToRGB)
		out.Close()
		out = rgb
	}

	return out, true
}

func interpolationFlag(name string) gocv.InterpolationFlags {
	if v, ok := interpolations[name]; ok {
		return v
	}
	return gocv.InterpolationLinear
}

func normType(name string) gocv.NormType {
	if v, ok := normTypes[name]; ok {
		return v
	}
	return gocv.NormMinMax
}
