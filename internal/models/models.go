package models

// Config represents the service configuration
type Config struct {
	// Server config
	Port int    `yaml:"port"`
	Host string `yaml:"host"`

	// OCR config
	OCR OCRConfig `yaml:"ocr"`

	// Upload handling
	Uploads UploadConfig `yaml:"uploads"`

	// Layout heuristics tuning
	Layout LayoutConfig `yaml:"layout"`

	// Auth config
	Auth AuthConfig `yaml:"auth"`
}

// OCRConfig represents OCR-specific configuration
type OCRConfig struct {
	// Explicit tesseract binary path. Empty means discover via PATH and
	// the known install locations.
	BinaryPath string `yaml:"binary_path"`

	// Default language selector. "auto" expands to the multi-language
	// profile eng+rus+uzb+uzb_cyrl.
	Language string `yaml:"language"`

	// Directory for preprocessed debug images. Empty disables the dump.
	DebugDir string `yaml:"debug_dir"`

	// FastMode skips the mid-tier upscale, autocontrast and denoise
	// stages during preprocessing.
	FastMode bool `yaml:"fast_mode"`

	// AutoRotate enables the OSD orientation probe before recognition.
	AutoRotate bool `yaml:"auto_rotate"`
}

// UploadConfig controls scratch-file handling
type UploadConfig struct {
	Dir       string `yaml:"dir"`         // scratch directory, default "uploads"
	MaxSizeMB int64  `yaml:"max_size_mb"` // per-request upload cap, default 20
}

// LayoutConfig exposes the heuristic thresholds. The values are empirical;
// they are configuration rather than constants on purpose.
type LayoutConfig struct {
	HeadingRatio      float64 `yaml:"heading_ratio"`       // default 1.5
	MajorHeadingRatio float64 `yaml:"major_heading_ratio"` // default 2.0
	MaxHeadingLen     int     `yaml:"max_heading_len"`     // default 100
	IndentStepPx      int     `yaml:"indent_step_px"`      // default 50
	MaxIndent         int     `yaml:"max_indent"`          // default 6
}

// AuthConfig enables the optional bearer-token middleware when a secret is
// configured. With no secret every endpoint is open.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// Defaults fills zero values with the service defaults.
func (c *Config) Defaults() {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 8000
	}
	if c.OCR.Language == "" {
		c.OCR.Language = "auto"
	}
	if c.Uploads.Dir == "" {
		c.Uploads.Dir = "uploads"
	}
	if c.Uploads.MaxSizeMB == 0 {
		c.Uploads.MaxSizeMB = 20
	}
	if c.Layout.HeadingRatio == 0 {
		c.Layout.HeadingRatio = 1.5
	}
	if c.Layout.MajorHeadingRatio == 0 {
		c.Layout.MajorHeadingRatio = 2.0
	}
	if c.Layout.MaxHeadingLen == 0 {
		c.Layout.MaxHeadingLen = 100
	}
	if c.Layout.IndentStepPx == 0 {
		c.Layout.IndentStepPx = 50
	}
	if c.Layout.MaxIndent == 0 {
		c.Layout.MaxIndent = 6
	}
}
