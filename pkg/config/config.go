// Package config loads the optional run file that tunes a merge.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/dd0wney/jmri-panelmerge/pkg/faults"
	"github.com/dd0wney/jmri-panelmerge/pkg/logging"
	"github.com/dd0wney/jmri-panelmerge/pkg/panel"
	"github.com/dd0wney/jmri-panelmerge/pkg/placement"
)

// FileNames are the run file names Load looks for, in order.
var FileNames = []string{"jmri-merge.yaml", "jmri-merge.yml", "jmri-merge.toml"}

var validate = validator.New()

// Config is the run configuration.
type Config struct {
	Panel           string  `yaml:"panel" toml:"panel" validate:"required"`
	VariablesFile   string  `yaml:"variables_file" toml:"variables_file" validate:"required"`
	LogixSystemName string  `yaml:"logix_system_name" toml:"logix_system_name" validate:"required"`
	Table           Table   `yaml:"table" toml:"table"`
	Signals         Signals `yaml:"signals" toml:"signals"`
	IDs             IDs     `yaml:"ids" toml:"ids"`
	Logging         Logging `yaml:"logging" toml:"logging"`
	MetricsFile     string  `yaml:"metrics_file" toml:"metrics_file"`
	JournalFile     string  `yaml:"journal_file" toml:"journal_file"`
}

// Table positions the location table rows.
type Table struct {
	BlockOriginX  int `yaml:"block_origin_x" toml:"block_origin_x"`
	TrainOriginX  int `yaml:"train_origin_x" toml:"train_origin_x"`
	OriginY       int `yaml:"origin_y" toml:"origin_y"`
	RowStep       int `yaml:"row_step" toml:"row_step" validate:"min=1"`
	ColStep       int `yaml:"col_step" toml:"col_step" validate:"min=1"`
	SensorYOffset int `yaml:"sensor_y_offset" toml:"sensor_y_offset"`
	BlockLabelDX  int `yaml:"block_label_dx" toml:"block_label_dx"`
	TrainLabelDX  int `yaml:"train_label_dx" toml:"train_label_dx"`
	LocoDX        int `yaml:"loco_dx" toml:"loco_dx"`
}

// Signals sizes the signal-head icons and labels.
type Signals struct {
	Back      float64 `yaml:"back" toml:"back" validate:"min=0"`
	Away      float64 `yaml:"away" toml:"away" validate:"min=0"`
	IconHalf  float64 `yaml:"icon_half" toml:"icon_half" validate:"min=0"`
	CharWidth float64 `yaml:"char_width" toml:"char_width" validate:"min=0"`
	LabelGap  float64 `yaml:"label_gap" toml:"label_gap" validate:"min=0"`
}

// IDs controls system name allocation.
type IDs struct {
	Floor int `yaml:"floor" toml:"floor" validate:"min=0"`
}

// Logging selects the log sink.
type Logging struct {
	Level  string `yaml:"level" toml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" toml:"format" validate:"oneof=text json"`
}

// Default returns the built-in configuration.
func Default() *Config {
	t := panel.DefaultTableLayout()
	g := placement.DefaultGeometry()
	return &Config{
		Panel:           "3H layout",
		VariablesFile:   "jmri-out.xml",
		LogixSystemName: "IX:GEN:TRAINLOC:",
		Table: Table{
			BlockOriginX:  t.BlockOriginX,
			TrainOriginX:  t.TrainOriginX,
			OriginY:       t.OriginY,
			RowStep:       t.RowStep,
			ColStep:       t.ColStep,
			SensorYOffset: t.SensorYOffset,
			BlockLabelDX:  t.BlockLabelDX,
			TrainLabelDX:  t.TrainLabelDX,
			LocoDX:        t.LocoDX,
		},
		Signals: Signals{
			Back:      g.Back,
			Away:      g.Away,
			IconHalf:  g.IconHalf,
			CharWidth: g.CharWidth,
			LabelGap:  g.LabelGap,
		},
		IDs:     IDs{Floor: 2},
		Logging: Logging{Level: "info", Format: "text"},
	}
}

// Find returns the first run file present in dir, or "" when there is none.
func Find(dir string) (string, error) {
	for _, name := range FileNames {
		p := filepath.Join(dir, name)
		_, err := os.Stat(p)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("stat %s: %w", p, err)
		}
	}
	return "", nil
}

// Load reads the run file in dir over the defaults. Without a run file it returns the
// defaults. The path of the file used is returned alongside.
func Load(dir string, log logging.Logger) (*Config, string, error) {
	path, err := Find(dir)
	if err != nil {
		return nil, "", err
	}
	if path == "" {
		return Default(), "", nil
	}
	cfg, err := LoadFile(path, log)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// LoadFile decodes one run file over the defaults and validates the result. Unknown YAML
// keys are an error; unknown TOML keys are logged.
func LoadFile(path string, log logging.Logger) (*Config, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		meta, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, configError(path, err)
		}
		for _, k := range meta.Undecoded() {
			log.Warn("unknown config key", logging.Path(path), logging.Key(k.String()))
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, configError(path, err)
		}
	default:
		return nil, faults.New("load-config").Key(path).Context("unsupported config format").Cause(faults.ErrUsage).Err()
	}

	if err := cfg.Validate(); err != nil {
		return nil, configError(path, err)
	}
	return cfg, nil
}

func configError(path string, err error) error {
	return faults.New("load-config").Key(path).Context(err.Error()).Cause(faults.ErrUsage).Err()
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	return nil
}

func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := e.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		param := e.Param()

		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "oneof":
			return fmt.Errorf("%s: must be one of [%s], got %q", field, param, e.Value())
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
		}
	}

	return err
}

// TableLayout returns the panel table positions.
func (c *Config) TableLayout() panel.TableLayout {
	t := c.Table
	return panel.TableLayout{
		BlockOriginX:  t.BlockOriginX,
		TrainOriginX:  t.TrainOriginX,
		OriginY:       t.OriginY,
		RowStep:       t.RowStep,
		ColStep:       t.ColStep,
		SensorYOffset: t.SensorYOffset,
		BlockLabelDX:  t.BlockLabelDX,
		TrainLabelDX:  t.TrainLabelDX,
		LocoDX:        t.LocoDX,
	}
}

// Geometry returns the signal placement geometry.
func (c *Config) Geometry() placement.Geometry {
	s := c.Signals
	return placement.Geometry{
		Back:      s.Back,
		Away:      s.Away,
		IconHalf:  s.IconHalf,
		CharWidth: s.CharWidth,
		LabelGap:  s.LabelGap,
	}
}

// Logger builds the logger the run file asks for.
func (c *Config) Logger(w io.Writer) logging.Logger {
	return logging.New(logging.Format(c.Logging.Format), w, logging.ParseLevel(c.Logging.Level))
}
