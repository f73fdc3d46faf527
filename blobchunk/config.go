package blobchunk

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/pelletier/go-toml/v2"
	"github.com/soypat/blobsdf/blobeval"
)

// Config configures chunk sampling.
type Config struct {
	// Cells is the amount of voxels along each axis of a chunk.
	Cells int `toml:"cells"`
	// Resolution is the voxel edge length.
	Resolution float32 `toml:"resolution"`
	// Workers is the amount of chunks sampled concurrently. Zero means GOMAXPROCS.
	Workers int `toml:"workers"`
	// Prune enables octree culling of empty cubes with no surface. Solid cubes
	// are always sampled exactly. Pruning assumes the field is a distance bound,
	// which sine wave and gyroid fields are not in general.
	Prune bool `toml:"prune"`
	// MinPruneLevel is the smallest octree level considered for pruning. A cube
	// of level L spans 1<<L voxels along each axis.
	MinPruneLevel int                       `toml:"min_prune_level"`
	Estimators    blobeval.EstimatorConfig `toml:"estimators"`
}

// DefaultConfig returns the chunk configuration of the terrain pipeline.
func DefaultConfig() Config {
	return Config{
		Cells:         32,
		Resolution:    0.5,
		Prune:         true,
		MinPruneLevel: 1,
		Estimators:    blobeval.DefaultEstimatorConfig(),
	}
}

// Validate returns a non-nil error if any field is out of range.
func (cfg Config) Validate() error {
	err := Chunk{Resolution: cfg.Resolution, Cells: cfg.Cells}.Validate()
	if err != nil {
		return err
	} else if cfg.Workers < 0 {
		return errors.New("negative worker count")
	} else if cfg.MinPruneLevel < 1 {
		return fmt.Errorf("min prune level must be at least 1, got %d", cfg.MinPruneLevel)
	}
	return cfg.Estimators.Validate()
}

func (cfg Config) workers() int {
	if cfg.Workers == 0 {
		return runtime.GOMAXPROCS(0)
	}
	return cfg.Workers
}

// DecodeConfig reads a TOML configuration from r. Fields absent from the
// document keep the values of [DefaultConfig].
func DecodeConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := toml.NewDecoder(r).DisallowUnknownFields()
	err := dec.Decode(&cfg)
	if err != nil {
		return cfg, fmt.Errorf("decoding chunk config: %w", err)
	}
	return cfg, cfg.Validate()
}

// LoadConfig reads a TOML configuration file.
func LoadConfig(filename string) (Config, error) {
	fp, err := os.Open(filename)
	if err != nil {
		return Config{}, err
	}
	defer fp.Close()
	return DecodeConfig(fp)
}

// EncodeConfig writes cfg to w as TOML.
func EncodeConfig(w io.Writer, cfg Config) error {
	return toml.NewEncoder(w).Encode(cfg)
}
