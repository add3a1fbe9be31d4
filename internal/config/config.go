// Package config loads model descriptions from YAML and builds the module
// trees they describe.
//
// A model file looks like:
//
//	model:
//	  kind: sequential
//	  layers:
//	    - type: dense
//	      features: 64
//	    - type: relu
//	    - type: dense
//	      features: 10
//	input:
//	  features: 32
//	  batch: 8
//	seed: 42
//	log:
//	  level: info
//	parallel:
//	  enabled: true
//	  num_workers: 4
package config

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/born-ml/linen/internal/core"
	"github.com/born-ml/linen/internal/linen"
	"github.com/born-ml/linen/internal/nn"
	"github.com/born-ml/linen/internal/parallel"
	"github.com/born-ml/linen/internal/rng"
	"github.com/born-ml/linen/internal/tensor"
)

// Model kinds.
const (
	KindMLP         = "mlp"
	KindAutoEncoder = "autoencoder"
	KindSequential  = "sequential"
)

// Layer types accepted in a sequential model.
const (
	LayerDense     = "dense"
	LayerReLU      = "relu"
	LayerSigmoid   = "sigmoid"
	LayerTanh      = "tanh"
	LayerBatchNorm = "batchnorm"
	LayerDropout   = "dropout"
)

var (
	modelKinds = []string{KindMLP, KindAutoEncoder, KindSequential}
	layerTypes = []string{LayerDense, LayerReLU, LayerSigmoid, LayerTanh, LayerBatchNorm, LayerDropout}
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
)

// Config is the top-level model file.
type Config struct {
	Model    Model           `yaml:"model"`
	Input    Input           `yaml:"input"`
	Seed     uint64          `yaml:"seed"`
	Log      Log             `yaml:"log"`
	Parallel parallel.Config `yaml:"parallel"`
}

// Model describes the module tree.
type Model struct {
	// Kind is one of mlp, autoencoder or sequential.
	Kind string `yaml:"kind"`

	// Widths are the Dense widths of an mlp.
	Widths []int `yaml:"widths,omitempty"`

	// Activation names the mlp activation: relu (default), sigmoid or tanh.
	Activation string `yaml:"activation,omitempty"`

	// Encoder and Decoder are the widths of the two halves of an autoencoder.
	Encoder []int `yaml:"encoder,omitempty"`
	Decoder []int `yaml:"decoder,omitempty"`

	// Layers are the layers of a sequential model, in order.
	Layers []Layer `yaml:"layers,omitempty"`
}

// Layer describes one layer of a sequential model.
type Layer struct {
	Type          string  `yaml:"type"`
	Features      int     `yaml:"features,omitempty"`
	NoBias        bool    `yaml:"no_bias,omitempty"`
	Rate          float32 `yaml:"rate,omitempty"`
	Momentum      float32 `yaml:"momentum,omitempty"`
	Deterministic bool    `yaml:"deterministic,omitempty"`
}

// Input is the shape of the sample batch used to initialize the model.
type Input struct {
	Features int `yaml:"features"`
	Batch    int `yaml:"batch,omitempty"`
}

// Log configures diagnostics.
type Log struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// LoadConfig reads and validates a model file.
func LoadConfig(path string) (*Config, error) {
	//nolint:gosec // G304: model files are user supplied
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return ParseConfig(data, path)
}

// ParseConfig parses model file content from bytes.
// The path argument is used only for error messages.
func ParseConfig(data []byte, path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.setDefaults()
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) setDefaults() {
	c.Model.Kind = strings.ToLower(c.Model.Kind)
	if c.Model.Activation == "" {
		c.Model.Activation = LayerReLU
	}
	for i := range c.Model.Layers {
		c.Model.Layers[i].Type = strings.ToLower(c.Model.Layers[i].Type)
	}
	if c.Input.Batch == 0 {
		c.Input.Batch = 1
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Parallel.NumWorkers == 0 && c.Parallel.MinChunkSize == 0 && !c.Parallel.Enabled {
		c.Parallel = parallel.Sequential()
	}
	if c.Parallel.MinChunkSize == 0 {
		c.Parallel.MinChunkSize = parallel.DefaultConfig().MinChunkSize
	}
}

func (c *Config) validate(path string) error {
	m := &c.Model
	if !slices.Contains(modelKinds, m.Kind) {
		return fmt.Errorf("%s: model.kind %q must be one of %s", path, m.Kind, strings.Join(modelKinds, ", "))
	}
	switch m.Kind {
	case KindMLP:
		if err := checkWidths(path, "model.widths", m.Widths); err != nil {
			return err
		}
		if _, err := activation(m.Activation); err != nil {
			return fmt.Errorf("%s: model.activation: %w", path, err)
		}
	case KindAutoEncoder:
		if err := checkWidths(path, "model.encoder", m.Encoder); err != nil {
			return err
		}
		if err := checkWidths(path, "model.decoder", m.Decoder); err != nil {
			return err
		}
	case KindSequential:
		if len(m.Layers) == 0 {
			return fmt.Errorf("%s: model.layers: no layers defined", path)
		}
		for i, l := range m.Layers {
			if err := l.validate(); err != nil {
				return fmt.Errorf("%s: model.layers[%d]: %w", path, i, err)
			}
		}
	}

	if c.Input.Features <= 0 {
		return fmt.Errorf("%s: input.features must be positive, got %d", path, c.Input.Features)
	}
	if c.Input.Batch < 0 {
		return fmt.Errorf("%s: input.batch must not be negative, got %d", path, c.Input.Batch)
	}
	if !slices.Contains(logLevels, strings.ToLower(c.Log.Level)) {
		return fmt.Errorf("%s: log.level %q must be one of %s", path, c.Log.Level, strings.Join(logLevels, ", "))
	}
	if c.Log.Format != "" && !slices.Contains(logFormats, strings.ToLower(c.Log.Format)) {
		return fmt.Errorf("%s: log.format %q must be one of %s", path, c.Log.Format, strings.Join(logFormats, ", "))
	}
	if c.Parallel.NumWorkers < 0 || c.Parallel.MinChunkSize < 0 {
		return fmt.Errorf("%s: parallel: num_workers and min_chunk_size must not be negative", path)
	}
	return nil
}

func checkWidths(path, field string, widths []int) error {
	if len(widths) == 0 {
		return fmt.Errorf("%s: %s: no widths defined", path, field)
	}
	for i, w := range widths {
		if w <= 0 {
			return fmt.Errorf("%s: %s[%d] must be positive, got %d", path, field, i, w)
		}
	}
	return nil
}

func (l Layer) validate() error {
	if !slices.Contains(layerTypes, l.Type) {
		return fmt.Errorf("type %q must be one of %s", l.Type, strings.Join(layerTypes, ", "))
	}
	switch l.Type {
	case LayerDense:
		if l.Features <= 0 {
			return fmt.Errorf("dense features must be positive, got %d", l.Features)
		}
	case LayerDropout:
		if l.Rate < 0 || l.Rate >= 1 {
			return fmt.Errorf("dropout rate must be in [0, 1), got %v", l.Rate)
		}
	case LayerBatchNorm:
		if l.Momentum < 0 || l.Momentum >= 1 {
			return fmt.Errorf("batchnorm momentum must be in [0, 1), got %v", l.Momentum)
		}
	}
	return nil
}

func activation(name string) (func(*tensor.RawTensor) (*tensor.RawTensor, error), error) {
	switch name {
	case LayerReLU:
		return tensor.ReLU, nil
	case LayerSigmoid:
		return tensor.Sigmoid, nil
	case LayerTanh:
		return tensor.Tanh, nil
	}
	return nil, fmt.Errorf("unknown activation %q", name)
}

// Build returns the detached module described by the model section.
func (c *Config) Build() (nn.Layer, error) {
	m := c.Model
	switch m.Kind {
	case KindMLP:
		act, err := activation(m.Activation)
		if err != nil {
			return nil, err
		}
		return &nn.MLP{Widths: slices.Clone(m.Widths), Activation: act}, nil
	case KindAutoEncoder:
		return &nn.AutoEncoder{
			EncoderWidths: slices.Clone(m.Encoder),
			DecoderWidths: slices.Clone(m.Decoder),
		}, nil
	case KindSequential:
		layers := make([]nn.Layer, 0, len(m.Layers))
		for _, l := range m.Layers {
			layers = append(layers, l.build())
		}
		return nn.NewSequential(layers...)
	}
	return nil, fmt.Errorf("unknown model kind %q", m.Kind)
}

func (l Layer) build() nn.Layer {
	switch l.Type {
	case LayerDense:
		return &nn.Dense{Features: l.Features, NoBias: l.NoBias}
	case LayerReLU:
		return &nn.ReLU{}
	case LayerSigmoid:
		return &nn.Sigmoid{}
	case LayerTanh:
		return &nn.Tanh{}
	case LayerBatchNorm:
		return &nn.BatchNorm{Momentum: l.Momentum}
	default:
		return &nn.Dropout{Rate: l.Rate, Deterministic: l.Deterministic}
	}
}

// RNGs returns the rng streams derived from Seed: one for parameters and one
// for dropout.
func (c *Config) RNGs() map[core.Kind]rng.Key {
	root := rng.New(c.Seed)
	return map[core.Kind]rng.Key{
		core.Params:   rng.FoldInString(root, string(core.Params)),
		nn.DropoutRNG: rng.FoldInString(root, string(nn.DropoutRNG)),
	}
}

// SampleInput returns a batch of ones with the configured input shape.
func (c *Config) SampleInput() (*tensor.RawTensor, error) {
	return tensor.Ones(tensor.Shape{c.Input.Batch, c.Input.Features})
}

// Initialize builds the model and creates its variables by running one
// sample batch through it. The returned module is bound and frozen.
func (c *Config) Initialize() (nn.Layer, core.Variables, error) {
	model, err := c.Build()
	if err != nil {
		return nil, nil, err
	}
	x, err := c.SampleInput()
	if err != nil {
		return nil, nil, err
	}
	bound, err := linen.Initialized(model, c.RNGs(), func(m nn.Layer) error {
		_, err := m.Call(x)
		return err
	})
	if err != nil {
		return nil, nil, fmt.Errorf("initializing %s: %w", c.Model.Kind, err)
	}
	return bound, linen.Snapshot(bound), nil
}
