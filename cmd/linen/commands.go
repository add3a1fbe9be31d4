package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/linen/internal/config"
	"github.com/born-ml/linen/internal/linen"
	"github.com/born-ml/linen/internal/nn"
	"github.com/born-ml/linen/internal/serialization"
	"github.com/born-ml/linen/internal/tensor"
)

// logFlags are the logging options shared by commands that load a model.
type logFlags struct {
	level  string
	format string
}

func (l *logFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&l.level, "log-level", "", "Logging level: debug, info, warn or error. Overrides the model file.")
	fs.StringVar(&l.format, "log-format", "", "Log format: text or json. Defaults to text on a terminal.")
}

// setup loads the model file and configures logging and parallelism from it.
func (l *logFlags) setup(path string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, nil, &ExitError{Code: 2, Message: err.Error()}
	}
	level, format := cfg.Log.Level, cfg.Log.Format
	if l.level != "" {
		level = l.level
	}
	if l.format != "" {
		format = l.format
	}
	logger := newLogger(level, format, logOutput)
	linen.SetLogger(logger)
	tensor.SetParallel(cfg.Parallel)
	return cfg, logger, nil
}

func runInit(outW io.Writer, args []string) error {
	fs := newFlagSet(outW, "init", "")
	var (
		lf      logFlags
		cfgPath = fs.String("config", "", "Path to the YAML model file (required).")
		out     = fs.String("out", "", "Write the variables to this .born file.")
		dbPath  = fs.String("db", "", "Store the variables in this SQLite database.")
		name    = fs.String("name", "", "Checkpoint name in the database. Defaults to the model file name.")
	)
	lf.register(fs)
	if help, err := parse(fs, args); help || err != nil {
		return err
	}
	if *cfgPath == "" {
		fs.Usage()
		return &ExitError{Code: 2, Message: "init: -config is required"}
	}
	if *out == "" && *dbPath == "" {
		return &ExitError{Code: 2, Message: "init: one of -out or -db is required"}
	}

	cfg, logger, err := lf.setup(*cfgPath)
	if err != nil {
		return err
	}
	start := time.Now()
	model, vars, err := cfg.Initialize()
	if err != nil {
		return err
	}
	modelType := linen.TypeTag(model)
	metadata := map[string]string{
		"config": filepath.Base(*cfgPath),
		"seed":   strconv.FormatUint(cfg.Seed, 10),
	}
	state, err := serialization.StateDict(vars)
	if err != nil {
		return err
	}
	logger.Info("model initialized", "model", modelType, "tensors", len(state), "elapsed", time.Since(start))

	if *out != "" {
		if err := serialization.Save(*out, vars, modelType, metadata); err != nil {
			return err
		}
		fmt.Fprintf(outW, "wrote %s: %s with %d tensors (%s)\n", *out, modelType, len(state), humanize.Bytes(stateBytes(state)))
	}
	if *dbPath != "" {
		if *name == "" {
			*name = strings.TrimSuffix(filepath.Base(*cfgPath), filepath.Ext(*cfgPath))
		}
		ctx := context.Background()
		store, err := serialization.OpenSQLite(ctx, *dbPath)
		if err != nil {
			return err
		}
		defer store.Close()
		id, err := store.Put(ctx, *name, vars, modelType, metadata)
		if err != nil {
			return err
		}
		fmt.Fprintf(outW, "stored %s revision %d in %s\n", *name, id, *dbPath)
	}
	return nil
}

func stateBytes(state map[string]*tensor.RawTensor) uint64 {
	var n uint64
	for _, t := range state {
		n += uint64(t.ByteSize())
	}
	return n
}

// source selects a checkpoint from a file or a SQLite store.
type source struct {
	db       string
	name     string
	revision int64
}

func (s *source) register(fs *flag.FlagSet) {
	fs.StringVar(&s.db, "db", "", "Read from this SQLite database instead of a file.")
	fs.StringVar(&s.name, "name", "", "Checkpoint name in the database.")
	fs.Int64Var(&s.revision, "revision", 0, "Checkpoint revision id in the database. Overrides -name.")
}

func (s *source) load(ctx context.Context, path string) (*serialization.Checkpoint, error) {
	if s.db == "" {
		if path == "" {
			return nil, &ExitError{Code: 2, Message: "a checkpoint file or -db is required"}
		}
		return serialization.Load(path)
	}
	if s.name == "" && s.revision == 0 {
		return nil, &ExitError{Code: 2, Message: "-db needs -name or -revision"}
	}
	store, err := serialization.OpenSQLite(ctx, s.db)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	if s.revision != 0 {
		return store.GetRevision(ctx, s.revision)
	}
	return store.Get(ctx, s.name)
}

func runApply(outW io.Writer, args []string) error {
	fs := newFlagSet(outW, "apply", "[CHECKPOINT]")
	var (
		lf      logFlags
		src     source
		cfgPath = fs.String("config", "", "Path to the YAML model file (required).")
	)
	lf.register(fs)
	src.register(fs)
	if help, err := parse(fs, args); help || err != nil {
		return err
	}
	if *cfgPath == "" {
		fs.Usage()
		return &ExitError{Code: 2, Message: "apply: -config is required"}
	}

	cfg, logger, err := lf.setup(*cfgPath)
	if err != nil {
		return err
	}
	ckpt, err := src.load(context.Background(), fs.Arg(0))
	if err != nil {
		return err
	}
	vars, err := ckpt.Variables()
	if err != nil {
		return err
	}
	model, err := cfg.Build()
	if err != nil {
		return err
	}
	x, err := cfg.SampleInput()
	if err != nil {
		return err
	}
	y, err := linen.Apply(model, vars, func(m nn.Layer) (*tensor.RawTensor, error) {
		return m.Call(x)
	}, linen.WithRNGs(cfg.RNGs()))
	if err != nil {
		return err
	}
	logger.Debug("model applied", "model", linen.TypeTag(model), "output", y.Describe())
	fmt.Fprintln(outW, y)
	return nil
}

// inspectReport is the yaml form of inspect's output.
type inspectReport struct {
	FormatVersion uint32            `yaml:"format_version"`
	LinenVersion  string            `yaml:"linen_version"`
	ModelType     string            `yaml:"model_type"`
	CreatedAt     time.Time         `yaml:"created_at"`
	Kinds         []string          `yaml:"kinds"`
	Metadata      map[string]string `yaml:"metadata,omitempty"`
	Tensors       []tensorReport    `yaml:"tensors"`
}

type tensorReport struct {
	Name  string `yaml:"name"`
	DType string `yaml:"dtype"`
	Shape []int  `yaml:"shape,flow"`
	Bytes int64  `yaml:"bytes"`
}

func runInspect(outW io.Writer, args []string) error {
	fs := newFlagSet(outW, "inspect", "[CHECKPOINT]")
	var src source
	format := fs.String("format", "text", "Output format: text or yaml.")
	src.register(fs)
	if help, err := parse(fs, args); help || err != nil {
		return err
	}
	if *format != "text" && *format != "yaml" {
		return &ExitError{Code: 2, Message: "inspect: -format must be 'text' or 'yaml'"}
	}

	ckpt, err := src.load(context.Background(), fs.Arg(0))
	if err != nil {
		return err
	}
	h := ckpt.Header
	report := inspectReport{
		FormatVersion: ckpt.Version,
		LinenVersion:  h.LinenVersion,
		ModelType:     h.ModelType,
		CreatedAt:     h.CreatedAt,
		Kinds:         h.Kinds,
		Metadata:      h.Metadata,
	}
	for _, name := range ckpt.Names() {
		t := ckpt.Tensors[name]
		report.Tensors = append(report.Tensors, tensorReport{
			Name:  name,
			DType: t.DType().String(),
			Shape: []int(t.Shape()),
			Bytes: int64(t.ByteSize()),
		})
	}

	if *format == "yaml" {
		enc := yaml.NewEncoder(outW)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("encoding report: %w", err)
		}
		return enc.Close()
	}

	fmt.Fprintf(outW, "model:   %s\n", report.ModelType)
	fmt.Fprintf(outW, "format:  v%d (linen %s)\n", report.FormatVersion, report.LinenVersion)
	fmt.Fprintf(outW, "created: %s\n", humanize.Time(report.CreatedAt))
	fmt.Fprintf(outW, "kinds:   %s\n", strings.Join(report.Kinds, ", "))
	fmt.Fprintln(outW)
	tw := tabwriter.NewWriter(outW, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tDTYPE\tSHAPE\tSIZE")
	for _, t := range report.Tensors {
		fmt.Fprintf(tw, "%s\t%s\t%v\t%s\n", t.Name, t.DType, t.Shape, humanize.Bytes(uint64(t.Bytes)))
	}
	return tw.Flush()
}

func runList(outW io.Writer, args []string) error {
	fs := newFlagSet(outW, "list", "")
	dbPath := fs.String("db", "", "Path to the SQLite database (required).")
	if help, err := parse(fs, args); help || err != nil {
		return err
	}
	if *dbPath == "" {
		fs.Usage()
		return &ExitError{Code: 2, Message: "list: -db is required"}
	}

	ctx := context.Background()
	store, err := serialization.OpenSQLite(ctx, *dbPath)
	if err != nil {
		return err
	}
	defer store.Close()
	entries, err := store.List(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(outW, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tMODEL\tTENSORS\tSIZE\tCREATED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n",
			e.ID, e.Name, e.ModelType, e.Tensors, humanize.Bytes(uint64(e.Bytes)), humanize.Time(e.CreatedAt))
	}
	return tw.Flush()
}

func runVersion(outW io.Writer, _ []string) error {
	fmt.Fprintf(outW, "linen %s (checkpoint format v%d, %s)\n", version, serialization.FormatVersionV2, serialization.Version)
	return nil
}
