package stage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/yago-naga/yago3-sub001/pkg/deduce"
	"github.com/yago-naga/yago3-sub001/pkg/fact"
	"github.com/yago-naga/yago3-sub001/pkg/merge"
	"github.com/yago-naga/yago3-sub001/pkg/theme"
)

var ErrInvalidPipeline = errors.New("invalid pipeline")

// Stage kinds of a pipeline file.
const (
	KindRules   = "rules"
	KindClosure = "closure"
	KindMerge   = "merge"
)

// StageConfig is one stage of a pipeline file.
type StageConfig struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`

	// rules and closure
	Rules          string   `yaml:"rules,omitempty"`
	Inputs         []string `yaml:"inputs,omitempty"`
	Output         string   `yaml:"output"`
	Sources        string   `yaml:"sources,omitempty"`
	Strategy       string   `yaml:"strategy,omitempty"`
	MaxRuleSetSize int      `yaml:"maxRuleSetSize,omitempty"`
	UnboundHeads   string   `yaml:"unboundHeads,omitempty"`
	Depth          int      `yaml:"depth,omitempty"`
	StopAtFixpoint bool     `yaml:"stopAtFixpoint,omitempty"`

	// merge
	Accept     string   `yaml:"accept,omitempty"`
	Relations  []string `yaml:"relations,omitempty"`
	Schema     string   `yaml:"schema,omitempty"`
	Exclusions []string `yaml:"exclusions,omitempty"`
	Conflicts  string   `yaml:"conflicts,omitempty"`
}

// Pipeline describes a whole run.
type Pipeline struct {
	Name        string        `yaml:"name"`
	Compress    bool          `yaml:"compress"`
	Concurrency int           `yaml:"concurrency"`
	CacheSize   int           `yaml:"cacheSize"`
	Themes      []theme.Theme `yaml:"themes,omitempty"`
	Stages      []StageConfig `yaml:"stages"`
}

// DefaultPipeline returns an empty pipeline with default knobs.
func DefaultPipeline() *Pipeline {
	return &Pipeline{
		Name:        "yago",
		Concurrency: DefaultConcurrency,
		CacheSize:   theme.DefaultCacheSize,
	}
}

// LoadPipeline reads a pipeline file.
func LoadPipeline(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline: %w", err)
	}
	return ParsePipeline(data)
}

// ParsePipeline decodes and validates a pipeline.
func ParsePipeline(data []byte) (*Pipeline, error) {
	p := DefaultPipeline()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to parse pipeline: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks every stage can be built.
func (p *Pipeline) Validate() error {
	if len(p.Stages) == 0 {
		return fmt.Errorf("%w: no stages", ErrInvalidPipeline)
	}
	if p.Concurrency < 0 {
		return fmt.Errorf("%w: concurrency must be non-negative", ErrInvalidPipeline)
	}
	seen := make(map[string]bool)
	for _, sc := range p.Stages {
		if seen[sc.Name] {
			return fmt.Errorf("%w: stage %q defined twice", ErrInvalidPipeline, sc.Name)
		}
		seen[sc.Name] = true
		if _, err := sc.Build(); err != nil {
			return err
		}
	}
	return nil
}

// Build turns the configuration into a stage.
func (sc StageConfig) Build() (Stage, error) {
	if sc.Name == "" || sc.Output == "" {
		return nil, fmt.Errorf("%w: stage needs a name and an output", ErrInvalidPipeline)
	}
	switch sc.Kind {
	case KindRules, KindClosure:
		rs, err := sc.ruleStage()
		if err != nil {
			return nil, err
		}
		if sc.Kind == KindRules {
			return rs, nil
		}
		if sc.Depth < 0 {
			return nil, fmt.Errorf("%w: %s: negative depth", ErrInvalidPipeline, sc.Name)
		}
		return &ClosureStage{RuleStage: rs, Depth: sc.Depth, StopAtFixpoint: sc.StopAtFixpoint}, nil
	case KindMerge:
		return sc.mergeStage()
	default:
		return nil, fmt.Errorf("%w: %s: unknown kind %q", ErrInvalidPipeline, sc.Name, sc.Kind)
	}
}

func (sc StageConfig) ruleStage() (*RuleStage, error) {
	if sc.Rules == "" {
		return nil, fmt.Errorf("%w: %s: no rule theme", ErrInvalidPipeline, sc.Name)
	}
	strategy, ok := deduce.StrategyByName(sc.Strategy)
	if !ok {
		return nil, fmt.Errorf("%w: %s: unknown strategy %q", ErrInvalidPipeline, sc.Name, sc.Strategy)
	}
	cfg := deduce.DefaultConfig()
	cfg.MaxRuleSetSize = sc.MaxRuleSetSize
	if sc.UnboundHeads != "" {
		cfg.UnboundHeads = deduce.UnboundHeadPolicy(sc.UnboundHeads)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", sc.Name, err)
	}
	return &RuleStage{
		StageName: sc.Name,
		Rules:     sc.Rules,
		Facts:     sc.Inputs,
		Result:    sc.Output,
		Sources:   sc.Sources,
		Strategy:  strategy,
		Config:    cfg,
	}, nil
}

func (sc StageConfig) mergeStage() (*MergeStage, error) {
	if len(sc.Inputs) == 0 {
		return nil, fmt.Errorf("%w: %s: merge without inputs", ErrInvalidPipeline, sc.Name)
	}
	accept, ok := merge.FilterByName(sc.Accept)
	if !ok {
		return nil, fmt.Errorf("%w: %s: unknown filter %q", ErrInvalidPipeline, sc.Name, sc.Accept)
	}
	if len(sc.Relations) > 0 {
		only := merge.Relations(sc.Relations...)
		base := accept
		accept = func(f fact.Fact) bool { return base(f) && only(f) }
	}
	return &MergeStage{
		StageName:  sc.Name,
		Authority:  sc.Inputs,
		Accept:     accept,
		Schema:     sc.Schema,
		Exclusions: sc.Exclusions,
		Output:     sc.Output,
		Conflicts:  sc.Conflicts,
	}, nil
}

// Build returns all stages of the pipeline.
func (p *Pipeline) Build() ([]Stage, error) {
	stages := make([]Stage, 0, len(p.Stages))
	for _, sc := range p.Stages {
		st, err := sc.Build()
		if err != nil {
			return nil, err
		}
		stages = append(stages, st)
	}
	return stages, nil
}

// Run executes the pipeline once. Output themes are written to
// outputDir/runLabel. Any stage failure fails the whole run.
func (p *Pipeline) Run(ctx context.Context, inputDir, outputDir, runLabel string) error {
	stages, err := p.Build()
	if err != nil {
		return err
	}
	runDir := outputDir
	if runLabel != "" {
		runDir = filepath.Join(outputDir, runLabel)
	}
	env := NewEnv(inputDir, runDir, runLabel)
	env.Compress = p.Compress
	env.Cache = theme.NewCache(p.CacheSize)
	defer env.Cache.Purge()
	env.Registry.Declare(p.Themes...)

	log := env.logger()
	log.Info("run started",
		"pipeline", p.Name,
		"stages", len(stages),
		"input", inputDir,
		"output", runDir,
	)
	sched := &Scheduler{Concurrency: p.Concurrency}
	if err := sched.Run(ctx, env, stages); err != nil {
		return fmt.Errorf("run %s: %w", runLabel, err)
	}
	log.Info("run finished", "pipeline", p.Name)
	return nil
}
