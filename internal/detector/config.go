package detector

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrMissingModel is returned when a cascade stage artifact cannot be found.
var ErrMissingModel = errors.New("model artifact not found")

// Default stage thresholds.
const (
	DefaultProposalThreshold = 0.6
	DefaultRefineThreshold   = 0.7
	DefaultOutputThreshold   = 0.7
)

// StageConfig describes one cascade stage: its weights, its topology
// descriptor and the confidence a candidate needs to survive the stage.
type StageConfig struct {
	Name      string
	Model     string
	Proto     string
	Threshold float32
}

// CascadeConfig holds the three stage configurations. It is built once at
// startup and passed by value afterwards.
type CascadeConfig struct {
	Proposal StageConfig
	Refine   StageConfig
	Output   StageConfig
}

// NewCascadeConfig returns the cascade configuration for the conventional
// model directory layout (det1, det2 and det3 .caffemodel/.prototxt pairs).
func NewCascadeConfig(modelDir string) CascadeConfig {
	stage := func(name, base string, threshold float32) StageConfig {
		return StageConfig{
			Name:      name,
			Model:     filepath.Join(modelDir, base+".caffemodel"),
			Proto:     filepath.Join(modelDir, base+".prototxt"),
			Threshold: threshold,
		}
	}

	return CascadeConfig{
		Proposal: stage("proposal", "det1", DefaultProposalThreshold),
		Refine:   stage("refine", "det2", DefaultRefineThreshold),
		Output:   stage("output", "det3", DefaultOutputThreshold),
	}
}

// Stages returns the stage configurations in cascade order.
func (c CascadeConfig) Stages() []StageConfig {
	return []StageConfig{c.Proposal, c.Refine, c.Output}
}

// Validate checks that every stage artifact exists and is a regular file.
func (c CascadeConfig) Validate() error {
	for _, s := range c.Stages() {
		for _, path := range []string{s.Model, s.Proto} {
			info, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("%w: %s stage: %s", ErrMissingModel, s.Name, path)
			}
			if info.IsDir() {
				return fmt.Errorf("%w: %s stage: %s is a directory", ErrMissingModel, s.Name, path)
			}
		}
		if s.Threshold < 0 || s.Threshold > 1 {
			return fmt.Errorf("%s stage: threshold %.2f outside [0,1]", s.Name, s.Threshold)
		}
	}
	return nil
}
