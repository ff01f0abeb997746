package extraction

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// OCRConfig configures the ocrmypdf invocation.
type OCRConfig struct {
	Enabled   bool
	Command   string
	Languages string
	Jobs      int
}

// DefaultOCRConfig returns ocrmypdf with English and Spanish, 6 jobs, disabled.
func DefaultOCRConfig() OCRConfig {
	return OCRConfig{
		Command:   "ocrmypdf",
		Languages: "eng+spa",
		Jobs:      6,
	}
}

// Args builds the command line that OCRs in into out.
func (c OCRConfig) Args(in, out string) []string {
	jobs := c.Jobs
	if jobs < 1 {
		jobs = 1
	}
	return []string{
		"-l", c.Languages,
		"--force-ocr",
		"--jobs", strconv.Itoa(jobs),
		"--output-type", "pdf",
		in, out,
	}
}

// CommandRunner runs an external program to completion.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

var _ CommandRunner = ExecRunner{}

// Run returns an error carrying the combined output when the command exits non-zero.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s failed: %w (output: %s)", name, err, strings.TrimSpace(out.String()))
	}
	return nil
}
