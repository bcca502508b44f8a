package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/MeKo-Tech/soilsense/internal/classifier"
	"github.com/MeKo-Tech/soilsense/internal/pipeline"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// resetFlags restores every flag in the command tree to its default so
// executions do not leak state into each other.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// executeCommand runs the root command with args in an isolated home
// directory and returns stdout and stderr separately.
func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	resetFlags(rootCmd)
	cfgFile = ""
	globalConfig = nil

	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		resetFlags(rootCmd)
	})

	err := rootCmd.Execute()
	return strings.TrimSpace(stdout.String()), stderr.String(), err
}

// useStaticModel swaps the pipeline constructor for one backed by a fixed
// probability vector and returns a pointer to the last requested config.
func useStaticModel(t *testing.T, probs []float32) *pipeline.Config {
	t.Helper()
	var captured pipeline.Config
	orig := buildPipeline
	buildPipeline = func(cfg pipeline.Config) (*pipeline.Pipeline, error) {
		captured = cfg
		return pipeline.NewBuilderFromConfig(cfg).
			WithModel(classifier.NewStaticModel(probs)).
			WithInputSize(32, 32).
			Build()
	}
	t.Cleanup(func() { buildPipeline = orig })
	return &captured
}
