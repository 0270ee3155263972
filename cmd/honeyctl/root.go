package main

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ashureev/honeytrap/internal/config"
)

var version = "dev"

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	scamStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	cleanStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	counterpartStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true)

	personaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")).
			Bold(true)

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

type options struct {
	tuningFile string
	seed       uint64
	jsonOut    bool
}

func (o *options) tuning() (config.Tuning, error) {
	t, err := config.LoadTuning(o.tuningFile)
	if err != nil {
		return config.Tuning{}, fmt.Errorf("failed to load tuning: %w", err)
	}
	return t, nil
}

func (o *options) rng() *rand.Rand {
	seed := o.seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed>>1|1))
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "honeyctl",
		Short: "Run the honeytrap pipeline from the terminal",
		Long: `honeyctl drives the honeytrap engagement pipeline without the HTTP server.

Quick Start:
  honeyctl analyze "Your SBI account is blocked, pay to refund@upi"
  honeyctl converse --seed 42`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.tuningFile, "tuning", "", "YAML tuning file (defaults are used when empty)")
	root.PersistentFlags().Uint64Var(&opts.seed, "seed", 0, "Random seed for reproducible replies (0 uses the clock)")
	root.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "Print machine-readable JSON")
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.AddCommand(newAnalyzeCmd(opts), newConverseCmd(opts))
	return root
}
