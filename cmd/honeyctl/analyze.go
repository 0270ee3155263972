package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ashureev/honeytrap/internal/classifier"
	"github.com/ashureev/honeytrap/internal/domain"
	"github.com/ashureev/honeytrap/internal/extractor"
)

type analysis struct {
	Classification domain.ClassificationResult `json:"classification"`
	Extraction     domain.ExtractionResult     `json:"extraction"`
}

func newAnalyzeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <message>",
		Short: "Classify a message and extract intelligence from it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tuning, err := opts.tuning()
			if err != nil {
				return err
			}
			text := strings.Join(args, " ")
			a := analysis{
				Classification: classifier.New(tuning.Classifier).Classify(text, nil, nil),
				Extraction:     extractor.New(tuning.Extractor).Extract(text, 0),
			}
			out := cmd.OutOrStdout()
			if opts.jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(a)
			}
			printAnalysis(out, a)
			return nil
		},
	}
}

func printAnalysis(w io.Writer, a analysis) {
	c := a.Classification
	verdict := cleanStyle.Render("not a scam")
	if c.IsScam {
		verdict = scamStyle.Render("SCAM")
	}
	_, _ = fmt.Fprintln(w, headerStyle.Render("Classification"))
	_, _ = fmt.Fprintf(w, "%s %s  %s %.2f  %s %s\n",
		labelStyle.Render("verdict:"), verdict,
		labelStyle.Render("confidence:"), c.Confidence,
		labelStyle.Render("urgency:"), c.Urgency)
	if c.FraudType != "" {
		_, _ = fmt.Fprintf(w, "%s %s\n", labelStyle.Render("fraud type:"), c.FraudType)
	}
	for _, ind := range c.Indicators {
		_, _ = fmt.Fprintf(w, "  • %s %s\n", ind.Category, metaStyle.Render(fmt.Sprintf("%q", ind.Matched)))
	}

	_, _ = fmt.Fprintln(w, headerStyle.Render("Extraction"))
	if len(a.Extraction.Items) == 0 {
		_, _ = fmt.Fprintln(w, metaStyle.Render("  nothing extracted"))
	}
	for _, it := range a.Extraction.Items {
		_, _ = fmt.Fprintf(w, "  • %-15s %s %s\n", it.Type, it.Normalized,
			metaStyle.Render(fmt.Sprintf("(%.2f)", it.Confidence)))
	}
}
