package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ashureev/honeytrap/internal/domain"
	"github.com/ashureev/honeytrap/internal/pipeline"
	"github.com/ashureev/honeytrap/internal/store"
)

// reportPrinter collects reports raised during the conversation.
type reportPrinter struct {
	reports []domain.Report
}

func (p *reportPrinter) Enqueue(r domain.Report) (string, error) {
	p.reports = append(p.reports, r)
	return uuid.NewString(), nil
}

func newConverseCmd(opts *options) *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "converse",
		Short: "Play the counterpart in an interactive conversation",
		Long: `Read counterpart messages from stdin, one per line, and print the persona's replies.

Type /end to terminate the conversation and print the closing report.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tuning, err := opts.tuning()
			if err != nil {
				return err
			}
			if sessionID == "" {
				sessionID = uuid.NewString()
			}
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			sink := &reportPrinter{}
			svc := pipeline.NewService(pipeline.NewEngine(tuning, opts.rng()), store.NewMemory(), sink, logger)
			return converse(cmd.Context(), svc, sink, sessionID, cmd.InOrStdin(), cmd.OutOrStdout(), opts.jsonOut)
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "Session id (random when empty)")
	return cmd
}

func converse(ctx context.Context, svc *pipeline.Service, sink *reportPrinter, sessionID string, in io.Reader, out io.Writer, jsonOut bool) error {
	_, _ = fmt.Fprintln(out, metaStyle.Render("session "+sessionID+", type /end to finish"))

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		req := pipeline.Request{SessionID: sessionID, Sender: domain.SenderCounterpart, Text: line}
		if line == "/end" {
			req.Text = "bye"
			req.Terminate = true
		}

		res, err := svc.Process(ctx, req)
		if err != nil {
			return err
		}
		if !req.Terminate {
			_, _ = fmt.Fprintf(out, "%s %s\n", counterpartStyle.Render("scammer:"), line)
		}
		_, _ = fmt.Fprintf(out, "%s %s %s\n", personaStyle.Render("persona:"), res.Reply,
			metaStyle.Render(fmt.Sprintf("[%s %.2f]", res.Session.Phase, res.Classification.Confidence)))

		if res.Session.Ended {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	for _, r := range sink.reports {
		_, _ = fmt.Fprintln(out, headerStyle.Render("Report"))
		if jsonOut {
			data, err := json.MarshalIndent(r, "", "  ")
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(out, string(data))
			continue
		}
		_, _ = fmt.Fprintf(out, "%s %t  %s %d\n%s %s\n",
			labelStyle.Render("scam detected:"), r.ScamDetected,
			labelStyle.Render("messages:"), r.TotalMessagesExchanged,
			labelStyle.Render("notes:"), r.AgentNotes)
	}
	return nil
}
