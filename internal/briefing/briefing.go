// Package briefing turns contact-trace results into a short exposure
// briefing for infection-control staff.
//
// When an Anthropic API key is configured, Claude writes the briefing. On a
// missing key or any API failure the Briefer degrades to a deterministic
// template so callers always get a usable text.
package briefing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"

	"github.com/ajitpratap0/wardtrace/internal/models"
	"github.com/ajitpratap0/wardtrace/pkg/tokenizer"
	"github.com/ajitpratap0/wardtrace/pkg/xmlutil"
)

const (
	// contactPromptBudget caps the tokens spent on the contact list.
	contactPromptBudget = 1500

	briefingMaxTokens = 600

	SourceClaude   = "claude"
	SourceTemplate = "template"
)

// Request describes one contact trace to brief on.
type Request struct {
	Subject  string           `json:"subject"`
	Window   models.Window    `json:"window"`
	Contacts []models.Contact `json:"contacts"`
}

// Briefing is the rendered result.
type Briefing struct {
	TraceID  string `json:"trace_id"`
	Subject  string `json:"subject"`
	Source   string `json:"source"`
	Contacts int    `json:"contacts"`
	Included int    `json:"included"`
	Text     string `json:"text"`
}

// Briefer writes exposure briefings.
type Briefer struct {
	client *anthropic.Client
	model  string
	logger *slog.Logger
}

// NewBriefer creates a Briefer. An empty apiKey yields a template-only
// Briefer. Extra request options are passed to the Anthropic client.
func NewBriefer(apiKey, model string, logger *slog.Logger, opts ...option.RequestOption) *Briefer {
	b := &Briefer{model: model, logger: logger}
	if apiKey != "" {
		c := anthropic.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
		b.client = &c
	}
	return b
}

// Brief renders a briefing for req. It never fails on API errors.
func (b *Briefer) Brief(ctx context.Context, req Request) (*Briefing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lines := contactLines(req.Contacts, func(s string) string { return s })
	out := &Briefing{
		TraceID:  uuid.NewString(),
		Subject:  req.Subject,
		Source:   SourceTemplate,
		Contacts: len(req.Contacts),
		Included: len(lines),
	}

	if b.client == nil || len(req.Contacts) == 0 {
		out.Text = templateText(req, lines)
		return out, nil
	}

	text, included, err := b.ask(ctx, req)
	if err != nil {
		b.logger.Warn("briefing: Claude unavailable, using template", "trace_id", out.TraceID, "error", err)
		out.Text = templateText(req, lines)
		return out, nil
	}
	out.Source = SourceClaude
	out.Included = included
	out.Text = text
	b.logger.Debug("briefing: Claude briefing written", "trace_id", out.TraceID, "included", included)
	return out, nil
}

func (b *Briefer) ask(ctx context.Context, req Request) (string, int, error) {
	lines := contactLines(req.Contacts, xmlutil.Escape)
	list, included := tokenizer.FormatLinesWithBudget(lines, contactPromptBudget)
	omitted := ""
	if included < len(lines) {
		omitted = fmt.Sprintf("\n(%d further contacts omitted for length)", len(lines)-included)
	}

	prompt := fmt.Sprintf(`You are an infection-control assistant in a hospital.

Write a short exposure briefing (at most 8 sentences) for the subject below. Group contacts by room, name the highest-risk roles first (patients, then clinical staff), and end with one recommended follow-up. Do not invent contacts or times.

%s

<window start="%s" end="%s"/>

<contacts>
%s%s
</contacts>`,
		xmlutil.Element("subject", req.Subject),
		req.Window.Start.UTC().Format(time.RFC3339),
		req.Window.End.UTC().Format(time.RFC3339),
		list,
		omitted,
	)

	resp, err := b.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(b.model),
		MaxTokens: briefingMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", 0, fmt.Errorf("calling Claude API: %w", err)
	}

	var text string
	for i := range resp.Content {
		if resp.Content[i].Type == "text" {
			text = strings.TrimSpace(resp.Content[i].Text)
			break
		}
	}
	if text == "" {
		return "", 0, fmt.Errorf("empty response from Claude")
	}
	return tokenizer.TruncateToTokenBudget(text, briefingMaxTokens), included, nil
}

func contactLines(contacts []models.Contact, escape func(string) string) []string {
	lines := make([]string, 0, len(contacts))
	for _, c := range contacts {
		lines = append(lines, fmt.Sprintf("- person %d %s (%s) in room %d from %s to %s",
			c.PersonID, escape(c.Name), c.Function, c.RoomID,
			c.From.UTC().Format(time.RFC3339), c.To.UTC().Format(time.RFC3339)))
	}
	return lines
}

func templateText(req Request, lines []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Exposure briefing for %s between %s and %s: ",
		req.Subject, req.Window.Start.UTC().Format(time.RFC3339), req.Window.End.UTC().Format(time.RFC3339))
	switch len(lines) {
	case 0:
		sb.WriteString("no contacts found.")
		return sb.String()
	case 1:
		sb.WriteString("1 contact.")
	default:
		fmt.Fprintf(&sb, "%d contacts.", len(lines))
	}
	for _, l := range lines {
		sb.WriteByte('\n')
		sb.WriteString(l)
	}
	return sb.String()
}
