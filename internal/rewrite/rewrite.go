// Package rewrite turns raw source text into an original Romanian
// article via a chat-completion model, enforcing a strict JSON output
// contract and escalating corrective instructions on retries.
package rewrite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"autopress/internal/core"
	"autopress/internal/logger"
)

// RetryReason tags why a rewrite attempt is being repeated, selecting
// the corrective instruction added to the prompt.
type RetryReason int

const (
	RetryNone RetryReason = iota
	RetryShortContent
	RetryWeakTitle
	RetryRoleMismatch
	RetryStyleRepetition
)

func (r RetryReason) String() string {
	switch r {
	case RetryShortContent:
		return "short_content"
	case RetryWeakTitle:
		return "weak_title"
	case RetryRoleMismatch:
		return "role_mismatch"
	case RetryStyleRepetition:
		return "style_repetition"
	default:
		return "none"
	}
}

// Request carries one candidate into a rewrite attempt.
type Request struct {
	RawText         string
	OriginalTitle   string
	Source          string
	Link            string
	PublishedAt     *time.Time
	RoleConstraints string
	Reason          RetryReason
	ReasonDetail    string // e.g. a role-mismatch summary
}

// Options tunes the model invocation.
type Options struct {
	Model           string
	MinWords        int
	BaseMaxTokens   int64
	TokenStep       int64
	BaseTemperature float64
	TemperatureStep float64
	MinTemperature  float64
}

// DefaultOptions returns the production generation parameters.
func DefaultOptions() Options {
	return Options{
		Model:           "gpt-4.1-mini",
		MinWords:        450,
		BaseMaxTokens:   1200,
		TokenStep:       300,
		BaseTemperature: 0.4,
		TemperatureStep: 0.1,
		MinTemperature:  0.2,
	}
}

// ErrEmptyOutput is returned when the model produced no usable text.
var ErrEmptyOutput = errors.New("rewrite: empty model output")

// ErrUnparseableOutput is returned when the model text held no valid
// article JSON.
var ErrUnparseableOutput = errors.New("rewrite: unparseable model output")

// Client calls the chat-completion API.
type Client struct {
	opts    Options
	reqOpts []option.RequestOption
}

// NewClient builds a rewrite client. baseURL may be empty.
func NewClient(apiKey, baseURL string, opts Options) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("rewrite: api key missing")
	}
	if opts.Model == "" {
		return nil, errors.New("rewrite: model is required")
	}
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	return &Client{opts: opts, reqOpts: reqOpts}, nil
}

const systemPrompt = "Ești un jurnalist profesionist care scrie în limba română."

const rewriteRules = `Rescrie știrea de mai jos în limba română, într-un stil jurnalistic clar, neutru și informat.

REGULI OBLIGATORII:
- Text ORIGINAL, fără plagiat.
- Fără citarea sursei sau a altor publicații.
- Fără formulări de tip „potrivit surselor”.
- Minim %d de cuvinte.
- Fără secțiune intitulată „Concluzie”.
- Ton profesionist, informativ, fără senzaționalism.
- Paragrafe scurte (2–3 propoziții).
- Include subtitluri H2 relevante.
- Primul paragraf trebuie să rezume esența știrii (lead).
- Limba română corectă, cu diacritice.`

const jsonContract = `FORMAT DE RĂSPUNS (obligatoriu):
Răspunde DOAR cu un obiect JSON valid, fără alt text în jur, cu câmpurile:
{
  "title": "titlu clar, informativ, fără clickbait",
  "seo_title": "titlu SEO de maximum 60 de caractere",
  "meta_description": "descriere de 130-160 de caractere",
  "focus_keyword": "expresia cheie principală",
  "tags": ["2-5 taguri relevante"],
  "content_html": "corpul articolului în HTML cu <p> și <h2>"
}`

func correctiveInstruction(reason RetryReason, detail string) string {
	switch reason {
	case RetryShortContent:
		return "ATENȚIE: răspunsul anterior a fost prea scurt. Extinde articolul cu detalii concrete din sursă până depășește clar pragul minim de cuvinte."
	case RetryWeakTitle:
		return "ATENȚIE: titlul anterior a fost incomplet sau s-a terminat în cuvânt de legătură. Scrie un titlu propoziție completă, fără construcții neterminate."
	case RetryRoleMismatch:
		instruction := "ATENȚIE: funcțiile oficiale au fost redate greșit. Folosește EXACT funcțiile din sursa originală, fără promovări sau retrogradări."
		if detail != "" {
			instruction += " Corecturi necesare: " + detail
		}
		return instruction
	case RetryStyleRepetition:
		return "ATENȚIE: evită repetarea cuvântului „context” și a formulării „în contextul”. Folosește formulări variate."
	default:
		return ""
	}
}

func (c *Client) buildUserPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, rewriteRules, c.opts.MinWords)
	b.WriteString("\n\n")
	if req.RoleConstraints != "" {
		b.WriteString("FUNCȚII OFICIALE (respectă întocmai):\n")
		b.WriteString(req.RoleConstraints)
		b.WriteString("\n\n")
	}
	if corrective := correctiveInstruction(req.Reason, req.ReasonDetail); corrective != "" {
		b.WriteString(corrective)
		b.WriteString("\n\n")
	}
	b.WriteString(jsonContract)
	b.WriteString("\n\nȘTIRE DE RESCRIS:\n\"\"\"\n")
	if req.OriginalTitle != "" {
		b.WriteString(req.OriginalTitle)
		b.WriteString("\n\n")
	}
	b.WriteString(req.RawText)
	b.WriteString("\n\"\"\"\n")
	return b.String()
}

// attemptParams scales the token budget up and the temperature down as
// attempts accumulate.
func (c *Client) attemptParams(attempt int) (int64, float64) {
	if attempt < 1 {
		attempt = 1
	}
	maxTokens := c.opts.BaseMaxTokens + c.opts.TokenStep*int64(attempt-1)
	temperature := c.opts.BaseTemperature - c.opts.TemperatureStep*float64(attempt-1)
	if temperature < c.opts.MinTemperature {
		temperature = c.opts.MinTemperature
	}
	return maxTokens, temperature
}

func (c *Client) complete(ctx context.Context, user string, attempt int) (string, error) {
	maxTokens, temperature := c.attemptParams(attempt)
	client := openai.NewClient(c.reqOpts...)
	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.opts.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(temperature),
		MaxTokens:   openai.Int(maxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyOutput
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyOutput
	}
	return text, nil
}

// Rewrite runs one rewrite attempt and parses the JSON contract.
func (c *Client) Rewrite(ctx context.Context, req Request, attempt int) (*core.Article, error) {
	text, err := c.complete(ctx, c.buildUserPrompt(req), attempt)
	if err != nil {
		return nil, err
	}
	article, ok := ParseArticleJSON(text)
	if !ok {
		logger.Debug("rewrite output not parseable", "attempt", attempt, "bytes", len(text))
		return nil, ErrUnparseableOutput
	}
	article.ContentHTML = NormalizeContentHTML(article.ContentHTML)
	return article, nil
}

// GenerateFallback writes an article about a bare topic, used when no
// feed candidate survives the pipeline.
func (c *Client) GenerateFallback(ctx context.Context, topic string) (*core.Article, error) {
	var b strings.Builder
	b.WriteString("Scrie un articol de știri jurnalistic, obiectiv, în limba română.\n\n")
	b.WriteString("REGULI STRICTE:\n")
	b.WriteString("- Titlu clar, o singură propoziție.\n")
	b.WriteString("- 3–5 subtitluri tematice.\n")
	b.WriteString("- Paragrafe scurte, clare.\n\n")
	b.WriteString(jsonContract)
	b.WriteString("\n\nSubiect: ")
	b.WriteString(topic)
	b.WriteString("\n")

	text, err := c.complete(ctx, b.String(), 1)
	if err != nil {
		return nil, err
	}
	article, ok := ParseArticleJSON(text)
	if !ok {
		return nil, ErrUnparseableOutput
	}
	article.ContentHTML = NormalizeContentHTML(article.ContentHTML)
	return article, nil
}
