package commentary

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"text/template"
)

// ErrUnusable is returned when the model's reply is empty once reasoning
// markup is stripped. The caller reports it without recording commentary.
var ErrUnusable = errors.New("commentary reply unusable")

// reasoningPattern strips chain-of-thought blocks that reasoning models wrap
// in think tags, across newlines and across multiple occurrences.
var reasoningPattern = regexp.MustCompile(`(?s)<think>.*?</think>`)

const defaultPromptTemplate = `You are playing a game of chess. Comment on the last pair of moves in one or two sentences, in the voice of {{.Character}}. Do not use chess notation in your reply.
White's move: {{.WhiteMove}}
Black's move: {{.BlackMove}}`

// Generator turns an applied move pair into one in-character remark.
type Generator struct {
	completer Completer
	tmpl      *template.Template
	character string
}

func NewGenerator(completer Completer, character string) (*Generator, error) {
	if completer == nil {
		return nil, errors.New("completer required")
	}
	tmpl, err := template.New("commentary").Parse(defaultPromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse prompt template: %w", err)
	}
	if strings.TrimSpace(character) == "" {
		character = "a chess commentator"
	}
	return &Generator{completer: completer, tmpl: tmpl, character: character}, nil
}

// Generate asks for a remark on one full move pair. The reply is cleaned of
// reasoning markup; a reply that is empty afterwards is an error.
func (g *Generator) Generate(ctx context.Context, whiteSAN, blackSAN string) (string, error) {
	prompt, err := g.buildPrompt(whiteSAN, blackSAN)
	if err != nil {
		return "", err
	}

	raw, err := g.completer.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("request commentary: %w", err)
	}

	cleaned := StripReasoning(raw)
	if cleaned == "" {
		return "", ErrUnusable
	}
	return cleaned, nil
}

func (g *Generator) buildPrompt(whiteSAN, blackSAN string) (string, error) {
	var sb strings.Builder
	data := struct {
		Character string
		WhiteMove string
		BlackMove string
	}{
		Character: g.character,
		WhiteMove: whiteSAN,
		BlackMove: blackSAN,
	}
	if err := g.tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return sb.String(), nil
}

// StripReasoning removes every think block from text and trims whitespace.
// Text without think blocks passes through unchanged apart from trimming.
func StripReasoning(text string) string {
	return strings.TrimSpace(reasoningPattern.ReplaceAllString(text, ""))
}
