// Package llm generates AI summaries and topics of webpages with an OpenAI-compatible API
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-pkgz/lgr"
	"github.com/sashabaranov/go-openai"

	"github.com/yitzyh/shtell/pkg/config"
)

const maxContentChars = 1500

var errBadJSON = errors.New("bad json in response")

// default system prompt for webpage summaries
const defaultSystemPrompt = `You are an assistant that writes short summaries of web pages for a curated reading app.

For each page provide:
- id: the page id as given
- summary: 2-3 sentences (200-400 chars) about the content itself. Never start with phrases like "The article discusses" or "This page explores", start with the subject matter. Write the summary in the language of the page.
- topics: 1-3 lowercase topic keywords describing the page

Examples of good summaries:
- "Sleeper trains are returning to European routes as travellers trade speed for comfort. New operators connect Brussels, Berlin and Prague overnight, while state railways refurbish old carriages."
- "A hands-on guide to restoring vintage film cameras, covering light seals, shutter timing and lens cleaning with household tools."

Examples of bad summaries:
- "The article discusses sleeper trains..."
- "This page explores camera restoration..."`

// Page is the input of a summary request
type Page struct {
	ID          string
	Title       string
	Description string
	Content     string
}

// Summary is the result for one page
type Summary struct {
	ID      string   `json:"id"`
	Summary string   `json:"summary"`
	Topics  []string `json:"topics"`
}

// Summarizer uses LLM to summarize pages
type Summarizer struct {
	client    *openai.Client
	config    config.LLMConfig
	systemMsg string
}

// NewSummarizer creates a new LLM summarizer
func NewSummarizer(cfg config.LLMConfig) *Summarizer {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientConfig.BaseURL = cfg.Endpoint
	}
	if cfg.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	systemMsg := cfg.SystemPrompt
	if systemMsg == "" {
		systemMsg = defaultSystemPrompt
	}

	return &Summarizer{
		client:    openai.NewClientWithConfig(clientConfig),
		config:    cfg,
		systemMsg: systemMsg,
	}
}

// Summarize returns summaries of the pages. Pages missing in the response are absent from the result.
// The request is retried up to 3 times if the response is not valid JSON.
func (s *Summarizer) Summarize(ctx context.Context, pages []Page) ([]Summary, error) {
	if len(pages) == 0 {
		return []Summary{}, nil
	}

	prompt := s.buildPrompt(pages)

	var lastErr error
	for range 3 {
		req := openai.ChatCompletionRequest{
			Model:       s.config.Model,
			Temperature: float32(s.config.Temperature),
			MaxTokens:   s.config.MaxTokens,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: s.systemMsg},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		}
		if s.config.UseJSONMode {
			req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
		}

		resp, err := s.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("llm request failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			return nil, errors.New("no response from llm")
		}

		res, err := s.parseResponse(resp.Choices[0].Message.Content, pages)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !errors.Is(err, errBadJSON) {
			return nil, err
		}
		lgr.Printf("[DEBUG] retry summaries, %v", err)
	}
	return nil, fmt.Errorf("failed after 3 attempts: %w", lastErr)
}

func (s *Summarizer) buildPrompt(pages []Page) string {
	var sb strings.Builder
	sb.WriteString("Summarize these pages:\n\n")
	for i, p := range pages {
		sb.WriteString(fmt.Sprintf("%d. ID: %s\n", i+1, p.ID))
		sb.WriteString(fmt.Sprintf("   Title: %s\n", p.Title))
		if p.Description != "" {
			sb.WriteString(fmt.Sprintf("   Description: %s\n", p.Description))
		}
		if p.Content != "" {
			content := p.Content
			if utf8.RuneCountInString(content) > maxContentChars {
				content = string([]rune(content)[:maxContentChars]) + "..."
			}
			sb.WriteString(fmt.Sprintf("   Content: %s\n", content))
		}
		sb.WriteString("\n")
	}

	if s.config.UseJSONMode {
		sb.WriteString("Respond with a JSON object containing a 'summaries' array of summary objects.")
	} else {
		sb.WriteString("Respond with a JSON array of summary objects.")
	}
	return sb.String()
}

func (s *Summarizer) parseResponse(content string, pages []Page) ([]Summary, error) {
	var summaries []Summary
	if s.config.UseJSONMode {
		var resp struct {
			Summaries []Summary `json:"summaries"`
		}
		if err := json.Unmarshal([]byte(content), &resp); err != nil {
			return nil, fmt.Errorf("%w: %w", errBadJSON, err)
		}
		summaries = resp.Summaries
	} else {
		start := strings.Index(content, "[")
		end := strings.LastIndex(content, "]")
		if start == -1 || end == -1 || start >= end {
			return nil, fmt.Errorf("%w: no json array found", errBadJSON)
		}
		if err := json.Unmarshal([]byte(content[start:end+1]), &summaries); err != nil {
			return nil, fmt.Errorf("%w: %w", errBadJSON, err)
		}
	}

	known := make(map[string]bool, len(pages))
	for _, p := range pages {
		known[p.ID] = true
	}
	res := make([]Summary, 0, len(summaries))
	for _, sm := range summaries {
		if !known[sm.ID] || strings.TrimSpace(sm.Summary) == "" {
			continue
		}
		sm.Summary = strings.TrimSpace(sm.Summary)
		topics := make([]string, 0, len(sm.Topics))
		for _, t := range sm.Topics {
			if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
				topics = append(topics, t)
			}
		}
		sm.Topics = topics
		res = append(res, sm)
	}
	return res, nil
}
