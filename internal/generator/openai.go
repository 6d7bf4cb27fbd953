package generator

import (
	"alcyxob/run-coach/internal/config"
	"alcyxob/run-coach/internal/domain"
	"alcyxob/run-coach/internal/logger"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strings"
	"time"
)

// openAIGenerator implements SessionGenerator against an OpenAI-compatible
// chat-completions endpoint with a JSON response format. All parse and
// validation failures surface uniformly as ErrGenerationFailed; the caller
// does not special-case partial extraction.
type openAIGenerator struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	timeout    time.Duration
	maxRetries int
	httpClient *http.Client
}

// NewOpenAIGenerator creates the production SessionGenerator. A missing API
// key is not a construction error; calls will fail and the orchestrator's
// template fallback takes over.
func NewOpenAIGenerator(cfg config.GeneratorConfig, log *logger.Logger) SessionGenerator {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	return &openAIGenerator{
		log:        log.With("service", "OpenAIGenerator"),
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		timeout:    timeout,
		maxRetries: retries,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type httpError struct {
	StatusCode int
	Body       string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("generator http %d: %s", e.StatusCode, e.Body)
}

func isRetryable(err error) bool {
	var he *httpError
	if errors.As(err, &he) {
		return he.StatusCode == 408 || he.StatusCode == 429 || he.StatusCode >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// chatJSON performs one chat-completions call and decodes the JSON content
// of the first choice into out. Retries transient failures with backoff, but
// never past the caller's context deadline.
func (g *openAIGenerator) chatJSON(ctx context.Context, system, user string, out interface{}) error {
	if g.apiKey == "" {
		return fmt.Errorf("%w: missing API key", ErrGenerationFailed)
	}

	req := chatRequest{Model: g.model}
	req.Messages = []chatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}
	req.ResponseFormat.Type = "json_object"

	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 500 * time.Millisecond
			backoff += time.Duration(rand.Intn(250)) * time.Millisecond
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrGenerationFailed, ctx.Err())
			case <-time.After(backoff):
			}
		}

		content, err := g.doRequest(ctx, payload)
		if err != nil {
			lastErr = err
			if isRetryable(err) && ctx.Err() == nil {
				g.log.Warn("generator call failed, retrying", "attempt", attempt, "error", err)
				continue
			}
			break
		}

		if err := json.Unmarshal([]byte(content), out); err != nil {
			// Malformed model output is not retryable in a useful way.
			return fmt.Errorf("%w: unparseable response: %v", ErrGenerationFailed, err)
		}
		return nil
	}

	return fmt.Errorf("%w: %v", ErrGenerationFailed, lastErr)
}

func (g *openAIGenerator) doRequest(ctx context.Context, payload []byte) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, g.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", &httpError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var cr chatResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return "", err
	}
	if len(cr.Choices) == 0 || cr.Choices[0].Message.Content == "" {
		return "", errors.New("empty completion")
	}
	return cr.Choices[0].Message.Content, nil
}

// ProposeWeek asks the model for a full 7-day window of sessions.
func (g *openAIGenerator) ProposeWeek(ctx context.Context, wc WeekContext) ([]SessionProposal, error) {
	system := "You are a running coach. Respond with JSON only: " +
		`{"sessions":[{"date":"YYYY-MM-DD","sessionType":string,"distance":number|null,"time":number|null,"notes":string}]}`

	var b strings.Builder
	fmt.Fprintf(&b, "Generate a 7-day training plan for the week starting Monday %s.\n", wc.WeekMonday.Format(domain.DateLayout))
	fmt.Fprintf(&b, "Runner: goal=%q experience=%q weekly volume=%.1f %s, %d runs/week.\n",
		wc.Goal, wc.Experience, wc.WeeklyVolumeKm, wc.Units, wc.RunsPerWeek)
	fmt.Fprintf(&b, "Training phase: %s (week %d of the plan).\n", wc.Phase, wc.WeekNumber)
	if wc.InjuryHistory != "" {
		fmt.Fprintf(&b, "Injury history: %s\n", wc.InjuryHistory)
	}
	if wc.Stats.WindowDays > 0 {
		fmt.Fprintf(&b, "Last %d days: completion rate %.0f%%, avg completed distance %.1f km, most skipped: %s.\n",
			wc.Stats.WindowDays, wc.Stats.CompletionRate*100, wc.Stats.AvgCompletedKm, strings.Join(wc.Stats.MostSkippedTypes, ", "))
	}
	if wc.FeedbackSummary != "" {
		fmt.Fprintf(&b, "Feedback: %s\n", wc.FeedbackSummary)
	}
	if len(wc.Prefers) > 0 {
		fmt.Fprintf(&b, "Prefers: %s\n", strings.Join(wc.Prefers, ", "))
	}
	if len(wc.StrugglingWith) > 0 {
		fmt.Fprintf(&b, "Struggling with: %s\n", strings.Join(wc.StrugglingWith, ", "))
	}
	if wc.LocationHint != "" {
		fmt.Fprintf(&b, "Location: %s\n", wc.LocationHint)
	}

	var result struct {
		Sessions []SessionProposal `json:"sessions"`
	}
	if err := g.chatJSON(ctx, system, b.String(), &result); err != nil {
		return nil, err
	}
	if len(result.Sessions) == 0 {
		return nil, fmt.Errorf("%w: no sessions in response", ErrGenerationFailed)
	}
	return result.Sessions, nil
}

// ProposeAdjustment asks the model for one structured change to a single
// session in the given week.
func (g *openAIGenerator) ProposeAdjustment(ctx context.Context, ac AdjustmentContext) (*domain.PendingAdjustment, error) {
	system := "You are a running coach adjusting one workout. Respond with JSON only: " +
		`{"week":number,"date":"YYYY-MM-DD","sessionType":string,"newNotes":string,"newDistance":number|null,"newTime":number|null,"newDate":"YYYY-MM-DD"|null}`

	var b strings.Builder
	fmt.Fprintf(&b, "The runner said: %q\n", ac.Message)
	fmt.Fprintf(&b, "Current week %d sessions:\n", ac.WeekNumber)
	for _, s := range ac.Sessions {
		dist := "-"
		if s.Distance != nil {
			dist = fmt.Sprintf("%.1f km", *s.Distance)
		}
		fmt.Fprintf(&b, "- %s %s (%s) status=%s\n", s.Date, s.SessionType, dist, s.Status)
	}
	b.WriteString("Pick the single session the runner wants to change and describe the change.")

	var result domain.PendingAdjustment
	if err := g.chatJSON(ctx, system, b.String(), &result); err != nil {
		return nil, err
	}
	if result.Date == "" || result.SessionType == "" {
		return nil, fmt.Errorf("%w: incomplete adjustment", ErrGenerationFailed)
	}
	if result.Week == 0 {
		result.Week = ac.WeekNumber
	}
	return &result, nil
}

// ExtractFeedback summarizes a week of chat and workout signal.
func (g *openAIGenerator) ExtractFeedback(ctx context.Context, in FeedbackInput) (*FeedbackResult, error) {
	system := "You extract training feedback. Respond with JSON only: " +
		`{"summary":string,"prefers":[string],"strugglingWith":[string]}`

	var b strings.Builder
	b.WriteString("Chat messages this week:\n")
	for _, m := range in.Transcript {
		fmt.Fprintf(&b, "- %s\n", m)
	}
	if len(in.WorkoutNotes) > 0 {
		b.WriteString("Post-session notes:\n")
		for _, n := range in.WorkoutNotes {
			fmt.Fprintf(&b, "- %s\n", n)
		}
	}
	if len(in.SkippedTypes) > 0 {
		fmt.Fprintf(&b, "Skipped workouts: %s\n", strings.Join(in.SkippedTypes, ", "))
	}

	var result FeedbackResult
	if err := g.chatJSON(ctx, system, b.String(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}
