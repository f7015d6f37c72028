package research

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/factcheck/internal/model"
	"github.com/ppiankov/factcheck/internal/tools"
	"github.com/ppiankov/factcheck/internal/worker"
)

// ResearcherConfig configures a Researcher
type ResearcherConfig struct {
	Tools             tools.Adapter
	Authority         *AuthorityClassifier
	Retry             worker.RetryPolicy
	ScrapeTopN        int
	ScrapeParallelism int
	Logger            *slog.Logger

	// Now stamps evidence retrieval times; nil means time.Now
	Now func() time.Time
}

func (c *ResearcherConfig) defaults() {
	if c.Authority == nil {
		c.Authority = NewAuthorityClassifier(nil)
	}
	if c.Retry.MaxAttempts < 1 {
		c.Retry.MaxAttempts = 3
	}
	if c.ScrapeTopN < 0 {
		c.ScrapeTopN = 0
	}
	if c.ScrapeParallelism < 1 {
		c.ScrapeParallelism = 1
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Researcher gathers evidence for one question within its allowance.
// Call plan: search the question, keep snippets, scrape the most
// authoritative result pages; fall back to searching the claim text when
// the question search fails or finds nothing.
type Researcher struct {
	cfg ResearcherConfig
	now func() time.Time
}

// NewResearcher creates a researcher
func NewResearcher(cfg ResearcherConfig) *Researcher {
	cfg.defaults()
	return &Researcher{cfg: cfg, now: cfg.Now}
}

// QuestionResult is the terminal state of one researched question
type QuestionResult struct {
	QuestionID string
	Status     model.QuestionStatus
	Evidence   []model.Evidence
	Calls      int
	Err        error // last error seen, nil when answered cleanly
}

// GetError reports the degradation of a question that gathered nothing
func (r *QuestionResult) GetError() error {
	if r.Status == model.StatusAnswered || r.Err == nil {
		return nil
	}
	return &model.DegradedItemError{Stage: "research", ItemID: r.QuestionID, Err: r.Err}
}

type callLog struct {
	mu           sync.Mutex
	made         int
	nonRetryable int
	lastErr      error
}

func (l *callLog) record(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.made++
	if err == nil {
		return
	}
	l.lastErr = err
	if !tools.IsTransient(err) && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		l.nonRetryable++
	}
}

type candidate struct {
	url       string
	title     string
	rank      int
	authority model.AuthorityTier
}

// Research runs the call plan for q. claimText is the fallback query.
func (r *Researcher) Research(ctx context.Context, q model.ResearchQuestion, claimText string, allowance *Allowance) *QuestionResult {
	ctx, span := startQuestionSpan(ctx, q)
	defer span.End()

	logger := r.cfg.Logger.With("question_id", q.ID, "claim_id", q.ClaimID, "priority", q.Priority)
	calls := &callLog{}

	snippets, candidates := r.search(ctx, q, claimText, allowance, calls, logger)
	pages := r.scrape(ctx, q, candidates, allowance, calls, logger)

	evidence := make([]model.Evidence, 0, len(snippets)+len(pages))
	for _, e := range snippets {
		e.ID = fmt.Sprintf("%s-E%d", q.ID, len(evidence)+1)
		evidence = append(evidence, e)
	}
	for _, e := range pages {
		e.ID = fmt.Sprintf("%s-E%d", q.ID, len(evidence)+1)
		evidence = append(evidence, e)
	}

	result := &QuestionResult{
		QuestionID: q.ID,
		Evidence:   evidence,
		Calls:      calls.made,
		Err:        calls.lastErr,
	}

	switch {
	case len(evidence) > 0:
		result.Status = model.StatusAnswered
	case ctx.Err() != nil:
		result.Status = model.StatusExhausted
		result.Err = fmt.Errorf("deadline reached: %w", ctx.Err())
	case calls.made > 0 && calls.nonRetryable == calls.made:
		result.Status = model.StatusFailed
	default:
		result.Status = model.StatusExhausted
		if result.Err == nil {
			result.Err = errors.New("no evidence within budget")
			if allowance.BudgetDenied() {
				result.Err = errors.New("run budget exhausted")
			}
		}
	}

	span.SetAttributes(
		attribute.String("question.status", string(result.Status)),
		attribute.Int("question.evidence", len(evidence)),
		attribute.Int("question.calls", calls.made),
	)
	logger.Debug("research: question finished",
		"status", result.Status,
		"evidence", len(evidence),
		"calls", calls.made)
	return result
}

// search runs the question query and, when it yields nothing, the claim
// text. It returns snippet evidence and ranked scrape candidates.
func (r *Researcher) search(ctx context.Context, q model.ResearchQuestion, claimText string, allowance *Allowance, calls *callLog, logger *slog.Logger) ([]model.Evidence, []candidate) {
	queries := []string{q.Text}
	if ct := strings.TrimSpace(claimText); ct != "" && !strings.EqualFold(ct, strings.TrimSpace(q.Text)) {
		queries = append(queries, ct)
	}

	for i, query := range queries {
		if ctx.Err() != nil || !allowance.Take() {
			return nil, nil
		}

		var results []tools.Snippet
		_, err := worker.Retry(ctx, r.retryPolicy(logger), tools.IsTransient, func(ctx context.Context) error {
			var err error
			results, err = r.cfg.Tools.Search(ctx, query)
			return err
		})
		calls.record(err)
		recordToolCall(ctx, tools.ToolSearch, q.Priority, err == nil)

		if err != nil {
			logger.Warn("research: search failed", "query", query, "fallback", i == 0 && len(queries) > 1, "error", err)
			continue
		}
		if len(results) == 0 {
			logger.Debug("research: search returned nothing", "query", query)
			continue
		}
		return r.fromSnippets(q, results)
	}
	return nil, nil
}

func (r *Researcher) fromSnippets(q model.ResearchQuestion, results []tools.Snippet) ([]model.Evidence, []candidate) {
	now := r.now().UTC()
	var evidence []model.Evidence
	var candidates []candidate
	seen := make(map[string]bool)

	for i, s := range results {
		rank := s.Rank
		if rank <= 0 {
			rank = i + 1
		}
		tier := r.cfg.Authority.Classify(s.URL)

		if text := strings.TrimSpace(s.Text); text != "" {
			evidence = append(evidence, model.Evidence{
				QuestionID:  q.ID,
				SourceURI:   s.URL,
				Title:       s.Title,
				Content:     text,
				Kind:        model.EvidenceKindSnippet,
				Authority:   tier,
				RetrievedAt: now,
			})
		}

		key := normalizeURL(s.URL)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		candidates = append(candidates, candidate{url: s.URL, title: s.Title, rank: rank, authority: tier})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].authority != candidates[j].authority {
			return tierOrder(candidates[i].authority) < tierOrder(candidates[j].authority)
		}
		return candidates[i].rank < candidates[j].rank
	})
	if len(candidates) > r.cfg.ScrapeTopN {
		candidates = candidates[:r.cfg.ScrapeTopN]
	}
	return evidence, candidates
}

// scrape fetches candidates with bounded parallelism while the allowance
// lasts. Results keep candidate order.
func (r *Researcher) scrape(ctx context.Context, q model.ResearchQuestion, candidates []candidate, allowance *Allowance, calls *callLog, logger *slog.Logger) []model.Evidence {
	if len(candidates) == 0 {
		return nil
	}

	pages := make([]*model.Evidence, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.ScrapeParallelism)

	for i, c := range candidates {
		if gctx.Err() != nil || !allowance.Take() {
			break
		}
		g.Go(func() error {
			var page *tools.Page
			_, err := worker.Retry(gctx, r.retryPolicy(logger), tools.IsTransient, func(ctx context.Context) error {
				var err error
				page, err = r.cfg.Tools.Scrape(ctx, c.url)
				return err
			})
			calls.record(err)
			recordToolCall(gctx, tools.ToolScrape, q.Priority, err == nil)

			if err != nil {
				logger.Warn("research: scrape failed", "url", c.url, "error", err)
				return nil
			}
			content := strings.TrimSpace(page.Content)
			if content == "" {
				return nil
			}
			title := page.Title
			if title == "" {
				title = c.title
			}
			pages[i] = &model.Evidence{
				QuestionID:  q.ID,
				SourceURI:   c.url,
				Title:       title,
				Content:     content,
				Kind:        model.EvidenceKindPage,
				Authority:   c.authority,
				RetrievedAt: page.FetchedAt,
			}
			if pages[i].RetrievedAt.IsZero() {
				pages[i].RetrievedAt = r.now().UTC()
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]model.Evidence, 0, len(pages))
	for _, p := range pages {
		if p != nil {
			out = append(out, *p)
		}
	}
	return out
}

func (r *Researcher) retryPolicy(logger *slog.Logger) worker.RetryPolicy {
	p := r.cfg.Retry
	p.Logger = logger
	return p
}

// tierOrder sorts unknown tiers after tertiary
func tierOrder(t model.AuthorityTier) int {
	if t == model.TierUnknown {
		return 4
	}
	return int(t)
}

func normalizeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	u.Fragment = ""
	u.Host = strings.ToLower(u.Host)
	return strings.TrimSuffix(u.String(), "/")
}
