package matching

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const semanticSystemPrompt = `相談内容の類似度を0-1の数値のみで返す専門家です。`

const semanticUserPromptTemplate = `以下の2つの悩み相談の内容がどれだけ似ているか、0から1のスコアで評価してください。
1に近いほど似ており、0に近いほど異なります。

悩み1: %s
悩み2: %s

以下の基準で評価してください：
- テーマの類似性（恋愛、仕事、人間関係など）
- 感情の共通性
- 状況の類似性

スコアのみを数値で返してください（例: 0.75）`

// DefaultSemanticThreshold is the score floor the product used when
// ranking with the semantic scorer instead of tags.
const DefaultSemanticThreshold = 0.6

// SemanticScorer rates the topical, emotional, and situational closeness
// of two consultation texts with a text-completion call. It is the
// higher-fidelity alternative to TagSimilarity and sits behind the same
// per-pair contract, so a ranking pass can select either.
type SemanticScorer struct {
	completer Completer
	limiter   *rate.Limiter
	timeout   time.Duration
	observer  Observer
}

// NewSemanticScorer creates a scorer over the given completion service.
// callsPerSecond bounds the outbound call rate; zero or negative disables
// pacing.
func NewSemanticScorer(completer Completer, callsPerSecond float64, timeout time.Duration) *SemanticScorer {
	var limiter *rate.Limiter
	if callsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(callsPerSecond), 1)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SemanticScorer{
		completer: completer,
		limiter:   limiter,
		timeout:   timeout,
		observer:  nopObserver{},
	}
}

// Score returns a similarity score in [0, 1] for the two texts.
//
// Failure isolation: any call failure, timeout, or malformed response
// downgrades to a score of 0 for this one pair and is logged. The error
// is never propagated, so one bad completion cannot blank out a whole
// ranking batch. The call is made once in the given order and the result
// is treated as symmetric; no reverse call is issued.
func (s *SemanticScorer) Score(ctx context.Context, textA, textB string) float64 {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			slog.Warn("semantic scorer: rate limiter wait aborted", "error", err)
			s.observer.IncSemanticFailure()
			return 0
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	prompt := fmt.Sprintf(semanticUserPromptTemplate, textA, textB)
	raw, err := s.completer.Complete(ctx, semanticSystemPrompt, prompt)
	if err != nil {
		slog.Warn("semantic scorer: completion failed, scoring pair as 0", "error", err)
		s.observer.IncSemanticFailure()
		return 0
	}

	return s.parseScore(raw)
}

// parseScore extracts a float from the model output and clamps it into
// [0, 1]. Models occasionally wrap the number in prose or emit values
// outside the range; both are handled here rather than trusted.
func (s *SemanticScorer) parseScore(raw string) float64 {
	text := strings.TrimSpace(raw)
	if text == "" {
		s.observer.IncSemanticFailure()
		return 0
	}

	score, err := strconv.ParseFloat(text, 64)
	if err != nil {
		// Fall back to the first numeric token in the response.
		score, err = firstFloat(text)
		if err != nil {
			slog.Warn("semantic scorer: non-numeric response, scoring pair as 0", "response", truncate(text, 80))
			s.observer.IncSemanticFailure()
			return 0
		}
	}

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func firstFloat(text string) (float64, error) {
	start := -1
	for i, r := range text {
		if (r >= '0' && r <= '9') || r == '.' {
			if start == -1 {
				start = i
			}
			continue
		}
		if start != -1 {
			return strconv.ParseFloat(strings.Trim(text[start:i], "."), 64)
		}
	}
	if start != -1 {
		return strconv.ParseFloat(strings.Trim(text[start:], "."), 64)
	}
	return 0, strconv.ErrSyntax
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
