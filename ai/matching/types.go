// Package matching implements the peer-matching engine: it discovers users
// whose recent consultation questions cover similar topics, scores the
// similarity, and returns a ranked list of candidates.
package matching

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// ConsultationRecord is one consultation question owned by a user.
// Records are read-only for this engine; the store owns their lifecycle.
type ConsultationRecord struct {
	UserID    string
	Question  string
	CreatedTs int64
}

// Match is one ranked candidate user.
type Match struct {
	UserID         string   `json:"userId"`
	Score          float64  `json:"score"`
	CommonTags     []string `json:"commonTags"`
	SampleQuestion string   `json:"sampleQuestion"`
	Nickname       string   `json:"nickname"`
}

// Mode selects which scorer drives the ranking pass.
type Mode string

const (
	// ModeTags scores with the Jaccard index over extracted tag sets.
	// This is the default: zero external calls, deterministic, cheap.
	ModeTags Mode = "tags"
	// ModeSemantic scores question pairs with the LLM-backed scorer.
	// Higher fidelity, but each pair costs one completion call.
	ModeSemantic Mode = "semantic"
)

// ErrNoRequester is returned when the requester cannot be identified.
// A requester with an empty history is NOT an error; that yields an
// empty match list.
var ErrNoRequester = errors.New("requester not identified")

// ErrDependency marks record-store or identity-resolver failures that
// make the ranking impossible. Callers may retry; this is distinct from
// the silent "no matches" outcome.
var ErrDependency = errors.New("dependency unavailable")

// RecordSource supplies recent consultation records, newest first.
type RecordSource interface {
	// RecentRecords returns up to limit records for userID, newest first.
	// An empty excludeUserID means no exclusion; a non-empty one returns
	// records of every user except that one.
	RecentRecords(ctx context.Context, userID string, excludeUserID string, limit int) ([]*ConsultationRecord, error)
}

// IdentityResolver maps a user ID to a display name.
type IdentityResolver interface {
	// ResolveDisplayName returns the display name for userID. An empty
	// name with a nil error means the user has no resolvable name and the
	// caller should substitute a placeholder. A non-nil error means the
	// resolver itself is unreachable.
	ResolveDisplayName(ctx context.Context, userID string) (string, error)
}

// Completer is the text-completion collaborator used by the semantic scorer.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Observer receives engine-internal measurements. Implementations must be
// safe for concurrent use; semantic failures are reported from scorer
// goroutines.
type Observer interface {
	// ObserveCandidatePool records how many records formed the candidate
	// pool of one ranking pass.
	ObserveCandidatePool(size int)
	// IncSemanticFailure counts one semantic-scorer call that degraded to
	// a zero score.
	IncSemanticFailure()
}

// nopObserver is the default when no observer is attached.
type nopObserver struct{}

func (nopObserver) ObserveCandidatePool(int) {}
func (nopObserver) IncSemanticFailure()      {}

// Options are the tunables of one matching service. The defaults are the
// values the product shipped with; they carry no measured rationale and
// are deliberately adjustable.
type Options struct {
	// Threshold is the strict lower bound on aggregated scores. Candidates
	// scoring exactly Threshold are excluded. Zero is valid and admits any
	// candidate with a positive score; negative selects the default.
	Threshold float64
	// Limit caps the number of returned matches.
	Limit int
	// PoolSize bounds how many other-user records form the candidate pool.
	PoolSize int
	// HistoryDepth bounds how many of the requester's recent questions are
	// unioned into the requester tag profile.
	HistoryDepth int
	// SemanticWorkers bounds concurrent semantic-scorer calls in ModeSemantic.
	SemanticWorkers int
	// FetchTimeout bounds each store read.
	FetchTimeout time.Duration
}

// DefaultOptions returns the shipped defaults.
func DefaultOptions() Options {
	return Options{
		Threshold:       0.3,
		Limit:           10,
		PoolSize:        100,
		HistoryDepth:    10,
		SemanticWorkers: 4,
		FetchTimeout:    5 * time.Second,
	}
}

func (o *Options) normalize() {
	d := DefaultOptions()
	if o.Threshold < 0 {
		o.Threshold = d.Threshold
	}
	if o.Limit <= 0 {
		o.Limit = d.Limit
	}
	if o.PoolSize <= 0 {
		o.PoolSize = d.PoolSize
	}
	if o.HistoryDepth <= 0 {
		o.HistoryDepth = d.HistoryDepth
	}
	if o.SemanticWorkers <= 0 {
		o.SemanticWorkers = d.SemanticWorkers
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = d.FetchTimeout
	}
}
