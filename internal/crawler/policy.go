package crawler

import (
	"strings"
	"time"
)

// Decision is the policy's classification of one fetch attempt.
type Decision int

// Decisions returned by Policy.Classify.
const (
	// DecisionAccept means the response is a page; extract and record it.
	DecisionAccept Decision = iota

	// DecisionRetry means the attempt failed transiently; retry after
	// the verdict's Delay.
	DecisionRetry

	// DecisionSkip means the URL is permanently skipped; record a
	// SkipRecord with the verdict's Reason and never refetch.
	DecisionSkip

	// DecisionFail means the retry budget is exhausted; record a
	// FailureRecord and never refetch.
	DecisionFail
)

// String returns the decision name for logging.
func (d Decision) String() string {
	switch d {
	case DecisionAccept:
		return "accept"
	case DecisionRetry:
		return "retry"
	case DecisionSkip:
		return "skip"
	case DecisionFail:
		return "fail"
	default:
		return "unknown"
	}
}

// Outcome is the raw result of one fetch attempt, as seen by the policy.
// Exactly one of StatusCode or Err is meaningful: transport errors carry
// no status code, and responses carry no error.
type Outcome struct {
	// StatusCode is the HTTP status code, or 0 for transport errors.
	StatusCode int

	// Err is the transport error, or nil when a response was received.
	Err error
}

// Verdict is the policy's decision for one attempt plus the data the
// orchestrator needs to act on it.
type Verdict struct {
	// Decision is the classification.
	Decision Decision

	// Reason is the skip reason; set only for DecisionSkip.
	Reason string

	// StatusCode is the classified status code; carried into the
	// SkipRecord so reports show what triggered the skip.
	StatusCode int

	// Delay is the backoff to wait before the next attempt;
	// set only for DecisionRetry.
	Delay time.Duration
}

// ReasonRobotsBlocked is the skip reason for robots.txt disallows.
const ReasonRobotsBlocked = "robots.txt blocked"

// reasonAuthTransport is the skip reason for transport errors whose message
// indicates an authorization problem (no status code available).
const reasonAuthTransport = "Authorization error – Access denied"

// skipReasons is the fixed status-to-reason vocabulary.
// The texts are part of the output contract: the skip histogram keys on
// them, so they must not drift between releases.
var skipReasons = map[int]string{
	401: "Unauthorized – Authentication required",
	403: "Forbidden – Access denied",
	407: "Proxy authentication required",
	429: "Too many requests – Rate limited",
	451: "Unavailable for legal reasons",
	404: "Not found",
	410: "Gone",
	500: "Internal server error",
	502: "Bad gateway",
	503: "Service unavailable",
	504: "Gateway timeout",
}

// authKeywords mark transport error messages as authorization failures
// even without a status code.
var authKeywords = []string{
	"unauthorized",
	"forbidden",
	"access denied",
	"authentication",
	"permission",
}

// Policy decides, for every fetch attempt, whether to accept the response,
// retry with backoff, permanently skip the URL, or record a failure.
//
// Design decision: Classify is a pure function of (outcome, retries used)
// and the immutable mode flags. It performs no I/O and holds no per-URL
// state, so the whole decision table is unit-testable without a network.
// The orchestrator owns the retry loop; the policy only hands out verdicts.
type Policy struct {
	// maxRetries is the retry budget per URL.
	maxRetries int

	// baseDelay is the backoff unit; the delay before retry n is
	// baseDelay * n (1-indexed).
	baseDelay time.Duration

	// skipUnauthorized enables permanent skips for classified statuses.
	skipUnauthorized bool

	// ignoreRestrictions disables all skip classification: every
	// outcome is accepted or, after retries, failed.
	ignoreRestrictions bool
}

// NewPolicy creates a Policy with the given retry budget, backoff unit,
// and mode flags.
func NewPolicy(maxRetries int, baseDelay time.Duration, skipUnauthorized, ignoreRestrictions bool) *Policy {
	return &Policy{
		maxRetries:         maxRetries,
		baseDelay:          baseDelay,
		skipUnauthorized:   skipUnauthorized,
		ignoreRestrictions: ignoreRestrictions,
	}
}

// Classify maps one fetch attempt to a verdict. retries is the number of
// retries already spent on this URL (0 for the first attempt).
//
// Precedence follows the decision table:
//  1. Successful responses (2xx) are always accepted.
//  2. With ignoreRestrictions, everything else retries then fails;
//     no skip classification happens in this mode.
//  3. With skipUnauthorized, classified statuses (401, 403, 404, 407,
//     410, 429, 451, 500, 502-504) and auth-keyword transport errors
//     skip immediately with zero retries.
//  4. Everything else retries up to the budget, then fails.
//
// Note: without skipUnauthorized, clearly permanent statuses such as 404
// deliberately fall through to the generic retry path. This matches the
// original behavior and keeps the two modes' outputs comparable.
func (p *Policy) Classify(outcome Outcome, retries int) Verdict {
	if outcome.Err == nil && outcome.StatusCode >= 200 && outcome.StatusCode < 300 {
		return Verdict{Decision: DecisionAccept, StatusCode: outcome.StatusCode}
	}

	if p.ignoreRestrictions {
		return p.retryOrFail(outcome, retries)
	}

	if p.skipUnauthorized {
		if reason, ok := skipReasons[outcome.StatusCode]; ok {
			return Verdict{
				Decision:   DecisionSkip,
				Reason:     reason,
				StatusCode: outcome.StatusCode,
			}
		}
		if outcome.Err != nil && isAuthError(outcome.Err) {
			return Verdict{Decision: DecisionSkip, Reason: reasonAuthTransport}
		}
	}

	return p.retryOrFail(outcome, retries)
}

// retryOrFail spends one unit of the retry budget or, when it is gone,
// resolves the URL to a permanent failure.
func (p *Policy) retryOrFail(outcome Outcome, retries int) Verdict {
	if retries < p.maxRetries {
		return Verdict{
			Decision:   DecisionRetry,
			StatusCode: outcome.StatusCode,
			Delay:      p.baseDelay * time.Duration(retries+1),
		}
	}
	return Verdict{Decision: DecisionFail, StatusCode: outcome.StatusCode}
}

// isAuthError reports whether a transport error message indicates an
// authorization failure.
func isAuthError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, keyword := range authKeywords {
		if strings.Contains(msg, keyword) {
			return true
		}
	}
	return false
}
