package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// Label is the single optional label of a counter series.
type Label struct {
	Key   string
	Value string
}

// CounterDef maps one goSession counter onto an exported series. Defs sharing
// a Name form one metric family distinguished by Label.
type CounterDef struct {
	ID    goSession.MetricID
	Name  string
	Help  string
	Label Label
}

// HistogramDef maps one goSession histogram onto an exported histogram.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// AuditDropped names the dispatcher backpressure counter.
const (
	AuditDroppedName = "gosession_audit_dropped_total"
	AuditDroppedHelp = "Audit events dropped because the dispatcher buffer was full."
)

// CounterDefs lists every exported counter. Series of one family are adjacent.
var CounterDefs = []CounterDef{
	{ID: goSession.MetricSessionMinted, Name: "gosession_session_minted_total", Help: "Session identities minted."},
	{ID: goSession.MetricSessionResolved, Name: "gosession_session_resolved_total", Help: "Tokens that decoded and matched the client address."},
	{ID: goSession.MetricSessionCacheMiss, Name: "gosession_session_cache_miss_total", Help: "Resolved tokens with no cache entry."},
	{ID: goSession.MetricTokenMalformed, Name: "gosession_token_rejected_total", Help: "Rejected session tokens by reason.", Label: Label{Key: "reason", Value: "malformed"}},
	{ID: goSession.MetricTokenForged, Name: "gosession_token_rejected_total", Help: "Rejected session tokens by reason.", Label: Label{Key: "reason", Value: "authentication"}},
	{ID: goSession.MetricTokenAddressMismatch, Name: "gosession_token_rejected_total", Help: "Rejected session tokens by reason.", Label: Label{Key: "reason", Value: "address_mismatch"}},
	{ID: goSession.MetricCacheReadError, Name: "gosession_cache_errors_total", Help: "Failed or timed-out cache calls by direction.", Label: Label{Key: "op", Value: "read"}},
	{ID: goSession.MetricCacheWriteError, Name: "gosession_cache_errors_total", Help: "Failed or timed-out cache calls by direction.", Label: Label{Key: "op", Value: "write"}},
	{ID: goSession.MetricSessionPersisted, Name: "gosession_session_persisted_total", Help: "Successful session writes."},
	{ID: goSession.MetricSessionDestroyed, Name: "gosession_session_destroyed_total", Help: "Sessions destroyed on logout."},
	{ID: goSession.MetricNonceIssued, Name: "gosession_nonce_issued_total", Help: "OAuth state nonces issued."},
	{ID: goSession.MetricOAuthLoginSuccess, Name: "gosession_oauth_callbacks_total", Help: "OAuth callbacks by result.", Label: Label{Key: "result", Value: "success"}},
	{ID: goSession.MetricOAuthStateMismatch, Name: "gosession_oauth_callbacks_total", Help: "OAuth callbacks by result.", Label: Label{Key: "result", Value: "state_mismatch"}},
	{ID: goSession.MetricOAuthExchangeFailure, Name: "gosession_oauth_callbacks_total", Help: "OAuth callbacks by result.", Label: Label{Key: "result", Value: "exchange_failed"}},
	{ID: goSession.MetricUserResolved, Name: "gosession_user_resolved_total", Help: "Sessions resolved to a user record."},
	{ID: goSession.MetricUserMissing, Name: "gosession_user_missing_total", Help: "User lookups that found no user."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricGetStoreLatency, Name: "gosession_get_store_latency_seconds", Help: "GetStore latency including the cache load."},
}

// BucketCount is the number of histogram buckets, +Inf included.
const BucketCount = 8

// HistogramBounds are the bucket upper bounds in seconds as rendered in the
// Prometheus le label.
var HistogramBounds = [BucketCount]string{
	"0.001",
	"0.0025",
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"+Inf",
}

// HistogramBoundSuffix are HistogramBounds spelled for instrument names.
var HistogramBoundSuffix = [BucketCount]string{
	"0_001",
	"0_0025",
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"inf",
}

// Cumulative turns per-bucket counts into cumulative counts. Missing buckets
// count as zero and extra buckets are ignored.
func Cumulative(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := range out {
		if i < len(raw) {
			running += raw[i]
		}
		out[i] = running
	}
	return out
}
