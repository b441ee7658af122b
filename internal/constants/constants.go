// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Descriptor constants
const (
	// DescriptorLength is the number of components in a face descriptor
	// produced by the browser capture pipeline.
	DescriptorLength = 128
)

// Face matching constants
const (
	// DefaultMatchThreshold is the default maximum Euclidean distance at which
	// a probe descriptor is accepted as an enrolled employee.
	// Every matching call site reads the configured value (MATCH_THRESHOLD);
	// this is only the fallback when neither policy.yaml nor env sets it.
	DefaultMatchThreshold = 0.6

	// DefaultCandidateLimit is the number of ranked candidates returned by
	// diagnostic endpoints and the match command
	DefaultCandidateLimit = 5
)

// Pairing policy defaults
const (
	// DefaultCheckInLookback bounds the search for an open session when checking in
	DefaultCheckInLookback = 12 * time.Hour

	// DefaultCheckOutLookback bounds the search for an open session when checking out
	DefaultCheckOutLookback = 16 * time.Hour

	// DefaultCheckOutRequiresCheckInWithin is how recent a check-in must be for a check-out
	DefaultCheckOutRequiresCheckInWithin = 24 * time.Hour

	// DefaultMinEventInterval is the rate limit between two events of the same type
	DefaultMinEventInterval = 60 * time.Second

	// DefaultRegularDayHours is the number of hours counted as regular time per day
	DefaultRegularDayHours = 8.0
)

// Roster constants
const (
	// DefaultRosterCacheTTL is how long a fetched roster is reused between requests
	DefaultRosterCacheTTL = 5 * time.Second
)

// Processing constants
const (
	// WorkerPoolSize is the default number of parallel workers for roster import
	WorkerPoolSize = 10
)

// Event sources
const (
	SourceFace   = "face"
	SourceManual = "manual"
	SourceImport = "import"
)
