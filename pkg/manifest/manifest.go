// Package manifest provides loading and validation of crawl-default manifests.
//
// A manifest is an optional YAML or JSON file that supplies default crawl
// parameters (seed wrestler, depth limit, weight-class scope, date range,
// store path) so that a crawl invocation does not need to repeat long flag
// lists on every run.
//
// Manifests are validated against an embedded JSON Schema before use, the
// same way the teacher's job manifests are schema-validated before a crawl
// executes.
//
// Example manifest (YAML):
//
//	version: "1.0"
//	seed: 064ad7f4-8d16-4dd2-94b1-1dd1c45c3832
//	depth_limit: 3
//	weight_classes:
//	  - "133"
//	  - "141"
//	start_date: "2024-01-01"
//	end_date: "2024-12-31"
//	store_path: data.db
//	rate_limit: 5
package manifest

// Manifest represents a validated crawl-defaults manifest.
type Manifest struct {
	// Schema is an optional JSON Schema reference for editor support.
	Schema string `json:"$schema,omitempty" yaml:"$schema,omitempty"`

	// Version is the manifest schema version. Must be "1.0".
	Version string `json:"version" yaml:"version"`

	// Seed is the wrestler ID the crawl starts from.
	Seed string `json:"seed,omitempty" yaml:"seed,omitempty"`

	// DepthLimit bounds the BFS opponent-graph walk.
	DepthLimit int `json:"depth_limit,omitempty" yaml:"depth_limit,omitempty"`

	// Reset clears prior crawler state before starting.
	Reset bool `json:"reset,omitempty" yaml:"reset,omitempty"`

	// WeightClasses restricts ingested matches, if non-empty.
	WeightClasses []string `json:"weight_classes,omitempty" yaml:"weight_classes,omitempty"`

	// StartDate/EndDate bound ingested match occurrence dates, in
	// "2006-01-02" form. Empty means unbounded.
	StartDate string `json:"start_date,omitempty" yaml:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty" yaml:"end_date,omitempty"`

	// StorePath is the sqlite store file the crawl reads from and writes to.
	StorePath string `json:"store_path,omitempty" yaml:"store_path,omitempty"`

	// RateLimit caps outbound Fetcher requests per second (0 = unlimited).
	RateLimit float64 `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`

	// Tau is a Glicko-2 system volatility constant. It is schema-validated
	// and defaulted by ApplyDefaults; neither crawl nor rate reads it.
	Tau float64 `json:"tau,omitempty" yaml:"tau,omitempty"`
}

// Default values for optional configuration fields.
const (
	// DefaultVersion is the current manifest schema version.
	DefaultVersion = "1.0"

	// DefaultDepthLimit mirrors crawler.DefaultConfig's depth limit.
	DefaultDepthLimit = 3

	// DefaultRateLimit is the default rate limit (0 = unlimited).
	DefaultRateLimit = 0.0

	// DefaultTau is the default Glicko-2 system volatility constant.
	DefaultTau = 0.5
)

// ApplyDefaults fills in default values for optional fields.
//
// This should be called after loading and validating the manifest to ensure
// all optional fields have sensible values.
func (m *Manifest) ApplyDefaults() {
	if m.DepthLimit == 0 {
		m.DepthLimit = DefaultDepthLimit
	}
	if m.Tau == 0 {
		m.Tau = DefaultTau
	}
	// RateLimit: 0 is a valid value (unlimited), so no default needed.
}
