// Package config defines the recognized options of spec §6 as explicit
// structs — no dynamic option bags, per spec §9 Design Notes. Loading
// from environment variables or a CLI is an external collaborator's job
// (spec §1 Non-goals) and is intentionally not implemented here; callers
// construct a *Config directly, typically starting from Default().
package config

import "time"

// OpenAI holds the LLM provider credentials and model selection.
type OpenAI struct {
	APIKey       string // required; spec §6 "Required env: OPENAI_API_KEY"
	Model        string
	Organization string
}

// Server holds the (out-of-scope) transport's listen address, carried
// only so composition roots that do wire up an HTTP/WebSocket surface
// have somewhere to read it from.
type Server struct {
	Host string
	Port int
}

// Memory holds on-disk locations for the memory subsystems' persisted
// state and backups (spec §6 persisted state layout).
type Memory struct {
	DataDir   string
	BackupDir string
}

// Logging configures the ambient slog logger (SPEC_FULL §10).
type Logging struct {
	Level string
	File  string
}

// AI holds every tunable named in spec §6's "AI settings" group.
type AI struct {
	DefaultTemperature        float64
	DefaultMaxTokens          int
	ContextLimit              int
	CacheLimit                int
	MaxSourcesPerQuery        int
	EnableContextPersistence  bool
	ContextPersistenceInterval time.Duration
	EnableContextValidation   bool
	ContextValidationInterval time.Duration
	AutoFixValidationIssues   bool
	StrictValidationMode      bool

	// RecencyWindow unifies the two 30-day windows spec §9's Open
	// Questions flags as independently-configured (source manager
	// recency filter, validator "outdated" threshold). See SPEC_FULL.md
	// §"Open Question resolutions" item 2.
	RecencyWindow time.Duration

	// LLMRetryDelay is the base of the Coordinator's retryDelay·attempt
	// linear backoff on an AiApiError (spec §5 "the Coordinator retries
	// up to 3 times with retryDelay·attempt backoff"). Spec.md never
	// fixes the base delay; see SPEC_FULL.md Open Question resolutions.
	LLMRetryDelay time.Duration
}

// Task holds the priority-model factors of spec §4.9's weighted-sum
// formula. Spec.md names every component but leaves the factor
// constants themselves unspecified beyond the category multiplier
// table; see SPEC_FULL.md Open Question resolutions for the chosen
// defaults.
type Task struct {
	BaseFactor       float64
	UserFactor       float64
	AgingFactor      float64
	UrgencyFactor    float64
	ResourceFactor   float64
	DependencyFactor float64
	StalledBoost     float64
	StalledThreshold time.Duration
	ContextBoost     float64
	FailurePenalty   float64
	DecayRate        float64
	AgingThreshold   time.Duration
	DecayThreshold   time.Duration
}

// Config is the full set of recognized options.
type Config struct {
	OpenAI  OpenAI
	Server  Server
	Memory  Memory
	Logging Logging
	AI      AI
	Task    Task
}

// Default returns a Config populated with every default from spec §6.
// Callers must still set OpenAI.APIKey.
func Default() *Config {
	return &Config{
		OpenAI: OpenAI{
			Model: "gpt-4-1106-preview",
		},
		Server: Server{
			Host: "localhost",
			Port: 8080,
		},
		Memory: Memory{
			DataDir:   "./data/memory",
			BackupDir: "./data/backups",
		},
		Logging: Logging{
			Level: "info",
			File:  "./logs/marduk.log",
		},
		AI: AI{
			DefaultTemperature:         0.7,
			DefaultMaxTokens:           1024,
			ContextLimit:               10,
			CacheLimit:                 200,
			MaxSourcesPerQuery:         5,
			EnableContextPersistence:   true,
			ContextPersistenceInterval: 5 * time.Minute,
			EnableContextValidation:    true,
			ContextValidationInterval:  15 * time.Minute,
			AutoFixValidationIssues:    true,
			StrictValidationMode:       false,
			RecencyWindow:              30 * 24 * time.Hour,
			LLMRetryDelay:              200 * time.Millisecond,
		},
		Task: Task{
			BaseFactor:       1.0,
			UserFactor:       1.0,
			AgingFactor:      1.0,
			UrgencyFactor:    1.0,
			ResourceFactor:   1.0,
			DependencyFactor: 1.0,
			StalledBoost:     1.0,
			StalledThreshold: 5 * time.Minute,
			ContextBoost:     1.0,
			FailurePenalty:   1.0,
			DecayRate:        0.1,
			AgingThreshold:   30 * time.Minute,
			DecayThreshold:   24 * time.Hour,
		},
	}
}
