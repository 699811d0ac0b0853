// Package config loads Cerno's YAML configuration and applies environment
// variable overrides, following the same Load/DefaultConfig/applyEnvOverrides
// shape the teacher uses.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"cerno/internal/logging"
)

// Config holds all Cerno configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	Store     StoreConfig     `yaml:"store"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Threshold ThresholdConfig `yaml:"threshold"`
	Logging   LoggingConfig   `yaml:"logging"`
	Limits    LimitsConfig    `yaml:"limits"`
}

// StoreConfig controls the relational/vector store connection.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url"`
	MaxFileSize int64  `yaml:"max_file_size"` // bytes; parser rejects files larger than this
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"` // "ollama" | "genai"
	OllamaEndpoint string `yaml:"ollama_endpoint"`
	OllamaModel    string `yaml:"ollama_model"`
	GenAIAPIKey    string `yaml:"-"` // never serialized; env-only
	GenAIModel     string `yaml:"genai_model"`
	TaskType       string `yaml:"task_type"`
	CacheSize      int    `yaml:"cache_size"`
	BatchFlushMS   int    `yaml:"batch_flush_ms"`
	BatchCap       int    `yaml:"batch_cap"`
}

// ThresholdConfig holds every numeric knob named throughout the pipeline.
type ThresholdConfig struct {
	SemanticThreshold           float64 `yaml:"semantic_threshold"`
	ClusterThreshold            float64 `yaml:"cluster_threshold"`
	ContradictionLow            float64 `yaml:"contradiction_low"`
	ContradictionHigh           float64 `yaml:"contradiction_high"`
	MinConfidence               float64 `yaml:"min_confidence"`
	MinObservations             int     `yaml:"min_observations"`
	MinAgeDays                  int     `yaml:"min_age_days"`
	HalfLifeDays                float64 `yaml:"half_life_days"`
	PruneThreshold              float64 `yaml:"prune_threshold"`
	DecayThreshold               float64 `yaml:"decay_threshold"`
	AlreadyRepresentedThreshold float64 `yaml:"already_represented_threshold"`
	MinHybridScore               float64 `yaml:"min_hybrid_score"`
	MaxPrinciples                int     `yaml:"max_principles"`

	RankConfidenceWeight   float64 `yaml:"rank_confidence_weight"`
	RankFrequencyWeight    float64 `yaml:"rank_frequency_weight"`
	RankRecencyWeight      float64 `yaml:"rank_recency_weight"`
	RankSourceQualityWeight float64 `yaml:"rank_source_quality_weight"`
	RankLinkWeight          float64 `yaml:"rank_link_weight"`

	HybridSimilarityWeight float64 `yaml:"hybrid_similarity_weight"`
	HybridRankWeight       float64 `yaml:"hybrid_rank_weight"`
	HybridDomainWeight     float64 `yaml:"hybrid_domain_weight"`
}

// LoggingConfig mirrors internal/logging's config shape.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"`
	JSONFormat bool            `yaml:"json_format"`
	Categories map[string]bool `yaml:"categories"`
}

// LimitsConfig bounds the unbounded scans and concurrency fan-outs named in
// the concurrency & resource model.
type LimitsConfig struct {
	ClusterLoadCap         int `yaml:"cluster_load_cap"`
	ClusterNeighborCap     int `yaml:"cluster_neighbor_cap"`
	ContradictionCandidateCap int `yaml:"contradiction_candidate_cap"`
	ConfidenceScanCap      int `yaml:"confidence_scan_cap"`
	PromotionCandidateCap  int `yaml:"promotion_candidate_cap"`
	LifecycleScanCap       int `yaml:"lifecycle_scan_cap"`
	LinkerCandidateCap     int `yaml:"linker_candidate_cap"`
	RetrieverNearestCap    int `yaml:"retriever_nearest_cap"`
	TaskFanoutCap          int `yaml:"task_fanout_cap"`
	AccumulatorCooldownSec int `yaml:"accumulator_cooldown_sec"`
}

// DefaultConfig returns Cerno's default configuration, matching every
// numeric default named in the component design.
func DefaultConfig() *Config {
	return &Config{
		Name:    "cerno",
		Version: "0.1.0",

		Store: StoreConfig{
			DatabaseURL: "file:.cerno/cerno.db",
			MaxFileSize: 1 << 20, // 1 MiB
		},

		Embedding: EmbeddingConfig{
			Provider:       "ollama",
			OllamaEndpoint: "http://localhost:11434",
			OllamaModel:    "embeddinggemma",
			GenAIModel:     "gemini-embedding-001",
			TaskType:       "SEMANTIC_SIMILARITY",
			CacheSize:      10000,
			BatchFlushMS:   500,
			BatchCap:       20,
		},

		Threshold: ThresholdConfig{
			SemanticThreshold:           0.92,
			ClusterThreshold:            0.88,
			ContradictionLow:            0.5,
			ContradictionHigh:           0.85,
			MinConfidence:               0.7,
			MinObservations:             3,
			MinAgeDays:                  7,
			HalfLifeDays:                90,
			PruneThreshold:              0.10,
			DecayThreshold:              0.15,
			AlreadyRepresentedThreshold: 0.85,
			MinHybridScore:              0.3,
			MaxPrinciples:               20,

			RankConfidenceWeight:    0.35,
			RankFrequencyWeight:     0.25,
			RankRecencyWeight:       0.20,
			RankSourceQualityWeight: 0.15,
			RankLinkWeight:          0.05,

			HybridSimilarityWeight: 0.50,
			HybridRankWeight:       0.30,
			HybridDomainWeight:     0.20,
		},

		Logging: LoggingConfig{
			Level: "info",
		},

		Limits: LimitsConfig{
			ClusterLoadCap:            5000,
			ClusterNeighborCap:        100,
			ContradictionCandidateCap: 20,
			ConfidenceScanCap:         10000,
			PromotionCandidateCap:     10000,
			LifecycleScanCap:          10000,
			LinkerCandidateCap:        20,
			RetrieverNearestCap:       100,
			TaskFanoutCap:             20,
			AccumulatorCooldownSec:    30,
		},
	}
}

// Load reads configuration from a YAML file, falling back to defaults when
// the file does not exist, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	logging.BootDebug("Loading config from: %s", path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Boot("Config file not found, using defaults: %s", path)
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		logging.BootError("Failed to read config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		logging.BootError("Failed to parse config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	logging.Boot("Config loaded: provider=%s db=%s", cfg.Embedding.Provider, cfg.Store.DatabaseURL)
	return cfg, nil
}

// Save writes configuration to a YAML file, creating parent directories.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides layers environment variables over file/defaults,
// following the teacher's env-var precedence pattern.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CERNO_DATABASE_URL"); v != "" {
		c.Store.DatabaseURL = v
	}
	if v := os.Getenv("CERNO_EMBEDDING_PROVIDER"); v != "" {
		c.Embedding.Provider = v
	}
	if v := os.Getenv("OLLAMA_ENDPOINT"); v != "" {
		c.Embedding.OllamaEndpoint = v
	}
	if v := os.Getenv("OLLAMA_EMBEDDING_MODEL"); v != "" {
		c.Embedding.OllamaModel = v
	}
	if v := os.Getenv("GENAI_API_KEY"); v != "" {
		c.Embedding.GenAIAPIKey = v
		if c.Embedding.Provider == "" || c.Embedding.Provider == "ollama" {
			c.Embedding.Provider = "genai"
		}
	}
	if v := os.Getenv("CERNO_MIN_CONFIDENCE"); v != "" {
		if f, err := parseFloat(v); err == nil {
			c.Threshold.MinConfidence = f
		}
	}
	switch os.Getenv("CERNO_ENV") {
	case "dev", "test":
		if os.Getenv("CERNO_MIN_CONFIDENCE") == "" {
			c.Threshold.MinConfidence = 0.3
		}
		c.Logging.DebugMode = true
		c.Logging.Level = "debug"
	case "production":
		if os.Getenv("CERNO_MIN_CONFIDENCE") == "" {
			c.Threshold.MinConfidence = 0.7
		}
	}
}

func parseFloat(s string) (float64, error) {
	var f float64
	_, err := fmt.Sscanf(s, "%g", &f)
	return f, err
}
