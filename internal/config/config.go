package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all logsift configuration for one run.
type Config struct {
	TimeRange   string        // "all-data", "N-day", "N-week", "1-month"
	Granularity time.Duration // diagnosis window width
	Debug       bool          // emit intermediate artifacts
	LogLevel    string
	OutputDir   string

	Ingest     IngestConfig
	Miner      MinerConfig
	Classifier ClassifierConfig

	// Optional overrides loaded from the engine file. Empty slices mean
	// "use the package defaults".
	TimestampPatterns []TimestampPattern
	Signals           []LabelConfig
	Faults            []LabelConfig
}

// IngestConfig holds file discovery and normalization settings.
type IngestConfig struct {
	ProcessLogFiles bool
	ProcessTxtFiles bool
	// Field names probed when a line parses as a JSON object.
	JSONTimeFields    []string
	JSONMessageFields []string
}

// MinerConfig holds template-mining tuning knobs.
type MinerConfig struct {
	SimilarityThreshold float64 // fraction of identical positions required to match
	Depth               int     // token positions used for tree routing
	MaxChildren         int     // fan-out limit per tree node
	MaxTokens           int     // tokens beyond this do not participate in routing
}

// ClassifierConfig holds scorer selection and model settings.
type ClassifierConfig struct {
	Variant             string // "similarity", "zero_shot", "custom"
	ModelPath           string
	VocabPath           string
	ProjectionPath      string
	EntailModelPath     string
	ConfidenceThreshold float64
	BatchSize           int
	Parallelism         int
}

// TimestampPattern pairs a prefix regex with the Go layout used to parse
// the matched text.
type TimestampPattern struct {
	Pattern string `yaml:"pattern"`
	Layout  string `yaml:"layout"`
}

// LabelConfig is one vocabulary entry from the engine file.
type LabelConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		TimeRange:   getenv("LOGSIFT_TIME_RANGE", "all-data"),
		Granularity: getenvDuration("LOGSIFT_WINDOW", 30*time.Second),
		Debug:       getenvBool("LOGSIFT_DEBUG", false),
		LogLevel:    getenv("LOGSIFT_LOG_LEVEL", "info"),
		OutputDir:   getenv("LOGSIFT_OUTPUT_DIR", "out"),
		Ingest: IngestConfig{
			ProcessLogFiles:   getenvBool("LOGSIFT_PROCESS_LOG", true),
			ProcessTxtFiles:   getenvBool("LOGSIFT_PROCESS_TXT", false),
			JSONTimeFields:    []string{"timestamp", "time", "ts", "@timestamp"},
			JSONMessageFields: []string{"message", "msg", "log"},
		},
		Miner: MinerConfig{
			SimilarityThreshold: getenvFloat("LOGSIFT_MINER_THRESHOLD", 0.5),
			Depth:               4,
			MaxChildren:         100,
			MaxTokens:           128,
		},
		Classifier: ClassifierConfig{
			Variant:             getenv("LOGSIFT_CLASSIFIER", "similarity"),
			ModelPath:           os.Getenv("LOGSIFT_MODEL_PATH"),
			VocabPath:           os.Getenv("LOGSIFT_VOCAB_PATH"),
			ProjectionPath:      os.Getenv("LOGSIFT_PROJECTION_PATH"),
			EntailModelPath:     os.Getenv("LOGSIFT_ENTAIL_MODEL_PATH"),
			ConfidenceThreshold: getenvFloat("LOGSIFT_CONFIDENCE_THRESHOLD", 0),
			BatchSize:           getenvInt("LOGSIFT_BATCH_SIZE", 32),
			Parallelism:         getenvInt("LOGSIFT_PARALLELISM", 4),
		},
	}
}

// engineFile mirrors the YAML engine configuration file.
type engineFile struct {
	TimestampPatterns []TimestampPattern `yaml:"timestamp_patterns"`
	Signals           []LabelConfig      `yaml:"signals"`
	Faults            []LabelConfig      `yaml:"faults"`
	Miner             struct {
		SimilarityThreshold *float64 `yaml:"similarity_threshold"`
		Depth               *int     `yaml:"depth"`
		MaxChildren         *int     `yaml:"max_children"`
		MaxTokens           *int     `yaml:"max_tokens"`
	} `yaml:"miner"`
	Ingest struct {
		JSONTimeFields    []string `yaml:"json_time_fields"`
		JSONMessageFields []string `yaml:"json_message_fields"`
	} `yaml:"ingest"`
}

// MergeFile overlays settings from a YAML engine file onto the config.
// Only fields present in the file are touched.
func (c *Config) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	var f engineFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	if len(f.TimestampPatterns) > 0 {
		c.TimestampPatterns = f.TimestampPatterns
	}
	if len(f.Signals) > 0 {
		c.Signals = f.Signals
	}
	if len(f.Faults) > 0 {
		c.Faults = f.Faults
	}
	if f.Miner.SimilarityThreshold != nil {
		c.Miner.SimilarityThreshold = *f.Miner.SimilarityThreshold
	}
	if f.Miner.Depth != nil {
		c.Miner.Depth = *f.Miner.Depth
	}
	if f.Miner.MaxChildren != nil {
		c.Miner.MaxChildren = *f.Miner.MaxChildren
	}
	if f.Miner.MaxTokens != nil {
		c.Miner.MaxTokens = *f.Miner.MaxTokens
	}
	if len(f.Ingest.JSONTimeFields) > 0 {
		c.Ingest.JSONTimeFields = f.Ingest.JSONTimeFields
	}
	if len(f.Ingest.JSONMessageFields) > 0 {
		c.Ingest.JSONMessageFields = f.Ingest.JSONMessageFields
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
