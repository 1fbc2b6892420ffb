package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	Env      string
	Provider ProviderConfig
	Models   ModelsConfig
	Budget   BudgetConfig
	Draft    DraftConfig
	Artifact ArtifactConfig
	RunStore RunStoreConfig
}

type ProviderConfig struct {
	// Kind selects the capability provider: "ollama", "gemini" or "fake".
	Kind           string
	OllamaEndpoint string
	GeminiModel    string
	Timeout        time.Duration
	RateRPS        float64
	RetryAttempts  int
}

type ModelsConfig struct {
	Candidates []string
	Fallback   string
}

type BudgetConfig struct {
	ReserveGB       float64
	UsableRatio     float64
	MaxActiveModels int
	DraftMaxModels  int
}

type DraftConfig struct {
	Workers            int
	MinParagraphs      int
	TotalChars         int
	ContinuationRounds int
	SectionRetries     int
	StrictBlocks       bool
	StrictMinimums     bool
	ParallelModels     bool
	// DefaultSections overrides the built-in outline labels.
	DefaultSections []string
}

type ArtifactConfig struct {
	Enabled   bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// ReferencePrefix is the object prefix drafting reference material is
	// read from.
	ReferencePrefix string
}

type RunStoreConfig struct {
	Path string
	DSN  string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port := flag.String("port", ":8082", "server port")
	flag.Parse()

	if envPort := os.Getenv("PORT"); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			*port = envPort
		} else {
			*port = ":" + envPort
		}
	}

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	return &Config{
		Port:     *port,
		Env:      env,
		Provider: loadProviderConfig(),
		Models:   loadModelsConfig(),
		Budget:   loadBudgetConfig(),
		Draft:    loadDraftConfig(),
		Artifact: loadArtifactConfig(env),
		RunStore: RunStoreConfig{
			Path: firstNonEmpty(strings.TrimSpace(os.Getenv("RUN_STORE_PATH")), "runs.json"),
			DSN:  strings.TrimSpace(os.Getenv("RUN_STORE_PG_DSN")),
		},
	}, nil
}

func loadProviderConfig() ProviderConfig {
	timeout := time.Duration(envInt("PROVIDER_TIMEOUT_SECONDS", 300)) * time.Second
	return ProviderConfig{
		Kind:           firstNonEmpty(strings.ToLower(strings.TrimSpace(os.Getenv("PROVIDER"))), "ollama"),
		OllamaEndpoint: firstNonEmpty(strings.TrimSpace(os.Getenv("OLLAMA_ENDPOINT")), "http://localhost:11434"),
		GeminiModel:    firstNonEmpty(strings.TrimSpace(os.Getenv("GEMINI_MODEL")), "gemini-2.5-flash"),
		Timeout:        timeout,
		RateRPS:        envFloat("PROVIDER_RPS", 0),
		RetryAttempts:  envInt("PROVIDER_RETRIES", 2),
	}
}

func loadModelsConfig() ModelsConfig {
	var candidates []string
	for _, m := range strings.Split(os.Getenv("MODEL_CANDIDATES"), ",") {
		if m = strings.TrimSpace(m); m != "" {
			candidates = append(candidates, m)
		}
	}
	return ModelsConfig{
		Candidates: candidates,
		Fallback:   firstNonEmpty(strings.TrimSpace(os.Getenv("MODEL_FALLBACK")), "llama3"),
	}
}

func loadBudgetConfig() BudgetConfig {
	return BudgetConfig{
		ReserveGB:       envFloat("BUDGET_RESERVE_GB", 5.0),
		UsableRatio:     envFloat("BUDGET_USABLE_RATIO", 0.6),
		MaxActiveModels: envInt("BUDGET_MAX_ACTIVE_MODELS", 2),
		DraftMaxModels:  envInt("BUDGET_DRAFT_MAX_MODELS", 1),
	}
}

func loadDraftConfig() DraftConfig {
	return DraftConfig{
		Workers:            envInt("DRAFT_WORKERS", 3),
		MinParagraphs:      envInt("DRAFT_MIN_PARAGRAPHS", 3),
		TotalChars:         envInt("DRAFT_TOTAL_CHARS", 6000),
		ContinuationRounds: envInt("DRAFT_CONTINUATION_ROUNDS", 2),
		SectionRetries:     envInt("DRAFT_SECTION_RETRIES", 2),
		StrictBlocks:       envBool("DRAFT_STRICT_BLOCKS", false),
		StrictMinimums:     envBool("DRAFT_STRICT_MINIMUMS", false),
		ParallelModels:     envBool("DRAFT_PARALLEL_MODELS", false),
		DefaultSections:    splitList(os.Getenv("DRAFT_DEFAULT_SECTIONS")),
	}
}

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func loadArtifactConfig(env string) ArtifactConfig {
	endpoint := resolveArtifactEndpoint(env)
	return ArtifactConfig{
		Enabled:         endpoint != "",
		Endpoint:        endpoint,
		Region:          firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_REGION")), "us-east-1"),
		AccessKey:       firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey:       firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:          firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_BUCKET")), "reportify-blocks"),
		UseSSL:          resolveArtifactUseSSL(env),
		ReferencePrefix: firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_REFERENCE_PREFIX")), "reference/"),
	}
}

func resolveArtifactEndpoint(env string) string {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return strings.TrimSpace(os.Getenv("ARTIFACT_MINIO_ENDPOINT"))
	}
	return strings.TrimSpace(os.Getenv("ARTIFACT_S3_ENDPOINT"))
}

func resolveArtifactUseSSL(env string) bool {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return false
	}
	raw := strings.TrimSpace(os.Getenv("ARTIFACT_S3_USE_SSL"))
	if raw == "" {
		return true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return v
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
