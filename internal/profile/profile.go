package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is configuration to start the main server.
type Profile struct {
	// Unified LLM configuration (OpenAI-compatible protocol).
	// All providers (openai, deepseek, siliconflow, zai, dashscope, openrouter, ollama)
	// use the same config. The LLM is only used by the optional semantic scorer.
	LLMProvider string // Provider identifier
	LLMAPIKey   string // Unified LLM API key
	LLMBaseURL  string // Unified LLM base URL (optional, has default per provider)
	LLMModel    string // Model name: gpt-4o, deepseek-chat, glm-4.7, etc.
	LLMTimeout  int    // LLM request timeout in seconds (default: 30)

	// Matching engine tunables. The defaults mirror the values the product
	// shipped with; no measured rationale exists for them, so they stay
	// configurable rather than hard-coded.
	MatchThreshold    float64 // Minimum Jaccard score for a candidate to surface (default: 0.3)
	MatchLimit        int     // Maximum matches returned per request (default: 10)
	MatchPoolSize     int     // How many other-user records form the candidate pool (default: 100)
	MatchHistoryDepth int     // How many of the requester's recent questions to load (default: 10)
	SemanticWorkers   int     // Concurrent semantic-scorer calls (default: 4)

	// Server configuration
	Mode        string
	Addr        string
	Port        int
	Data        string
	Driver      string
	DSN         string
	InstanceURL string
	Version     string
}

// Provider default configurations for the LLM.
// Used when LLM_BASE_URL is not explicitly set.
var llmProviderDefaults = map[string]struct {
	BaseURL string
	Model   string
}{
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o",
	},
	"deepseek": {
		BaseURL: "https://api.deepseek.com",
		Model:   "deepseek-chat",
	},
	"siliconflow": {
		BaseURL: "https://api.siliconflow.cn/v1",
		Model:   "Qwen/Qwen2.5-72B-Instruct",
	},
	"zai": {
		BaseURL: "https://open.bigmodel.cn/api/paas/v4",
		Model:   "glm-4.7",
	},
	"dashscope": {
		BaseURL: "https://dashscope.aliyuncs.com/compatible-mode/v1",
		Model:   "qwen-max-latest",
	},
	"openrouter": {
		BaseURL: "https://openrouter.ai/api/v1",
		Model:   "deepseek/deepseek-chat",
	},
	"ollama": {
		BaseURL: "http://localhost:11434",
		Model:   "llama3.1",
	},
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsSemanticEnabled returns true if the LLM-backed semantic scorer can be used.
func (p *Profile) IsSemanticEnabled() bool {
	return p.LLMAPIKey != "" || p.LLMProvider == "ollama"
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvOrDefaultFloat returns environment variable value as float64 or default value.
func getEnvOrDefaultFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	// Unified LLM configuration
	p.LLMProvider = getEnvOrDefault("TAROTLINK_LLM_PROVIDER", "openai")
	p.LLMAPIKey = getEnvOrDefault("TAROTLINK_LLM_API_KEY", "")
	p.LLMBaseURL = getEnvOrDefault("TAROTLINK_LLM_BASE_URL", "")
	p.LLMModel = getEnvOrDefault("TAROTLINK_LLM_MODEL", "")
	p.LLMTimeout = getEnvOrDefaultInt("TAROTLINK_LLM_TIMEOUT_SECONDS", 30)

	// Validate and apply provider defaults if not explicitly set
	if p.LLMProvider != "" {
		if _, ok := llmProviderDefaults[p.LLMProvider]; !ok {
			slog.Warn("unknown LLM provider, using default: openai", "provider", p.LLMProvider)
			p.LLMProvider = "openai"
		}
	}
	if p.LLMBaseURL == "" || p.LLMModel == "" {
		if defaults, ok := llmProviderDefaults[p.LLMProvider]; ok {
			if p.LLMBaseURL == "" {
				p.LLMBaseURL = defaults.BaseURL
			}
			if p.LLMModel == "" {
				p.LLMModel = defaults.Model
			}
		}
	}

	// Matching tunables
	p.MatchThreshold = getEnvOrDefaultFloat("TAROTLINK_MATCH_THRESHOLD", 0.3)
	p.MatchLimit = getEnvOrDefaultInt("TAROTLINK_MATCH_LIMIT", 10)
	p.MatchPoolSize = getEnvOrDefaultInt("TAROTLINK_MATCH_POOL_SIZE", 100)
	p.MatchHistoryDepth = getEnvOrDefaultInt("TAROTLINK_MATCH_HISTORY_DEPTH", 10)
	p.SemanticWorkers = getEnvOrDefaultInt("TAROTLINK_SEMANTIC_WORKERS", 4)
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "tarotlink")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/tarotlink"
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}
	p.Data = dataDir

	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("tarotlink_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile) + "?_loc=auto"
	}

	if p.MatchThreshold < 0 || p.MatchThreshold >= 1 {
		return errors.Errorf("match threshold must be in [0, 1), got %v", p.MatchThreshold)
	}
	if p.MatchLimit <= 0 {
		return errors.Errorf("match limit must be positive, got %d", p.MatchLimit)
	}
	if p.MatchPoolSize <= 0 {
		return errors.Errorf("match pool size must be positive, got %d", p.MatchPoolSize)
	}

	return nil
}
