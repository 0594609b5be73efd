package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 项目配置结构体
type Config struct {
	LLM         LLMConfig         `yaml:"llm"`
	Search      SearchConfig      `yaml:"search"`
	Research    ResearchConfig    `yaml:"research"`
	Writer      WriterConfig      `yaml:"writer"`
	Log         LogConfig         `yaml:"log"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	DB          DBConfig          `yaml:"db"`
	Redis       RedisConfig       `yaml:"redis"`
	Minio       MinioConfig       `yaml:"minio"`
	Output      OutputConfig      `yaml:"output"`
	Server      ServerConfig      `yaml:"server"`
}

// LLMConfig LLM 相关配置
type LLMConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

// SearchConfig 搜索相关配置
type SearchConfig struct {
	Provider       string           `yaml:"provider"`
	NewsProvider   string           `yaml:"news_provider"`
	Timeout        int              `yaml:"timeout"` // 单次查询超时（秒）
	MaxRetries     int              `yaml:"max_retries"`
	RetryBackoffMS int              `yaml:"retry_backoff_ms"`
	Tavily         TavilyConfig     `yaml:"tavily"`
	SearXNG        SearXNGConfig    `yaml:"searxng"`
	DuckDuckGo     DuckDuckGoConfig `yaml:"duckduckgo"`
	GNews          GNewsConfig      `yaml:"gnews"`
}

// TavilyConfig Tavily 配置
type TavilyConfig struct {
	APIKey string `yaml:"api_key"`
}

// SearXNGConfig SearXNG 配置
type SearXNGConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout int    `yaml:"timeout"`
}

// DuckDuckGoConfig DuckDuckGo HTML 搜索配置
type DuckDuckGoConfig struct {
	BaseURL string `yaml:"base_url"`
}

// GNewsConfig Google News RSS 配置
type GNewsConfig struct {
	BaseURL  string `yaml:"base_url"`
	Language string `yaml:"language"` // hl, 例如 en-US
	Country  string `yaml:"country"`  // gl, 例如 US
}

// ResearchConfig 调研聚合配置
type ResearchConfig struct {
	MaxResults       int `yaml:"max_results"`
	WebQueryResults  int `yaml:"web_query_results"`
	NewsQueryResults int `yaml:"news_query_results"`
	ReferenceYear    int `yaml:"reference_year"` // 0 表示使用当前年份
}

// WriterConfig 帖子生成配置
type WriterConfig struct {
	FetchTop int `yaml:"fetch_top"` // 抓取正文的网页结果数量
}

// LogConfig 日志相关配置
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// ConcurrencyConfig 并发控制配置
type ConcurrencyConfig struct {
	QPS int `yaml:"qps"`
	RPM int `yaml:"rpm"`
}

// DBConfig 数据库相关配置
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// RedisConfig 搜索结果缓存配置
type RedisConfig struct {
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	TTLMinutes int    `yaml:"ttl_minutes"`
}

// MinioConfig 帖子归档配置
type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// OutputConfig 本地输出配置
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Addr    string `yaml:"addr"`
	Timeout string `yaml:"timeout"`
}

// LoadConfig 从指定路径加载配置，并依次应用环境变量覆盖、默认值与校验
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse 解析 YAML 内容
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.ApplyEnv()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv 使用环境变量覆盖敏感配置，避免密钥写入配置文件
func (c *Config) ApplyEnv() {
	overrides := []struct {
		env    string
		target *string
	}{
		{"TAVILY_API_KEY", &c.Search.Tavily.APIKey},
		{"LLM_API_KEY", &c.LLM.APIKey},
		{"DB_PASSWORD", &c.DB.Password},
		{"REDIS_PASSWORD", &c.Redis.Password},
		{"MINIO_SECRET_KEY", &c.Minio.SecretKey},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.target = v
		}
	}
}

// ApplyDefaults 填充未配置的字段
func (c *Config) ApplyDefaults() {
	if c.Search.Provider == "" {
		if c.Search.Tavily.APIKey != "" {
			c.Search.Provider = "tavily"
		} else {
			c.Search.Provider = "duckduckgo"
		}
	}
	if c.Search.NewsProvider == "" && c.Search.Provider == "duckduckgo" {
		c.Search.NewsProvider = "gnews"
	}
	if c.Search.Timeout <= 0 {
		c.Search.Timeout = 30
	}
	if c.Search.MaxRetries < 0 {
		c.Search.MaxRetries = 0
	}
	if c.Search.RetryBackoffMS <= 0 {
		c.Search.RetryBackoffMS = 500
	}
	if c.Search.GNews.Language == "" {
		c.Search.GNews.Language = "en-US"
	}
	if c.Search.GNews.Country == "" {
		c.Search.GNews.Country = "US"
	}

	if c.Research.MaxResults <= 0 {
		c.Research.MaxResults = 5
	}
	if c.Research.WebQueryResults <= 0 {
		c.Research.WebQueryResults = 10
	}
	if c.Research.NewsQueryResults <= 0 {
		c.Research.NewsQueryResults = 5
	}
	if c.Writer.FetchTop < 0 {
		c.Writer.FetchTop = 0
	}

	if c.Concurrency.RPM <= 0 {
		c.Concurrency.RPM = 60
	}
	if c.Concurrency.QPS <= 0 {
		c.Concurrency.QPS = 1
	}
	if c.DB.Port == 0 {
		c.DB.Port = 5432
	}
	if c.Redis.TTLMinutes <= 0 {
		c.Redis.TTLMinutes = 60
	}
	if c.Minio.Bucket == "" {
		c.Minio.Bucket = "linkedin-posts"
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "."
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if c.Server.Timeout == "" {
		c.Server.Timeout = "5m"
	}
}

// Validate 在启动时校验配置，返回 *Error
func (c *Config) Validate() error {
	switch c.Search.Provider {
	case "tavily":
		if c.Search.Tavily.APIKey == "" {
			return &Error{Field: "search.tavily.api_key", Reason: "required when provider is tavily"}
		}
	case "searxng":
		if c.Search.SearXNG.BaseURL == "" {
			return &Error{Field: "search.searxng.base_url", Reason: "required when provider is searxng"}
		}
	case "duckduckgo", "gnews":
	default:
		return &Error{Field: "search.provider", Reason: fmt.Sprintf("unknown provider %q", c.Search.Provider)}
	}

	switch c.Search.NewsProvider {
	case "", "gnews", "duckduckgo":
	case "tavily":
		if c.Search.Tavily.APIKey == "" {
			return &Error{Field: "search.tavily.api_key", Reason: "required when news_provider is tavily"}
		}
	case "searxng":
		if c.Search.SearXNG.BaseURL == "" {
			return &Error{Field: "search.searxng.base_url", Reason: "required when news_provider is searxng"}
		}
	default:
		return &Error{Field: "search.news_provider", Reason: fmt.Sprintf("unknown provider %q", c.Search.NewsProvider)}
	}

	if c.Server.Timeout != "" {
		if _, err := time.ParseDuration(c.Server.Timeout); err != nil {
			return &Error{Field: "server.timeout", Reason: err.Error()}
		}
	}
	return nil
}

// RequireLLM 校验帖子生成所需的 LLM 配置
func (c *Config) RequireLLM() error {
	if c.LLM.APIKey == "" {
		return &Error{Field: "llm.api_key", Reason: "required to generate posts"}
	}
	if c.LLM.Model == "" {
		return &Error{Field: "llm.model", Reason: "required to generate posts"}
	}
	return nil
}

// QueryTimeout 单次搜索超时
func (c *Config) QueryTimeout() time.Duration {
	return time.Duration(c.Search.Timeout) * time.Second
}

// RetryBackoff 重试基础间隔
func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.Search.RetryBackoffMS) * time.Millisecond
}

// CacheTTL 搜索缓存过期时间
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Redis.TTLMinutes) * time.Minute
}

// Error 配置错误
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}
