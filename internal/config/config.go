// 包 config 负责加载与校验应用配置（settings.yaml + .env），
// 对外提供结构体 Config 及默认值/合法性校验。
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	ClanTag      string   `yaml:"CLAN_TAG" validate:"required,startswith=#,min=4"`
	API          API      `yaml:"API"`
	Sync         Sync     `yaml:"SYNC"`
	Database     Database `yaml:"DATABASE"`
	HTTP         HTTP     `yaml:"HTTP"`
	Proxy        Proxy    `yaml:"PROXY"`
	ResetOnStart bool     `yaml:"RESET_ON_START"`
	LogLevel     string   `yaml:"LOG_LEVEL" validate:"omitempty,oneof=debug info warn warning error none silent off"`
	LogFormat    string   `yaml:"LOG_FORMAT" validate:"oneof=text json pretty"`
	LogLocale    string   `yaml:"LOG_LOCALE"` // zh-CN|en
	LogColor     string   `yaml:"LOG_COLOR" validate:"oneof=auto always never"`
}

// API 为游戏数据接口的访问参数；Token 一般通过 COC_API_TOKEN 注入而非写入文件。
type API struct {
	BaseURL        string  `yaml:"BASE_URL" validate:"url"`
	Token          string  `yaml:"TOKEN" validate:"required"`
	TimeoutSeconds int     `yaml:"TIMEOUT_SECONDS" validate:"gte=1"`
	Retry          int     `yaml:"RETRY" validate:"gte=0"`
	RatePerSecond  float64 `yaml:"RATE_PER_SECOND" validate:"gt=0"`
	Burst          int     `yaml:"BURST" validate:"gte=1"`
}

type Sync struct {
	IntervalSeconds int `yaml:"INTERVAL_SECONDS" validate:"gte=10"`
	// RunOnStart 就绪后立即同步一轮，否则等到第一个间隔
	RunOnStart bool `yaml:"RUN_ON_START"`
}

type Database struct {
	Type string `yaml:"type" validate:"eq=sqlite"`
	DSN  string `yaml:"dsn" validate:"required"`
}

type HTTP struct {
	Enabled bool   `yaml:"ENABLED"`
	Addr    string `yaml:"ADDR" validate:"required_if=Enabled true"`
}

type Proxy struct {
	HTTP  string `yaml:"http"`
	HTTPS string `yaml:"https"`
}

const DefaultBaseURL = "https://api.clashofclans.com/v1"

// Load 先加载 .env（若存在），再读取 YAML，最后用环境变量覆盖敏感项并校验。
func Load(path string, envFiles ...string) (*Config, error) {
	if err := loadEnv(envFiles...); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("unmarshal config %s: %w", path, err)
	}
	c.applyEnv()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// loadEnv 忽略不存在的 .env 文件；已存在的进程环境变量优先。
func loadEnv(files ...string) error {
	for _, p := range files {
		if p == "" {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load env %s: %w", p, err)
		}
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("CLAN_TAG"); v != "" {
		c.ClanTag = v
	}
	if v := os.Getenv("COC_API_TOKEN"); v != "" {
		c.API.Token = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		c.Database.DSN = v
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate 填充默认值后做结构体校验，避免在业务层分散判空逻辑。
func (c *Config) Validate() error {
	c.ClanTag = NormalizeTag(c.ClanTag)
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
	if c.API.TimeoutSeconds == 0 {
		c.API.TimeoutSeconds = 25
	}
	if c.API.RatePerSecond == 0 {
		c.API.RatePerSecond = 5
	}
	if c.API.Burst == 0 {
		c.API.Burst = 1
	}
	if c.Sync.IntervalSeconds == 0 {
		c.Sync.IntervalSeconds = 300
	}
	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.DSN == "" {
		c.Database.DSN = "./clan.db"
	}
	if c.HTTP.Enabled && c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.LogFormat == "" {
		c.LogFormat = "pretty"
	}
	if c.LogLocale == "" {
		c.LogLocale = "zh-CN"
	}
	if c.LogColor == "" {
		c.LogColor = "auto"
	}
	if err := validate.Struct(c); err != nil {
		return err
	}
	return nil
}

func (c *Config) Interval() time.Duration { return time.Duration(c.Sync.IntervalSeconds) * time.Second }

func (c *Config) Timeout() time.Duration { return time.Duration(c.API.TimeoutSeconds) * time.Second }

// NormalizeTag 统一标签写法：去空白、大写、补 #，并把易混的字母 O 替换为数字 0。
func NormalizeTag(tag string) string {
	tag = strings.ToUpper(strings.TrimSpace(tag))
	if tag == "" {
		return ""
	}
	tag = strings.ReplaceAll(tag, "O", "0")
	if !strings.HasPrefix(tag, "#") {
		tag = "#" + tag
	}
	return tag
}
