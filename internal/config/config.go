package config

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	DefaultEndpoint  = "ws://localhost:8080/ws"
	DefaultExportDir = "exports"
	DefaultLineWidth = 90
)

// Config 聚合服务端与客户端的配置项。
type Config struct {
	Server ServerConfig
	Client ClientConfig
	AI     AIConfig
}

// ServerConfig 描述开发用后端的配置。
type ServerConfig struct {
	Addr      string
	DemoDelay time.Duration
}

// ClientConfig describes how the desk client reaches the backend and where
// it puts exported reports.
type ClientConfig struct {
	Endpoint        string
	Transport       string
	ExportDir       string
	ExportLineWidth int
	RenderStyle     string
	RenderWidth     int
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// New returns a viper instance carrying the defaults, environment binding and
// the optional z-research.yaml lookup. Callers may bind flags onto it before
// calling FromViper.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("port", "8080")
	v.SetDefault("demo_delay", "100ms")
	v.SetDefault("endpoint", DefaultEndpoint)
	v.SetDefault("transport", "")
	v.SetDefault("export_dir", DefaultExportDir)
	v.SetDefault("export_line_width", DefaultLineWidth)
	v.SetDefault("render_style", "auto")
	v.SetDefault("render_width", 100)
	v.SetDefault("ark_base_url", "https://ark.cn-beijing.volces.com/api/v3")
	v.SetDefault("ark_region", "cn-beijing")
	v.AutomaticEnv()

	v.SetConfigName("z-research")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	return v
}

// Load 从 .env 之后的环境变量与可选配置文件加载配置。
func Load() (*Config, error) {
	return FromViper(New())
}

func FromViper(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config file")
		}
	}

	server, err := loadServerConfig(v)
	if err != nil {
		return nil, err
	}

	client, err := loadClientConfig(v)
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig(v)
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, Client: client, AI: ai}, nil
}

func loadServerConfig(v *viper.Viper) (ServerConfig, error) {
	addr, err := normalizeAddr(v.GetString("port"))
	if err != nil {
		return ServerConfig{}, err
	}

	delay, err := parseDuration(v, "demo_delay")
	if err != nil {
		return ServerConfig{}, err
	}

	return ServerConfig{Addr: addr, DemoDelay: delay}, nil
}

// normalizeAddr 允许 "8080"、":8080" 或 "127.0.0.1:8080"。
func normalizeAddr(port string) (string, error) {
	port = strings.TrimSpace(port)
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		return port, nil
	}

	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}

	return ":" + port, nil
}

func loadClientConfig(v *viper.Viper) (ClientConfig, error) {
	transport := strings.ToLower(strings.TrimSpace(v.GetString("transport")))
	switch transport {
	case "", "ws", "http":
	default:
		return ClientConfig{}, fmt.Errorf("invalid TRANSPORT value: %q", transport)
	}

	lineWidth, err := parseInt(v, "export_line_width")
	if err != nil {
		return ClientConfig{}, err
	}
	renderWidth, err := parseInt(v, "render_width")
	if err != nil {
		return ClientConfig{}, err
	}

	return ClientConfig{
		Endpoint:        strings.TrimSpace(v.GetString("endpoint")),
		Transport:       transport,
		ExportDir:       strings.TrimSpace(v.GetString("export_dir")),
		ExportLineWidth: lineWidth,
		RenderStyle:     strings.TrimSpace(v.GetString("render_style")),
		RenderWidth:     renderWidth,
	}, nil
}

func loadAIConfig(v *viper.Viper) (AIConfig, error) {
	temperature, err := parseOptionalFloat(v, "ark_temperature")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloat(v, "ark_top_p")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalInt(v, "ark_max_tokens")
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:      strings.TrimSpace(v.GetString("ark_api_key")),
		AccessKey:   strings.TrimSpace(v.GetString("ark_access_key")),
		SecretKey:   strings.TrimSpace(v.GetString("ark_secret_key")),
		Model:       strings.TrimSpace(v.GetString("model")),
		BaseURL:     strings.TrimSpace(v.GetString("ark_base_url")),
		Region:      strings.TrimSpace(v.GetString("ark_region")),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials or model missing: set ARK_API_KEY + MODEL or an AK/SK pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", strings.ToUpper(key), raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s value %q: negative", strings.ToUpper(key), raw)
	}
	return d, nil
}

func parseInt(v *viper.Viper, key string) (int, error) {
	raw := strings.TrimSpace(v.GetString(key))
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", strings.ToUpper(key), raw, err)
	}
	return val, nil
}

func parseOptionalFloat(v *viper.Viper, key string) (*float64, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", strings.ToUpper(key), raw, err)
	}
	return &val, nil
}

func parseOptionalInt(v *viper.Viper, key string) (*int, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", strings.ToUpper(key), raw, err)
	}
	return &val, nil
}
