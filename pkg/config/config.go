// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用配置结构体。进程启动时读取一次：配置文件为默认值，环境变量覆盖
type Config struct {
	Storage Storage   `mapstructure:"storage"`
	Session Session   `mapstructure:"session"`
	Cache   Cache     `mapstructure:"cache"`
	Retry   Retry     `mapstructure:"retry"`
	Model   Model     `mapstructure:"model"`
	Secrets Secrets   `mapstructure:"secrets"`
	Log     LogConfig `mapstructure:"log"`
	Tracing Tracing   `mapstructure:"tracing"`
}

// Storage 存储后端配置
type Storage struct {
	Type     string `mapstructure:"type"`      // auto | redis | file | memory；auto 按 redis→file→memory 探测
	FileRoot string `mapstructure:"file_root"` // file 驱动根目录，空则 ~/.coassist/state
	Redis    Redis  `mapstructure:"redis"`
}

// Redis 远端存储连接参数
type Redis struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// Session 会话生命周期配置
type Session struct {
	TTL string `mapstructure:"ttl"` // 如 "3h"，空则默认 3h
	// SweepInterval 过期会话定期清扫间隔，空则禁用（惰性删除仍然生效）
	SweepInterval string `mapstructure:"sweep_interval"`
}

// Cache 响应缓存配置
type Cache struct {
	Enable *bool  `mapstructure:"enable"` // 未配置时默认 true
	TTL    string `mapstructure:"ttl"`    // 如 "1h"，空则默认 1h
}

// Retry 上游调用重试配置
type Retry struct {
	MaxAttempts     int     `mapstructure:"max_attempts"`     // <=0 默认 4
	BaseDelay       string  `mapstructure:"base_delay"`       // 如 "500ms"
	MaxDelay        string  `mapstructure:"max_delay"`        // 如 "8s"
	ExponentialBase float64 `mapstructure:"exponential_base"` // <=1 默认 2
	Jitter          *bool   `mapstructure:"jitter"`           // 未配置时默认 true
}

// Model 模型提供商配置
type Model struct {
	Providers map[string]Provider `mapstructure:"providers"`
	Default   string              `mapstructure:"default"` // 默认 provider 名
}

// Provider 单个模型提供商
type Provider struct {
	APIKey  string `mapstructure:"api_key"` // 支持 ${ENV_VAR} 形式，从环境或 secret store 解析
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// Secrets secret store 配置（解析 provider api_key）
type Secrets struct {
	Provider string            `mapstructure:"provider"` // env | memory | vault；空则 env
	Config   map[string]string `mapstructure:"config"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// Tracing 链路追踪配置（OpenTelemetry）
type Tracing struct {
	Enable         bool   `mapstructure:"enable"`
	ServiceName    string `mapstructure:"service_name"`
	ExportEndpoint string `mapstructure:"export_endpoint"`
	Insecure       bool   `mapstructure:"insecure"`
}

// LoadConfig 加载配置文件并应用环境变量覆盖
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetEnvPrefix("COASSIST")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("无法读取配置文件: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("无法解析配置文件: %w", err)
	}

	replaceEnvVars(&config)
	return &config, nil
}

// LoadCLIConfig 加载 CLI 配置；路径可被 COASSIST_CONFIG 覆盖，文件不存在则返回内置默认配置
func LoadCLIConfig() (*Config, error) {
	path := os.Getenv("COASSIST_CONFIG")
	if path == "" {
		path = "configs/cli.yaml"
	}
	if _, err := os.Stat(path); err != nil {
		return Default(), nil
	}
	return LoadConfig(path)
}

// Default 内置默认配置（无配置文件时的兜底）
func Default() *Config {
	return &Config{
		Storage: Storage{Type: "auto"},
		Session: Session{TTL: "3h"},
		Cache:   Cache{TTL: "1h"},
		Retry:   Retry{MaxAttempts: 4, BaseDelay: "500ms", MaxDelay: "8s", ExponentialBase: 2},
	}
}

// replaceEnvVars 将 ${VAR} 形式的 provider api_key 替换为环境变量值
func replaceEnvVars(config *Config) {
	for name, provider := range config.Model.Providers {
		if strings.HasPrefix(provider.APIKey, "$") {
			envVar := strings.TrimPrefix(strings.TrimSuffix(provider.APIKey, "}"), "${")
			if val := os.Getenv(envVar); val != "" {
				provider.APIKey = val
				config.Model.Providers[name] = provider
			}
		}
	}
}
