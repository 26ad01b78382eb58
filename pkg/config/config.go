package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Crawler struct {
		Keywords       []string `yaml:"keywords"`
		Region         string   `yaml:"region"`
		SearchURL      string   `yaml:"search_url"`
		RateLimit      float64  `yaml:"rate_limit"`
		TimeoutSeconds int      `yaml:"timeout_seconds"`
	} `yaml:"crawler"`

	Storage struct {
		JSONPath      string `yaml:"json_path"`
		PostgresURL   string `yaml:"postgres_url"`
		PostgresTable string `yaml:"postgres_table"`
	} `yaml:"storage"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/bidwatch/config.yaml"),
			"/etc/bidwatch/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	// Merge with environment variables
	mergeWithEnv(&config)

	// Apply defaults for unset values
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if len(config.Crawler.Keywords) == 0 {
		config.Crawler.Keywords = []string{"广告", "标识", "牌", "标志", "宣传", "栏", "文化"}
	}
	if config.Crawler.Region == "" {
		config.Crawler.Region = "四川"
	}
	if config.Crawler.SearchURL == "" {
		config.Crawler.SearchURL = "https://search.bidcenter.com.cn/search"
	}
	if config.Crawler.RateLimit == 0 {
		config.Crawler.RateLimit = 0.5
	}
	if config.Crawler.TimeoutSeconds == 0 {
		config.Crawler.TimeoutSeconds = 30
	}

	if config.Storage.JSONPath == "" {
		config.Storage.JSONPath = "data/bidding_data.json"
	}
	if config.Storage.PostgresTable == "" {
		config.Storage.PostgresTable = "notices"
	}

	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
}

func mergeWithEnv(config *Config) {
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Storage.PostgresURL = dbURL
	}
	if dataPath := os.Getenv("BIDWATCH_DATA_PATH"); dataPath != "" {
		config.Storage.JSONPath = dataPath
	}
	if addr := os.Getenv("BIDWATCH_ADDR"); addr != "" {
		config.Server.Addr = addr
	}
}
