package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Cache struct {
		Backend    string `yaml:"backend"` // "memory" or "redis"
		TTLMinutes int    `yaml:"ttl_minutes"`
	} `yaml:"cache"`
	Redis struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Sources struct {
		CAHCD struct {
			BaseURL    string `yaml:"base_url"`
			CountyCode string `yaml:"county_code"`
		} `yaml:"ca_hcd"`
		RivCo struct {
			BaseURL string `yaml:"base_url"`
		} `yaml:"rivcoview"`
		MHVillage struct {
			BaseURL  string `yaml:"base_url"`
			PageSize int    `yaml:"page_size"`
		} `yaml:"mhvillage"`
		Concurrency int `yaml:"concurrency"`
	} `yaml:"sources"`
	Display struct {
		MaxColumns       int     `yaml:"max_columns"`
		NumericThreshold float64 `yaml:"numeric_threshold"`
		WithCoordinates  *bool   `yaml:"with_coordinates"`
	} `yaml:"display"`
}

func LoadConfig(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %v", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %v", err)
		}
	}

	// Override with environment variables if set
	if backend := os.Getenv("CACHE_BACKEND"); backend != "" {
		cfg.Cache.Backend = backend
	}
	if host := os.Getenv("REDIS_HOST"); host != "" {
		cfg.Redis.Host = host
	}
	if port := os.Getenv("REDIS_PORT"); port != "" {
		portNum, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_PORT value: %v", err)
		}
		cfg.Redis.Port = portNum
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}
	if db := os.Getenv("REDIS_DB"); db != "" {
		dbNum, err := strconv.Atoi(db)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB value: %v", err)
		}
		cfg.Redis.DB = dbNum
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		portNum, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid SERVER_PORT value: %v", err)
		}
		cfg.Server.Port = portNum
	}

	// Set default values
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "memory"
	}
	if cfg.Cache.TTLMinutes <= 0 {
		cfg.Cache.TTLMinutes = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Sources.CAHCD.BaseURL == "" {
		cfg.Sources.CAHCD.BaseURL = "https://cahcd.my.site.com"
	}
	if cfg.Sources.CAHCD.CountyCode == "" {
		cfg.Sources.CAHCD.CountyCode = "33"
	}
	if cfg.Sources.RivCo.BaseURL == "" {
		cfg.Sources.RivCo.BaseURL = "https://rivcoview.rivcoacr.org"
	}
	if cfg.Sources.MHVillage.BaseURL == "" {
		cfg.Sources.MHVillage.BaseURL = "https://www.mhvillage.com"
	}
	if cfg.Sources.MHVillage.PageSize <= 0 {
		cfg.Sources.MHVillage.PageSize = 50
	}
	if cfg.Sources.Concurrency <= 0 {
		cfg.Sources.Concurrency = 10
	}
	if cfg.Display.MaxColumns <= 0 {
		cfg.Display.MaxColumns = 20
	}
	if cfg.Display.NumericThreshold <= 0 {
		cfg.Display.NumericThreshold = 0.9
	}
	if cfg.Display.WithCoordinates == nil {
		withCoords := true
		cfg.Display.WithCoordinates = &withCoords
	}

	// Validation
	if cfg.Cache.Backend != "memory" && cfg.Cache.Backend != "redis" {
		return nil, fmt.Errorf("CACHE_BACKEND must be 'memory' or 'redis', got %q", cfg.Cache.Backend)
	}
	if cfg.Redis.Port <= 0 || cfg.Redis.Port > 65535 {
		return nil, fmt.Errorf("REDIS_PORT must be between 1 and 65535")
	}
	if cfg.Display.NumericThreshold > 1 {
		return nil, fmt.Errorf("numeric_threshold must be in (0, 1]")
	}

	return &cfg, nil
}
