package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port        int `yaml:"port"`
		MaxUploadMB int `yaml:"maxUploadMB"`
	} `yaml:"server"`

	Database struct {
		Driver   string `yaml:"driver"` // mysql | postgres
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
	} `yaml:"database"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	Detector struct {
		Engine       string  `yaml:"engine"` // darknet | rekognition
		ConfigPath   string  `yaml:"configPath"`
		WeightsPath  string  `yaml:"weightsPath"`
		Confidence   float64 `yaml:"confidence"`
		NMSThreshold float64 `yaml:"nmsThreshold"`
		InputSize    int     `yaml:"inputSize"`
		BlurKernel   int     `yaml:"blurKernel"`
		WorkDir      string  `yaml:"workDir"`
	} `yaml:"detector"`

	AWS struct {
		Region    string `yaml:"region"`
		AccessKey string `yaml:"accessKey"`
		SecretKey string `yaml:"secretKey"`
	} `yaml:"aws"`

	OpenAI struct {
		APIKey string `yaml:"apiKey"`
		Model  string `yaml:"model"`
	} `yaml:"openai"`

	Auth struct {
		// tenant -> api key; empty map disables auth
		APIKeys map[string]string `yaml:"apiKeys"`
	} `yaml:"auth"`

	RateLimit struct {
		Capacity   int `yaml:"capacity"`
		RefillRate int `yaml:"refillRate"`
	} `yaml:"rateLimit"`
}

// Load baca file config.yaml
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.MaxUploadMB <= 0 {
		c.Server.MaxUploadMB = 200
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.Detector.Engine == "" {
		c.Detector.Engine = "darknet"
	}
	if c.Detector.Confidence <= 0 {
		c.Detector.Confidence = 0.05
	}
	if c.Detector.NMSThreshold <= 0 {
		c.Detector.NMSThreshold = 0.03
	}
	if c.Detector.InputSize <= 0 {
		c.Detector.InputSize = 416
	}
	if c.Detector.BlurKernel <= 0 {
		c.Detector.BlurKernel = 25
	}
	if c.Detector.WorkDir == "" {
		c.Detector.WorkDir = "temp"
	}
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// Helper untuk build DSN Postgres
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
	)
}
