package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode        string        `mapstructure:"mode"`
	Port        int           `mapstructure:"port"`
	Token       string        `mapstructure:"token"`
	GatewayURL  string        `mapstructure:"gateway_url"`
	APIBaseURL  string        `mapstructure:"api_base_url"`
	StoragePath string        `mapstructure:"storage_path"`
	Heartbeat   time.Duration `mapstructure:"heartbeat"`

	v        *viper.Viper
	fileName string
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("gateway_url", "wss://gateway.discord.gg/?v=10&encoding=json")
	v.SetDefault("api_base_url", "https://discord.com/api/v10")
	v.SetDefault("storage_path", "./portald.db")
	v.SetDefault("heartbeat", "41s")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.v = v
	cfg.fileName = fileName
	fmt.Printf("🧩 Mode: %s | Port: %d | Storage: %s\n", cfg.Mode, cfg.Port, cfg.StoragePath)
	return &cfg, nil
}

// SaveToken persists a new bot token back to the loaded config file so a
// restart picks it up.
func (c *Config) SaveToken(token string) error {
	c.Token = token
	c.v.Set("token", token)
	if err := c.v.WriteConfigAs(c.fileName); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
