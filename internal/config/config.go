package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	Secret     string        `mapstructure:"secret"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`

	// Media provider settings. The placeholder defaults fail at the
	// provider boundary, not at startup.
	LiveKitURL string `mapstructure:"livekit_url"`
	APIKey     string `mapstructure:"api_key"`
	APISecret  string `mapstructure:"api_secret"`

	// HostEmail is the single allow-listed room creator.
	HostEmail string `mapstructure:"host_email"`
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
	v.SetDefault("static_path", "./web")
	v.SetDefault("secret", "huddle-dev-secret")
	v.SetDefault("token_ttl", "6h")
	v.SetDefault("livekit_url", "wss://your-livekit-server-url.livekit.cloud")
	v.SetDefault("api_key", "YOUR_LIVEKIT_API_KEY")
	v.SetDefault("api_secret", "YOUR_LIVEKIT_API_SECRET")
	v.SetDefault("host_email", "")

	_ = v.BindEnv("livekit_url", "LIVEKIT_URL")
	_ = v.BindEnv("api_key", "LIVEKIT_API_KEY")
	_ = v.BindEnv("api_secret", "LIVEKIT_API_SECRET")
	_ = v.BindEnv("host_email", "REGISTERED_HOST_EMAIL")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | LiveKit: %s\n", cfg.Mode, cfg.Port, cfg.LiveKitURL)
	return &cfg, nil
}
