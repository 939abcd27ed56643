package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds the runtime configuration shared by the lambda handlers
type Config struct {
	Database    DatabaseConfig
	WhatsApp    WhatsAppConfig
	LLM         LLMConfig
	Twilio      TwilioConfig
	Telegram    TelegramConfig
	SNSTopicARN string
	APIToken    string
}

// DatabaseConfig holds the relational store connection parts
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// DSN builds the postgres connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s",
		c.Host, c.Port, c.User, c.Name, c.Password,
	)
}

// WhatsAppConfig holds the vendor gateway credentials
type WhatsAppConfig struct {
	BaseURL string
	Token   string
	Number  string
}

// LLMConfig holds the completion provider configuration
type LLMConfig struct {
	BaseURL string
	APIKey  string
}

// TwilioConfig holds the Twilio channel credentials. WebhookBase is the
// public gateway endpoint Twilio signs requests against.
type TwilioConfig struct {
	AccountSID  string
	AuthToken   string
	From        string
	WebhookBase string
}

// TelegramConfig holds the Telegram bot credentials
type TelegramConfig struct {
	Token string
}

// Load reads configuration from the environment
func Load() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("RDS_PORT", "5432")

	return &Config{
		Database: DatabaseConfig{
			Host:     v.GetString("RDS_HOST"),
			Port:     v.GetString("RDS_PORT"),
			User:     v.GetString("RDS_USERNAME"),
			Password: v.GetString("RDS_PASSWORD"),
			Name:     v.GetString("RDS_DB_NAME"),
		},
		WhatsApp: WhatsAppConfig{
			BaseURL: v.GetString("WHATSAPP_API_URL"),
			Token:   v.GetString("WHATSAPP_API_TOKEN"),
			Number:  v.GetString("WHATSAPP_NUMBER"),
		},
		LLM: LLMConfig{
			BaseURL: v.GetString("LLM_BASE_URL"),
			APIKey:  v.GetString("LLM_API_KEY"),
		},
		Twilio: TwilioConfig{
			AccountSID:  v.GetString("TWILIO_ACCOUNT_SID"),
			AuthToken:   v.GetString("TWILIO_AUTH_TOKEN"),
			From:        v.GetString("TWILIO_FROM"),
			WebhookBase: v.GetString("GW_ENDPOINT"),
		},
		Telegram: TelegramConfig{
			Token: v.GetString("TELEGRAM_BOT_TOKEN"),
		},
		SNSTopicARN: v.GetString("SNS_TOPIC_ARN"),
		APIToken:    v.GetString("API_TOKEN"),
	}
}
