package config

import "os"

// NotifyConfig configures the push delivery transport. When no credentials
// file is provided the service degrades to a log-only sender.
type NotifyConfig struct {
	FCMCredentialsFile string
}

func LoadNotifyConfig() *NotifyConfig {
	return &NotifyConfig{
		FCMCredentialsFile: os.Getenv("FCM_CREDENTIALS_FILE"),
	}
}
