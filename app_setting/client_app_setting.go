package app_setting

import (
	"os"

	"gopkg.in/yaml.v2"

	Logger "github.com/neillwu/wanclient/utils/log"
)

// ClientAppSetting is the wanclient runtime configuration, loaded from YAML.
type ClientAppSetting struct {
	// Base URL of the remote API.
	BASE_URL string `yaml:"BASE_URL"`
	// Per-request timeout in seconds, applied when the caller's context has
	// no deadline of its own.
	REQUEST_TIMEOUT_SECOND int64 `yaml:"REQUEST_TIMEOUT_SECOND"`
	// Total attempts for a request failing with a transient transport error.
	RETRY_MAX_ATTEMPTS int `yaml:"RETRY_MAX_ATTEMPTS"`
	// Flat delay between attempts, in milliseconds.
	RETRY_DELAY_MS int64 `yaml:"RETRY_DELAY_MS"`
	// Path of the local SQLite store holding session, cookies, read marks
	// and search history.
	LOCAL_STORE_PATH string `yaml:"LOCAL_STORE_PATH"`
}

// DefaultClientAppSetting mirrors the values the original client shipped
// with.
func DefaultClientAppSetting() ClientAppSetting {
	return ClientAppSetting{
		BASE_URL:               "https://www.wanandroid.com",
		REQUEST_TIMEOUT_SECOND: 15,
		RETRY_MAX_ATTEMPTS:     3,
		RETRY_DELAY_MS:         500,
		LOCAL_STORE_PATH:       "wanclient.db",
	}
}

// ParseClientAppSetting reads the setting file at path, falling back to the
// defaults for any field the file leaves unset.
func ParseClientAppSetting(path string) ClientAppSetting {
	c := DefaultClientAppSetting()
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		Logger.Log.Fatalf("read app setting %s: %v", path, err)
	}
	if err := yaml.Unmarshal(yamlFile, &c); err != nil {
		Logger.Log.Fatalf("unmarshal app setting %s: %v", path, err)
	}
	return c
}
