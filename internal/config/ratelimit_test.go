package config

import (
	"os"
	"testing"
	"time"
)

func TestGetRateLimitConfig(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		envVars map[string]string
		want    RateLimitConfig
	}{
		{
			name: "disabled by default",
			key:  "chat_submit",
			want: RateLimitConfig{Enabled: false, MaxHits: 60, Window: time.Minute},
		},
		{
			name: "enabled with override",
			key:  "chat_submit",
			envVars: map[string]string{
				"RATELIMIT_ENABLED":     "true",
				"RATELIMIT_CHAT_SUBMIT": "5",
			},
			want: RateLimitConfig{Enabled: true, MaxHits: 5, Window: time.Minute},
		},
		{
			name: "invalid override uses default",
			key:  "oauth_token",
			envVars: map[string]string{
				"RATELIMIT_OAUTH_TOKEN": "many",
			},
			want: RateLimitConfig{Enabled: false, MaxHits: 30, Window: time.Minute},
		},
		{
			name: "unknown key is disabled",
			key:  "unknown",
			want: RateLimitConfig{Enabled: false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}
			defer func() {
				for k := range tt.envVars {
					os.Unsetenv(k)
				}
			}()

			if got := GetRateLimitConfig(tt.key); got != tt.want {
				t.Errorf("GetRateLimitConfig(%q) = %+v, want %+v", tt.key, got, tt.want)
			}
		})
	}
}

func TestChatDefaults(t *testing.T) {
	os.Unsetenv("MODEL_NAME")
	os.Unsetenv("SYSTEM_INSTRUCTION")

	if got := GetModelName(); got != DefaultModelName {
		t.Errorf("GetModelName() = %q, want %q", got, DefaultModelName)
	}
	if got := GetSystemInstruction(); got != DefaultSystemInstruction {
		t.Errorf("GetSystemInstruction() = %q, want default instruction", got)
	}
	if got := GetMaxSubmissionLength(); got != 32000 {
		t.Errorf("GetMaxSubmissionLength() = %d, want 32000", got)
	}
}
