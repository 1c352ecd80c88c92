package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/examportal/portal-backend/internal/config"
	"github.com/rs/zerolog"
)

func TestBuild_Fields(t *testing.T) {
	var buf bytes.Buffer
	cfg := &config.Config{AppName: "exam-portal", AppEnv: "test", LogLevel: "debug"}

	log := build(&buf, cfg, "server")
	log.Info().Str("component", "exam_service").Msg("Exam submitted")

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	want := map[string]string{
		"app":       "exam-portal",
		"env":       "test",
		"cmd":       "server",
		"component": "exam_service",
		"message":   "Exam submitted",
	}
	for k, v := range want {
		if line[k] != v {
			t.Errorf("%s = %v, want %q", k, line[k], v)
		}
	}
}

func TestBuild_Level(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"", zerolog.InfoLevel},
		{"loud", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			build(&buf, &config.Config{LogLevel: tt.level}, "test")
			if got := zerolog.GlobalLevel(); got != tt.want {
				t.Errorf("global level = %v, want %v", got, tt.want)
			}
		})
	}
}
