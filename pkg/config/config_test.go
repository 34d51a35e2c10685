package config_test

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/config"
)

func TestDurationUnmarshal(t *testing.T) {
	scenarios := []struct {
		name     string
		input    string
		expected time.Duration
		fails    bool
	}{
		{name: "string", input: `"1m30s"`, expected: 90 * time.Second},
		{name: "nanoseconds", input: `1000`, expected: 1000},
		{name: "boolean", input: `true`, fails: true},
		{name: "garbage", input: `"soon"`, fails: true},
	}

	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			var d config.Duration

			err := json.Unmarshal([]byte(scenario.input), &d)
			if scenario.fails {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, scenario.expected, d.Duration)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	scenarios := map[string]logrus.Level{
		"":         logrus.InfoLevel,
		"INFO":     logrus.InfoLevel,
		"debug":    logrus.DebugLevel,
		"WARNING":  logrus.WarnLevel,
		"ERROR":    logrus.ErrorLevel,
		"CRITICAL": logrus.FatalLevel,
	}

	for input, expected := range scenarios {
		level, err := config.ParseLogLevel(input)
		require.NoError(t, err, input)
		assert.Equal(t, expected, level, input)
	}

	_, err := config.ParseLogLevel("chatty")
	require.Error(t, err)
}

func TestNewLoggerFormat(t *testing.T) {
	logger, err := config.NewLogger("INFO")
	require.NoError(t, err)

	var buf bytes.Buffer
	logger.SetOutput(&buf)
	logger.Info("hello")
	logger.Debug("hidden")

	assert.Regexp(t, `^INFO: \[config_test\.go:\d+\] hello\n$`, buf.String())
}
