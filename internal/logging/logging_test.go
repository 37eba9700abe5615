package logging

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogOutput(t *testing.T, fn func()) string {
	t.Helper()
	var buf bytes.Buffer
	originalOutput := log.Writer()
	originalFlags := log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	defer func() {
		log.SetOutput(originalOutput)
		log.SetFlags(originalFlags)
	}()
	fn()
	return buf.String()
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"none", None, false},
		{"ERROR", Error, false},
		{"warn", Warning, false},
		{"warning", Warning, false},
		{"info", Info, false},
		{"debug", Debug, false},
		{"bogus", Info, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.wantErr {
			require.Error(t, err, tt.in)
		} else {
			require.NoError(t, err, tt.in)
		}
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestSetupLogging(t *testing.T) {
	originalLevel := GetLevel()
	defer SetLevel(originalLevel)

	assert.Equal(t, Debug, SetupLogging("debug"))
	assert.Equal(t, Debug, GetLevel())

	out := captureLogOutput(t, func() {
		assert.Equal(t, Info, SetupLogging("nonsense"))
	})
	assert.Contains(t, out, "Invalid log level")
	assert.Equal(t, Info, GetLevel())
}

func TestLogfRespectsLevel(t *testing.T) {
	originalLevel := GetLevel()
	defer SetLevel(originalLevel)

	SetLevel(Warning)
	out := captureLogOutput(t, func() {
		Logf(Error, "error msg %d", 1)
		Logf(Warning, "warning msg")
		Logf(Info, "info msg")
		Logf(Debug, "debug msg")
	})

	assert.Contains(t, out, "[ERROR] error msg 1")
	assert.Contains(t, out, "warning msg")
	assert.NotContains(t, out, "info msg")
	assert.NotContains(t, out, "debug msg")
}
