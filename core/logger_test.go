package core

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func TestDefaultLogger_FormatsLevelAndFields(t *testing.T) {
	orig := log.Writer()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(orig)

	l := NewDefaultLogger()
	l.Debug("task started", F("coordinator", "c1"), F("seq", 3))

	line := buf.String()
	if !strings.Contains(line, "[DEBUG] task started") {
		t.Fatalf("log line %q missing level and message", line)
	}
	if !strings.Contains(line, "coordinator: c1") || !strings.Contains(line, "seq: 3") {
		t.Fatalf("log line %q missing fields", line)
	}
}

func TestDefaultLogger_NoFieldsNoBraces(t *testing.T) {
	orig := log.Writer()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(orig)

	NewDefaultLogger().Warn("window closed")

	if line := buf.String(); strings.Contains(line, "{") {
		t.Fatalf("log line %q has field braces for a field-less message", line)
	}
}
