// Package logs aggregates container logs across the pods of one MCP
// server. Lines are parsed best-effort: servers log in whatever format
// their runtime chooses, so the parser recognises common timestamp and
// level shapes and falls back to sane defaults.
package logs

import (
	"regexp"
	"strings"
	"time"
)

// Log severity levels, ordered. A query's level filter returns the
// chosen level and everything more severe.
const (
	LevelDebug    = "debug"
	LevelInfo     = "info"
	LevelWarning  = "warning"
	LevelError    = "error"
	LevelCritical = "critical"
)

var severityRank = map[string]int{
	LevelDebug:    0,
	LevelInfo:     1,
	LevelWarning:  2,
	LevelError:    3,
	LevelCritical: 4,
}

// IsValidLevel reports whether the given level name is known.
func IsValidLevel(level string) bool {
	_, ok := severityRank[level]
	return ok
}

// Entry is one parsed log line.
type Entry struct {
	Timestamp     time.Time `json:"timestamp"`
	Level         string    `json:"level"`
	Message       string    `json:"message"`
	PodName       string    `json:"pod_name"`
	ContainerName string    `json:"container_name"`
}

// levelTokenPattern matches the first recognisable level token in a
// line, bracketed or bare.
var levelTokenPattern = regexp.MustCompile(`(?i)\[?\b(DEBUG|INFO|WARNING|WARN|ERROR|CRITICAL|FATAL)\b\]?`)

// timestampLayouts are tried in order against the leading token of a
// line. RFC 3339 first since structured loggers emit it.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// parseLine extracts timestamp, level, and message from a raw log line.
// Lines without a recognisable timestamp get the fallback (the query
// timestamp), so they still sort near their neighbours. Lines without a
// level token are info.
func parseLine(line, podName string, fallback time.Time) Entry {
	entry := Entry{
		Timestamp: fallback,
		Level:     LevelInfo,
		Message:   line,
		PodName:   podName,
	}

	if ts, ok := leadingTimestamp(line); ok {
		entry.Timestamp = ts
	}
	if match := levelTokenPattern.FindStringSubmatch(line); match != nil {
		entry.Level = normalizeLevel(match[1])
	}
	return entry
}

// leadingTimestamp parses a timestamp from the start of the line. The
// "2006-01-02 15:04:05" form spans two whitespace-separated tokens, so
// both one- and two-token prefixes are tried.
func leadingTimestamp(line string) (time.Time, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return time.Time{}, false
	}

	candidates := []string{strings.Trim(fields[0], "[]")}
	if len(fields) > 1 {
		candidates = append(candidates, fields[0]+" "+fields[1])
	}

	for _, candidate := range candidates {
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, candidate); err == nil {
				return ts.UTC(), true
			}
		}
	}
	return time.Time{}, false
}

func normalizeLevel(token string) string {
	switch strings.ToLower(token) {
	case "warn", "warning":
		return LevelWarning
	case "fatal", "critical":
		return LevelCritical
	case "debug":
		return LevelDebug
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// atLeastSeverity reports whether level is at or above the minimum.
// Unknown minimums pass everything through.
func atLeastSeverity(level, minimum string) bool {
	minRank, ok := severityRank[minimum]
	if !ok {
		return true
	}
	return severityRank[level] >= minRank
}
