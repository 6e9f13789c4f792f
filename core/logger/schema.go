package logger

import "strings"

var allowedLevels = map[string]string{
	"debug":   "DEBUG",
	"info":    "INFO",
	"warn":    "WARN",
	"warning": "WARN",
	"error":   "ERROR",
}

var allowedStatus = map[string]string{
	"ok":           "ok",
	"fail":         "fail",
	"skip":         "skip",
	"retry":        "retry",
	"rate_limited": "rate_limited",
	"cancelled":    "cancelled",
	"reprompt":     "reprompt",
	"degraded":     "degraded",
}

var allowedOutcome = map[string]string{
	"ok":           "ok",
	"fail":         "fail",
	"cancelled":    "cancelled",
	"rate_limited": "rate_limited",
}

func normalizeLevel(level string) string {
	if level == "" {
		return "INFO"
	}
	if mapped, ok := allowedLevels[strings.ToLower(level)]; ok {
		return mapped
	}
	return strings.ToUpper(level)
}

func normalizeStatus(status string) (string, bool) {
	mapped, ok := allowedStatus[strings.ToLower(strings.TrimSpace(status))]
	return mapped, ok
}

func normalizeOutcome(outcome string) (string, bool) {
	mapped, ok := allowedOutcome[strings.ToLower(strings.TrimSpace(outcome))]
	return mapped, ok
}

var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"ts_unix_nano",
	"update_id",
	"user_id",
	"chat_id",
	"chat_type",
	"handler",
	"job",
	"cb_key",
	"outcome",
	"duration_ms",
	"messages",
	"kb",
	"stage",
	"grade",
	"unit",
	"source",
	"fetch_kind",
	"recipients",
	"delivered",
	"failed",
	"records",
	"next_run",
	"payload",
	"lang",
	"username",
	"mode",
	"listen",
	"public_url",
	"http_code",
	"db",
	"host",
	"port",
	"err",
	"err_code",
	"cause",
	"attempts",
}
