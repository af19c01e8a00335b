// Package privacylog keeps launch secrets and user identifiers out of logs.
//
// Bridge frames carry signed launch data, biometric tokens and storage
// values. Wrap a zap core with [WrapCore] so that fields under sensitive
// keys are replaced before they reach any sink, and log raw frame payloads
// with [Payload] so nested JSON is scrubbed the same way.
package privacylog

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const redactedValue = "[REDACTED]"

var (
	bootNonce         = randomNonce()
	fingerprintedKeys = map[string]struct{}{
		"queryid":      {},
		"userid":       {},
		"chatinstance": {},
		"receiverid":   {},
		"deviceid":     {},
	}
	sensitiveKeyParts = []string{"token", "secret", "password", "auth", "initdata", "hash", "signature"}
)

// WrapCore returns a core that sanitizes every field before delegating.
func WrapCore(next zapcore.Core) zapcore.Core {
	if next == nil {
		return nil
	}
	return &sanitizingCore{next: next}
}

// Wrap returns a logger whose core is wrapped with WrapCore.
func Wrap(l *zap.Logger) *zap.Logger {
	if l == nil {
		return nil
	}
	return l.WithOptions(zap.WrapCore(WrapCore))
}

type sanitizingCore struct {
	next zapcore.Core
}

func (c *sanitizingCore) Enabled(level zapcore.Level) bool {
	return c.next.Enabled(level)
}

func (c *sanitizingCore) With(fields []zapcore.Field) zapcore.Core {
	return &sanitizingCore{next: c.next.With(SanitizeFields(fields))}
}

func (c *sanitizingCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *sanitizingCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	return c.next.Write(ent, SanitizeFields(fields))
}

func (c *sanitizingCore) Sync() error {
	return c.next.Sync()
}

// SanitizeFields returns a copy of fields with sensitive values redacted and
// identifier values fingerprinted.
func SanitizeFields(fields []zapcore.Field) []zapcore.Field {
	if len(fields) == 0 {
		return fields
	}
	out := make([]zapcore.Field, 0, len(fields))
	for _, f := range fields {
		out = append(out, SanitizeField(f))
	}
	return out
}

// SanitizeField redacts or fingerprints a single field based on its key.
func SanitizeField(f zapcore.Field) zapcore.Field {
	key := normalizeKey(f.Key)
	switch {
	case isSensitiveKey(key):
		return zap.String(f.Key, redactedValue)
	case shouldFingerprintKey(key):
		return zap.String(fingerprintKeyName(f.Key), FingerprintID(fieldString(f)))
	}
	return f
}

// Payload logs a JSON payload under key with sensitive members scrubbed.
// Payloads that are not valid JSON are logged by length only.
func Payload(key string, raw []byte) zap.Field {
	if len(raw) == 0 {
		return zap.Skip()
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return zap.Int(key+"_len", len(raw))
	}
	out, err := json.Marshal(scrub(v))
	if err != nil {
		return zap.Int(key+"_len", len(raw))
	}
	return zap.String(key, string(out))
}

// FingerprintID returns a stable per-process fingerprint of an identifier.
func FingerprintID(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(trimmed + "|" + bootNonce))
	return "fp_" + hex.EncodeToString(sum[:8])
}

func scrub(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			key := normalizeKey(k)
			switch {
			case isSensitiveKey(key):
				out[k] = redactedValue
			case shouldFingerprintKey(key):
				out[fingerprintKeyName(k)] = FingerprintID(fmt.Sprint(val))
			default:
				out[k] = scrub(val)
			}
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = scrub(val)
		}
		return out
	default:
		return v
	}
}

// normalizeKey folds camelCase and snake_case spellings together.
func normalizeKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	return strings.NewReplacer("_", "", "-", "").Replace(key)
}

func shouldFingerprintKey(key string) bool {
	_, ok := fingerprintedKeys[key]
	return ok
}

func fingerprintKeyName(key string) string {
	if strings.HasSuffix(strings.ToLower(strings.TrimSpace(key)), "_fp") {
		return key
	}
	return key + "_fp"
}

func isSensitiveKey(key string) bool {
	for _, part := range sensitiveKeyParts {
		if strings.Contains(key, part) {
			return true
		}
	}
	return false
}

func fieldString(f zapcore.Field) string {
	switch f.Type {
	case zapcore.StringType:
		return f.String
	case zapcore.Int64Type, zapcore.Int32Type, zapcore.Int16Type, zapcore.Int8Type,
		zapcore.Uint64Type, zapcore.Uint32Type, zapcore.Uint16Type, zapcore.Uint8Type:
		return fmt.Sprintf("%d", f.Integer)
	case zapcore.StringerType:
		if s, ok := f.Interface.(fmt.Stringer); ok {
			return s.String()
		}
	}
	if f.Interface != nil {
		return fmt.Sprint(f.Interface)
	}
	return f.String
}

func randomNonce() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "fallback_nonce"
	}
	return hex.EncodeToString(buf)
}
