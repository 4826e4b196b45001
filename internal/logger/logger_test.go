package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeKVsRedactsSecrets(t *testing.T) {
	out := sanitizeKVs([]interface{}{"user", "alice", "password", "hunter2", "id_token", "abc"})
	assert.Equal(t, []interface{}{"user", "alice", "password", "[REDACTED]", "id_token", "[REDACTED]"}, out)
}

func TestSanitizeKVsKeepsDanglingValue(t *testing.T) {
	out := sanitizeKVs([]interface{}{"order_id", 7, "orphan"})
	assert.Equal(t, []interface{}{"order_id", 7, "orphan"}, out)
}
