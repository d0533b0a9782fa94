package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kFady/stereo-site-1/internal/infrastructure/monitoring/logging"
)

func TestMockLogger_RecordsLevelsAndFields(t *testing.T) {
	m := NewMockLogger()
	m.Info("started", logging.String("component", "editor"))
	m.Warn("slow request")
	m.Error("boom", logging.Int("attempt", 2))

	all := m.Messages()
	require.Len(t, all, 3)
	assert.Equal(t, "started", all[0].Message)
	assert.Equal(t, "component", all[0].Fields[0].Key)

	errs := m.MessagesAt("error")
	require.Len(t, errs, 1)
	assert.Equal(t, "boom", errs[0].Message)

	m.Reset()
	assert.Empty(t, m.Messages())
}

func TestMockLogger_ChildLoggersShareRecorder(t *testing.T) {
	m := NewMockLogger()
	m.Named("http").With(logging.String("k", "v")).Info("hello")

	require.Len(t, m.Messages(), 1)
}
