package report

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSinkDisabled(t *testing.T) {
	for _, typ := range []string{"", "none"} {
		sink, err := NewSink(context.Background(), &Config{Type: typ})
		require.NoError(t, err)
		assert.Nil(t, sink)
	}
}

func TestNewSinkLocal(t *testing.T) {
	sink, err := NewSink(context.Background(), &Config{
		Type:  "local",
		Local: &LocalConfig{Dir: t.TempDir()},
	})
	require.NoError(t, err)
	assert.IsType(t, &LocalSink{}, sink)
}

func TestNewSinkMissingConfig(t *testing.T) {
	for _, typ := range []string{"local", "s3", "gcs"} {
		_, err := NewSink(context.Background(), &Config{Type: typ})
		assert.Error(t, err, typ)
	}
}

func TestNewSinkUnsupportedType(t *testing.T) {
	_, err := NewSink(context.Background(), &Config{Type: "ftp"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported report sink type")
}
