package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swdee/go-alpr/config"
)

func TestOpenUnknownBackend(t *testing.T) {
	cfg := config.FromEnv()
	cfg.Backend = "tpu"

	_, err := Open(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestOpenMissingModel(t *testing.T) {
	cfg := config.FromEnv()
	cfg.Backend = config.BackendRKNN
	cfg.VehicleModel = t.TempDir() + "/missing.rknn"

	_, err := Open(cfg)
	assert.Error(t, err)
}

func TestReleaseRKNN(t *testing.T) {
	s := &Set{backend: config.BackendRKNN}
	assert.NoError(t, s.Release())
}
