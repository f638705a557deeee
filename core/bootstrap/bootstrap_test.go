package bootstrap

import (
	"context"
	"errors"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/shopbot/core/config"
	coredatabase "github.com/m3rciful/shopbot/core/database"
)

func TestRunMemoryDriverSkipsDatabase(t *testing.T) {
	connected := false
	res, err := Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		Database:   coredatabase.Config{Driver: coredatabase.DriverMemory},
		LoggerInit: func(*coreconfig.Config) error { return nil },
		Connect: func(context.Context, coredatabase.Config) (*sqlx.DB, error) {
			connected = true
			return nil, errors.New("unexpected")
		},
	})
	require.NoError(t, err)
	assert.Nil(t, res.DB)
	assert.False(t, connected)
}

func TestRunPropagatesConnectFailure(t *testing.T) {
	migrated := false
	_, err := Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		Database:   coredatabase.Config{Driver: coredatabase.DriverPostgres},
		Migrations: fstest.MapFS{},
		LoggerInit: func(*coreconfig.Config) error { return nil },
		Connect: func(context.Context, coredatabase.Config) (*sqlx.DB, error) {
			return nil, errors.New("refused")
		},
		Migrate: func(coredatabase.Config, fs.FS, string) error {
			migrated = true
			return nil
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused")
	assert.False(t, migrated)
}

func TestRunSeedersStopsAtFirstFailure(t *testing.T) {
	var calls []string
	err := RunSeeders(context.Background(),
		SeederFunc(func(context.Context) error { calls = append(calls, "a"); return nil }),
		nil,
		SeederFunc(func(context.Context) error { calls = append(calls, "b"); return errors.New("bad yaml") }),
		SeederFunc(func(context.Context) error { calls = append(calls, "c"); return nil }),
	)
	require.Error(t, err)
	assert.Equal(t, []string{"a", "b"}, calls)
}
