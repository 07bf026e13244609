package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foro/internal/config"
	"foro/internal/core"
	"foro/internal/docstore/memory"
	"foro/internal/docstore/sqlite"
	"foro/internal/log"
)

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	require.Error(t, err)

	_, err = FromAppConfig(&config.Config{Backend: "sheets"})
	require.Error(t, err)

	cfg, err := FromAppConfig(&config.Config{
		Backend:      "sqlite",
		SQLitePath:   "./data/foro.db",
		AMQPURL:      "amqp://localhost/",
		AMQPExchange: "foro.changes",
	})
	require.NoError(t, err)
	assert.Equal(t, SQLite, cfg.Type)
	assert.Equal(t, "foro.changes", cfg.AMQPExchange)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory", Config{Type: Memory}, false},
		{"sqlite", Config{Type: SQLite, SQLitePath: "x.db"}, false},
		{"sqlite without path", Config{Type: SQLite}, true},
		{"sqlite amqp without exchange", Config{Type: SQLite, SQLitePath: "x.db", AMQPURL: "amqp://localhost/"}, true},
		{"postgres without url", Config{Type: Postgres}, true},
		{"unknown", Config{Type: "sheets"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTypes(t *testing.T) {
	for _, typ := range Types() {
		assert.True(t, typ.IsValid(), typ.String())
	}
}

func TestCreate_Memory(t *testing.T) {
	ctx := context.Background()
	seed := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(seed, []byte(`{"events":{"ev1":{"title":"Meetup","date":"01/07/2025"}}}`), 0o600))

	res, err := NewFactory(log.Discard()).Create(ctx, Config{Type: Memory, SeedFile: seed})
	require.NoError(t, err)
	defer func() { require.NoError(t, res.Cleanup()) }()

	require.IsType(t, &memory.Store{}, res.Store)
	doc, err := res.Store.Get(ctx, core.EventsCollection, "ev1")
	require.NoError(t, err)
	assert.Equal(t, "Meetup", doc.GetString(core.KeyTitle))
}

func TestCreate_SQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db", "foro.db")

	res, err := NewFactory(log.Discard()).Create(ctx, Config{Type: SQLite, SQLitePath: path})
	require.NoError(t, err)
	require.IsType(t, &sqlite.Store{}, res.Store)

	id, err := res.Store.Create(ctx, core.ExpensesCollection, core.Document{core.KeyName: "Coffee"})
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.NoError(t, res.Cleanup())
}

func TestCreate_Invalid(t *testing.T) {
	_, err := NewFactory(nil).Create(context.Background(), Config{Type: Postgres})
	require.Error(t, err)
}
