package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMemory(t *testing.T) {
	d, err := OpenMemory()
	require.NoError(t, err)
	defer d.Close()

	for _, table := range []string{"sessions", "session_messages", "code_history", "audit_entries"} {
		var count int
		err := d.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count)
		assert.NoError(t, err, "table %s", table)
	}
	assert.Equal(t, ":memory:", d.Path())
}

func TestMigrateIdempotent(t *testing.T) {
	d, err := OpenMemory()
	require.NoError(t, err)
	defer d.Close()

	require.NoError(t, d.migrate())
}

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sessions.db")
	d, err := Open(path)
	require.NoError(t, err)
	defer d.Close()

	_, err = d.Exec(`INSERT INTO sessions (id) VALUES ('s1')`)
	require.NoError(t, err)

	var state string
	require.NoError(t, d.QueryRow(`SELECT state FROM sessions WHERE id = 's1'`).Scan(&state))
	assert.Equal(t, "collecting", state)
}

func TestStateCheckConstraint(t *testing.T) {
	d, err := OpenMemory()
	require.NoError(t, err)
	defer d.Close()

	_, err = d.Exec(`INSERT INTO sessions (id, state) VALUES ('s1', 'bogus')`)
	assert.Error(t, err)
}

func TestAuditActorTypeCheckConstraint(t *testing.T) {
	d, err := OpenMemory()
	require.NoError(t, err)
	defer d.Close()

	_, err = d.Exec(`INSERT INTO audit_entries (id, actor_type, action) VALUES ('a1', 'robot', 'session_started')`)
	assert.Error(t, err)

	_, err = d.Exec(`INSERT INTO audit_entries (id, actor_type, action) VALUES ('a2', 'system', 'session_started')`)
	assert.NoError(t, err)
}
