package postgres

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationCatalogIsOrdered(t *testing.T) {
	steps := Migrations()
	require.NotEmpty(t, steps)

	versions := make([]string, 0, len(steps))
	names := make(map[string]bool, len(steps))
	for _, step := range steps {
		assert.NotEmpty(t, step.Version)
		assert.NotEmpty(t, step.Name)
		assert.NotEmpty(t, step.Statements)

		assert.False(t, names[step.Name], "duplicate migration name %q", step.Name)
		names[step.Name] = true
		versions = append(versions, step.Version)
	}

	assert.True(t, sort.StringsAreSorted(versions), "versions must apply in lexical order: %v", versions)

	unique := make(map[string]bool, len(versions))
	for _, v := range versions {
		assert.False(t, unique[v], "duplicate version %q", v)
		unique[v] = true
	}
}

func TestMigrationCatalogCreatesExpectedSchema(t *testing.T) {
	joined := strings.Join(flattenStatements(t), "\n")

	assert.Contains(t, joined, "CREATE TABLE IF NOT EXISTS workflows")
	assert.Contains(t, joined, "CREATE TABLE IF NOT EXISTS generation_records")

	// Columns the repositories read and write.
	for _, col := range []string{"status", "graph JSONB", "deleted_at", "repair_errors", "duration_ms", "debug_key"} {
		assert.Contains(t, joined, col)
	}

	assert.Contains(t, joined, "ON DELETE SET NULL")
}

func TestMigrationCatalogIsRerunSafe(t *testing.T) {
	// Every DDL statement must tolerate being replayed against an existing
	// schema; startup always runs the full catalog.
	for _, stmt := range flattenStatements(t) {
		assert.True(t, strings.Contains(stmt, "IF NOT EXISTS"), "statement is not replay safe: %s", stmt)
	}

	assert.Contains(t, migrationTableDDL, "IF NOT EXISTS")
}

func flattenStatements(t *testing.T) []string {
	t.Helper()

	var all []string
	for _, step := range Migrations() {
		all = append(all, step.Statements...)
	}
	require.NotEmpty(t, all)
	return all
}
