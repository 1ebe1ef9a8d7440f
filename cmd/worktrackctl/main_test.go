package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worktrack/pkg/accounts"
	"worktrack/pkg/schema"
)

func TestCommandTree(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"migrate", "create-user", "report", "inbox", "events", "prune-tokens"} {
		assert.Contains(t, names, want)
	}

	for _, sub := range []string{"up", "down", "version", "status"} {
		migrate, _, err := root.Find([]string{"migrate", sub})
		require.NoError(t, err)
		assert.Equal(t, sub, migrate.Name())
	}

	report, _, err := root.Find([]string{"report"})
	require.NoError(t, err)
	for _, flag := range []string{"username", "month", "list"} {
		assert.NotNil(t, report.Flags().Lookup(flag), flag)
	}
}

func TestArgumentValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"create-user needs three args", []string{"create-user", "sam"}},
		{"prune-tokens takes none", []string{"prune-tokens", "extra"}},
		{"report needs a username", []string{"report", "--month", "2024-05"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := newRootCmd()
			var out bytes.Buffer
			root.SetOut(&out)
			root.SetErr(&out)
			root.SetArgs(tt.args)
			assert.Error(t, root.Execute())
		})
	}
}

func TestOpenDBRequiresDSN(t *testing.T) {
	t.Setenv("DB_DSN", "")
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"report", "--username", "sam"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_DSN")
}

func TestCreateUserValidatesBeforeConnecting(t *testing.T) {
	t.Setenv("DB_DSN", "")
	tests := []struct {
		args  []string
		field string
	}{
		{[]string{"create-user", "ab", "ab@example.com", "secret1"}, "username"},
		{[]string{"create-user", "sam", "sam-at-example", "secret1"}, "email"},
		{[]string{"create-user", "sam", "sam@example.com", "123"}, "password"},
		{[]string{"create-user", "sam", "sam@example.com", "secret1", "--hourly-rate=-2"}, "hourlyrate"},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			root := newRootCmd()
			var out bytes.Buffer
			root.SetOut(&out)
			root.SetErr(&out)
			root.SetArgs(tt.args)
			err := root.Execute()
			require.ErrorIs(t, err, accounts.ErrInvalidUser)
			assert.Contains(t, err.Error(), tt.field)
		})
	}

	// valid input gets past validation and fails on the missing database
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"create-user", "sam", "sam@example.com", "secret1"})
	assert.ErrorContains(t, root.Execute(), "DB_DSN")
}

func TestFormatStatus(t *testing.T) {
	files, err := schema.Files()
	require.NoError(t, err)

	assert.Equal(t, "pending  000001_init\n", formatStatus(files, 0, false))
	assert.Equal(t, "applied  000001_init\n", formatStatus(files, 1, false))
	assert.Equal(t, "dirty    000001_init\n", formatStatus(files, 1, true))

	out := formatStatus([]string{"000001_a.up.sql", "000001_a.down.sql", "000002_b.up.sql"}, 1, false)
	assert.Equal(t, "applied  000001_a\npending  000002_b\n", out)
}
