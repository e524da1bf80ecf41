package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommands(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"report", "--from", "2020-03-13", "--to", "2020-03-20"}, "report"},
		{[]string{"--from", "2020-03-13", "--to", "2020-03-20", "--json"}, "report"},
		{[]string{"tasks"}, "tasks list"},
		{[]string{"tasks", "set", "Lavender=CS188"}, "tasks set <pairs>"},
		{[]string{"history", "show", "abc"}, "history show <id>"},
		{[]string{"calendar", "set", "School"}, "calendar set <name>"},
		{[]string{"palette", "--offline"}, "palette"},
	}
	for _, tt := range tests {
		var c CLI
		parser, err := newParser(&c)
		require.NoError(t, err)
		kctx, err := parser.Parse(tt.args)
		require.NoError(t, err, tt.args)
		assert.Equal(t, tt.want, kctx.Command(), tt.args)
	}
}

func TestParseReportFlags(t *testing.T) {
	var c CLI
	parser, err := newParser(&c)
	require.NoError(t, err)

	_, err = parser.Parse([]string{"report", "--source", "ics", "-f", "cal.ics", "--window", "14", "--workers", "4"})
	require.NoError(t, err)
	assert.Equal(t, "ics", c.Report.Source)
	assert.Equal(t, "cal.ics", c.Report.File)
	assert.Equal(t, 14, c.Report.Window)
	assert.Equal(t, 4, c.Report.Workers)

	_, err = parser.Parse([]string{"report", "--source", "outlook"})
	assert.Error(t, err)
}
