package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	t.Setenv("TRANSIT_DATA", "/srv/transit")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "tilde", in: "~", want: "/home/tester"},
		{name: "tilde prefix", in: "~/db/transit.db", want: "/home/tester/db/transit.db"},
		{name: "env var", in: "$TRANSIT_DATA/transit.db", want: "/srv/transit/transit.db"},
		{name: "absolute", in: "/var/lib/transit.db", want: "/var/lib/transit.db"},
		{name: "tilde in the middle", in: "/tmp/~/x", want: "/tmp/~/x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.in))
		})
	}
}

func TestDir(t *testing.T) {
	t.Setenv("HOME", "/home/tester")

	t.Setenv("XDG_CONFIG_HOME", "")
	dir, err := Dir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/home/tester", ".config", "transit"), dir)

	t.Setenv("XDG_CONFIG_HOME", "/etc/xdg")
	dir, err = Dir()
	require.NoError(t, err)
	assert.Equal(t, "/etc/xdg/transit", dir)
}
