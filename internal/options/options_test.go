package options

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type config struct {
	size int
	name string
}

func TestApply(t *testing.T) {
	cfg := &config{}
	err := Apply(cfg,
		NoError(func(c *config) { c.size = 42 }),
		NoError(func(c *config) { c.name = "col" }),
	)
	require.NoError(t, err)
	require.Equal(t, 42, cfg.size)
	require.Equal(t, "col", cfg.name)
}

func TestApply_StopsOnError(t *testing.T) {
	boom := errors.New("boom")

	cfg := &config{}
	err := Apply(cfg,
		New(func(c *config) error { return boom }),
		NoError(func(c *config) { c.size = 1 }),
	)
	require.ErrorIs(t, err, boom)
	require.Equal(t, 0, cfg.size)
}
