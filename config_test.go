package lox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := NewConfig()
	assert.False(t, cfg.StressGC)
	assert.False(t, cfg.LogGC)
	assert.False(t, cfg.TraceExecution)
	assert.False(t, cfg.PrintCode)
	assert.Equal(t, 1024*1024, cfg.InitialGCThreshold)
	assert.Equal(t, 2, cfg.GCGrowthFactor)
}

func TestConfig_TuningIsHonored(t *testing.T) {
	cfg := NewConfig()
	cfg.InitialGCThreshold = 4096
	cfg.GCGrowthFactor = 3

	vm := NewVM(cfg)
	require.Equal(t, 4096, vm.nextGC)

	vm.collectGarbage()
	assert.Equal(t, vm.bytesAllocated*3, vm.nextGC)
}
