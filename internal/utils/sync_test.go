package utils_test

import (
	"testing"

	"github.com/framegpu/gpucore/internal/utils"
	"github.com/stretchr/testify/require"
)

func TestOptionalMutexNoop(t *testing.T) {
	var m utils.OptionalMutex
	m.Lock()
	m.Lock()
	m.Unlock()

	m.UseMutex = true
	m.Lock()
	require.False(t, m.Mutex.TryLock())
	m.Unlock()
}
