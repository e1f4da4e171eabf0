package utils

import (
	"sync"
)

// OptionalMutex is a mutex that only locks when UseMutex is set. Descriptor heaps and the
// device manager are single-producer by default and opt into locking through their create flags.
type OptionalMutex struct {
	Mutex    sync.Mutex
	UseMutex bool
}

func (m *OptionalMutex) Lock() {
	if m.UseMutex {
		m.Mutex.Lock()
	}
}

func (m *OptionalMutex) Unlock() {
	if m.UseMutex {
		m.Mutex.Unlock()
	}
}
