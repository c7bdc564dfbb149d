package store

import "testing"

func TestMemory(t *testing.T) {
	for _, c := range backendChecks {
		t.Run(c.name, func(t *testing.T) {
			c.fn(t, NewMemory())
		})
	}
}
