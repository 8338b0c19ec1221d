package app

import (
	"crypto/rand"

	"github.com/google/uuid"
)

// generateID produces a random hex identifier for tenants.
// Isolated here so the ID strategy can evolve independently.
func generateID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	const hex = "0123456789abcdef"
	out := make([]byte, 32)
	for i, v := range b {
		out[i*2] = hex[v>>4]
		out[i*2+1] = hex[v&0x0f]
	}
	return string(out), nil
}

// newOperationID produces the opaque id used to poll an in-flight
// provisioning operation.
func newOperationID() string {
	return uuid.NewString()
}
