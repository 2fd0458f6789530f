package queue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type noopHandler struct{}

func (noopHandler) Handle(ctx context.Context, job *Job) error { return nil }

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()

	_, ok := r.Lookup(JobTypeHealthCheck)
	assert.False(t, ok)

	r.Register(JobMetadata{Type: JobTypeHealthCheck, Name: "Health Check"}, noopHandler{})

	handler, ok := r.Lookup(JobTypeHealthCheck)
	assert.True(t, ok)
	assert.NotNil(t, handler)

	meta, ok := r.Metadata(JobTypeHealthCheck)
	assert.True(t, ok)
	assert.Equal(t, "Health Check", meta.Name)
}

func TestRegistryReregisterReplaces(t *testing.T) {
	r := NewRegistry()
	r.Register(JobMetadata{Type: "X", Name: "first"}, noopHandler{})
	r.Register(JobMetadata{Type: "X", Name: "second"}, noopHandler{})

	meta, ok := r.Metadata("X")
	assert.True(t, ok)
	assert.Equal(t, "second", meta.Name)
}

func TestRegistryTypesListsAllRegistered(t *testing.T) {
	r := NewRegistry()
	r.Register(JobMetadata{Type: "A"}, noopHandler{})
	r.Register(JobMetadata{Type: "B"}, noopHandler{})

	types := r.Types()
	assert.Len(t, types, 2)
}
