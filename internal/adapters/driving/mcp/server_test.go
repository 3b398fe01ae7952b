package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	t.Run("nil ports returns error", func(t *testing.T) {
		server, err := NewServer(nil)
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingIndexService)
	})

	t.Run("nil index service returns error", func(t *testing.T) {
		server, err := NewServer(&Ports{})
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingIndexService)
	})

	t.Run("index only creates server", func(t *testing.T) {
		server, err := NewServer(&Ports{Index: &mockIndexService{}})
		require.NoError(t, err)
		assert.NotNil(t, server)
	})

	t.Run("all ports creates server", func(t *testing.T) {
		server, err := NewServer(&Ports{
			Index:       &mockIndexService{},
			Retrieval:   &mockRetrievalService{},
			Compression: &mockCompressionService{},
		})
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func TestPorts_Validate(t *testing.T) {
	t.Run("missing index", func(t *testing.T) {
		ports := &Ports{Retrieval: &mockRetrievalService{}}
		assert.ErrorIs(t, ports.Validate(), ErrMissingIndexService)
	})

	t.Run("index only is valid", func(t *testing.T) {
		ports := &Ports{Index: &mockIndexService{}}
		assert.NoError(t, ports.Validate())
	})
}
