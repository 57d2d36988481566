package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcourtman/mcp-fuzzer/internal/config"
	"github.com/rcourtman/mcp-fuzzer/internal/transport"
)

func TestBuildDriverDispatchesByKind(t *testing.T) {
	cases := []struct {
		kind config.TransportKind
		want interface{}
	}{
		{config.TransportHTTP, &transport.HTTPDriver{}},
		{config.TransportStreamHTTP, &transport.StreamableHTTPDriver{}},
		{config.TransportSSE, &transport.SSEDriver{}},
	}

	for _, tc := range cases {
		cfg := config.Default()
		cfg.Transport.Kind = tc.kind
		cfg.Transport.Endpoint = "http://127.0.0.1:0/mcp"

		driver, stop, err := buildDriver(context.Background(), cfg)
		require.NoError(t, err)
		t.Cleanup(stop)
		assert.IsType(t, tc.want, driver)
	}
}

func TestBuildDriverRejectsUnknownKind(t *testing.T) {
	cfg := config.Default()
	cfg.Transport.Kind = "carrier-pigeon"

	_, _, err := buildDriver(context.Background(), cfg)
	assert.Error(t, err)
}

func TestBuildDriverStdioRequiresCommand(t *testing.T) {
	cfg := config.Default()
	cfg.Transport.Kind = config.TransportStdio
	cfg.Transport.Command = nil

	_, _, err := buildDriver(context.Background(), cfg)
	assert.Error(t, err)
}
