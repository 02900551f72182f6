package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/flarexio/kdvector"
	"github.com/flarexio/kdvector/embedding/hash"
)

func newServer(t *testing.T) *StdioServer {
	svc, err := kdvector.NewService(context.Background(),
		kdvector.Config{Dimension: 16}, hash.NewHashEmbedder(16), nil, nil)
	require.NoError(t, err)

	t.Cleanup(func() { svc.Close() })

	return NewStdioServer(svc, zap.NewNop())
}

func TestServe(t *testing.T) {
	assert := assert.New(t)

	input := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05"}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		``,
		`not json`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"upload_document","arguments":{"text":"One. Two."}}}`,
		`{"jsonrpc":"2.0","id":3,"method":"resources/list"}`,
	}, "\n")

	var out bytes.Buffer
	err := newServer(t).Serve(context.Background(), strings.NewReader(input), &out)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)

	var resp struct {
		ID     int             `json:"id"`
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code int `json:"code"`
		} `json:"error"`
	}

	require.NoError(t, json.Unmarshal([]byte(lines[0]), &resp))
	assert.Equal(1, resp.ID)
	assert.Contains(string(resp.Result), `"kdvector"`)

	require.NoError(t, json.Unmarshal([]byte(lines[1]), &resp))
	assert.Equal(2, resp.ID)
	assert.Contains(string(resp.Result), `\"chunks\":2`)

	resp.Error = nil
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &resp))
	assert.Equal(3, resp.ID)
	if assert.NotNil(resp.Error) {
		assert.Equal(-32601, resp.Error.Code)
	}
}

func TestServeCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := newServer(t).Serve(ctx, strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`), &out)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out.String())
}
