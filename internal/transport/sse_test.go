package transport

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSSEBody_SingleDataLine(t *testing.T) {
	r := strings.NewReader("data: {\"jsonrpc\":\"2.0\",\"id\":1,\"result\":null}\n\n")
	out, err := readSSEBody(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":1,"result":null}`, string(out))
}

func TestReadSSEBody_MultipleDataLinesConcatenate(t *testing.T) {
	r := strings.NewReader("event: message\ndata: {\"a\":\ndata: 1}\n\n")
	out, err := readSSEBody(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(out))
}

func TestReadSSEBody_EmptyStreamErrors(t *testing.T) {
	r := strings.NewReader("")
	_, err := readSSEBody(r)
	assert.Error(t, err)
}
