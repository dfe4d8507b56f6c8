package crawler

import (
	"bytes"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBody(t *testing.T) {
	var buf bytes.Buffer
	w := brotli.NewWriter(&buf)
	_, err := w.Write([]byte(`{"page":1}`))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	out, err := decodeBody("br", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, `{"page":1}`, string(out))

	out, err = decodeBody("", []byte(`plain`))
	require.NoError(t, err)
	assert.Equal(t, "plain", string(out))

	out, err = decodeBody(" BR ", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, `{"page":1}`, string(out))
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(&fatalError{assert.AnError}))
	assert.False(t, IsFatal(assert.AnError))
	assert.False(t, IsFatal(nil))
}
