package postgres

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payloadRow struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

func TestPayloadCodec_SmallPayloadStaysPlain(t *testing.T) {
	codec, err := NewPayloadCodec(0)
	require.NoError(t, err)

	data, algo, err := codec.Encode([]payloadRow{{Row: 2, Message: "sku is required"}})
	require.NoError(t, err)
	assert.Equal(t, CompressionNone, algo)
	assert.JSONEq(t, `[{"row":2,"message":"sku is required"}]`, string(data))
}

func TestPayloadCodec_LargePayloadIsCompressed(t *testing.T) {
	codec, err := NewPayloadCodec(256)
	require.NoError(t, err)

	rows := make([]payloadRow, 200)
	for i := range rows {
		rows[i] = payloadRow{Row: i + 2, Message: strings.Repeat("unknown sku ", 3)}
	}

	data, algo, err := codec.Encode(rows)
	require.NoError(t, err)
	assert.Equal(t, CompressionZstd, algo)

	var decoded []payloadRow
	require.NoError(t, codec.Decode(data, algo, &decoded))
	assert.Equal(t, rows, decoded)
}

func TestPayloadCodec_DecodeEmpty(t *testing.T) {
	codec, err := NewPayloadCodec(0)
	require.NoError(t, err)

	var decoded []payloadRow
	require.NoError(t, codec.Decode(nil, CompressionZstd, &decoded))
	assert.Nil(t, decoded)
}
