package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// CompressionAlgo names how a stored payload is encoded.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// DefaultCompressThreshold is the payload size above which zstd is applied.
const DefaultCompressThreshold = 4 * 1024

// PayloadCodec stores JSON documents in bytea columns, zstd-compressing the
// ones larger than the threshold. Safe for concurrent use.
type PayloadCodec struct {
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	threshold int
}

// NewPayloadCodec creates a codec; threshold <= 0 uses DefaultCompressThreshold.
func NewPayloadCodec(threshold int) (*PayloadCodec, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	if threshold <= 0 {
		threshold = DefaultCompressThreshold
	}
	return &PayloadCodec{encoder: encoder, decoder: decoder, threshold: threshold}, nil
}

// Encode marshals v and compresses the result when it exceeds the threshold.
func (c *PayloadCodec) Encode(v any) ([]byte, CompressionAlgo, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, "", fmt.Errorf("marshal payload: %w", err)
	}
	if len(raw) <= c.threshold {
		return raw, CompressionNone, nil
	}
	return c.encoder.EncodeAll(raw, nil), CompressionZstd, nil
}

// Decode reverses Encode into v.
func (c *PayloadCodec) Decode(data []byte, algo CompressionAlgo, v any) error {
	if len(data) == 0 {
		return nil
	}
	if algo == CompressionZstd {
		raw, err := c.decoder.DecodeAll(data, nil)
		if err != nil {
			return fmt.Errorf("decompress payload: %w", err)
		}
		data = raw
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	return nil
}
