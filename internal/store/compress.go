package store

import (
	"fmt"
	"sync"

	"plansynth/internal/types"

	"github.com/klauspost/compress/zstd"
)

var (
	codecOnce sync.Once
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	codecErr  error
)

// codec returns process-wide zstd state. EncodeAll and DecodeAll are safe
// for concurrent use.
func codec() (*zstd.Encoder, *zstd.Decoder, error) {
	codecOnce.Do(func() {
		encoder, codecErr = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.SpeedDefault),
			// empty plans still get a frame so they read back as empty, not NULL
			zstd.WithZeroFrames(true))
		if codecErr != nil {
			return
		}
		decoder, codecErr = zstd.NewReader(nil)
	})
	return encoder, decoder, codecErr
}

// compressPlan stores the canonical plan text. A nil plan (synthesis
// failed) is stored as NULL.
func compressPlan(p types.Plan) ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	enc, _, err := codec()
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	return enc.EncodeAll([]byte(p.String()), make([]byte, 0, 64)), nil
}

func decompressPlan(blob []byte) (types.Plan, error) {
	if len(blob) == 0 {
		return nil, nil
	}
	_, dec, err := codec()
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	text, err := dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress plan: %w", err)
	}
	plan, err := types.ParsePlan(string(text))
	if err != nil {
		return nil, err
	}
	if plan == nil {
		plan = types.Plan{}
	}
	return plan, nil
}
