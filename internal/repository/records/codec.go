package records

import (
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/kailas-cloud/pkgdex/internal/domain"
)

// dictMagic prefixes trained zstd dictionaries; anything else is raw content.
const dictMagic = 0xEC30A437

const maxDecodedSize = 64 << 20

type decoder interface {
	DecodeAll(input, dst []byte) ([]byte, error)
}

// Codec decompresses record payloads with the shared dictionary,
// retrying without it when dictionary-aware decoding fails.
// It is safe for concurrent use and immutable after construction.
type Codec struct {
	withDict decoder
	plain    decoder
	closers  []func()
}

// NewCodec builds decoders for dict. A nil or empty dict yields a dictionary-free codec.
func NewCodec(dict []byte) (*Codec, error) {
	plain, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDecodedSize))
	if err != nil {
		return nil, fmt.Errorf("create decoder: %w", err)
	}
	c := &Codec{plain: plain, closers: []func(){plain.Close}}
	if len(dict) == 0 {
		return c, nil
	}

	var opt zstd.DOption
	if isTrainedDict(dict) {
		opt = zstd.WithDecoderDicts(dict)
	} else {
		// Frames compressed against raw content carry dictionary id 0.
		opt = zstd.WithDecoderDictRaw(0, dict)
	}
	withDict, err := zstd.NewReader(nil, opt, zstd.WithDecoderMaxMemory(maxDecodedSize))
	if err != nil {
		plain.Close()
		return nil, fmt.Errorf("load dictionary: %w", err)
	}
	c.withDict = withDict
	c.closers = append(c.closers, withDict.Close)
	return c, nil
}

func isTrainedDict(dict []byte) bool {
	return len(dict) >= 8 && binary.LittleEndian.Uint32(dict[:4]) == dictMagic
}

// Decode returns the decompressed payload.
func (c *Codec) Decode(src []byte) ([]byte, error) {
	var dictErr error
	if c.withDict != nil {
		out, err := c.withDict.DecodeAll(src, nil)
		if err == nil {
			return out, nil
		}
		dictErr = err
	}
	out, err := c.plain.DecodeAll(src, nil)
	if err != nil {
		if dictErr != nil {
			return nil, fmt.Errorf("%w: with dictionary: %v; without: %v", domain.ErrDecompressionFailed, dictErr, err)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrDecompressionFailed, err)
	}
	return out, nil
}

// Close releases decoder goroutines.
func (c *Codec) Close() {
	for _, fn := range c.closers {
		fn()
	}
}
