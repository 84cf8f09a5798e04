package artifacts

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/zstd"
)

// Encoding identifies how blob bytes are stored.
type Encoding string

const (
	EncodingNone Encoding = "none"
	EncodingZstd Encoding = "zstd"
)

// Blobs smaller than this are stored as-is.
const minCompressSize = 512

var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	zstdDecoder, _ = zstd.NewReader(nil)
)

// DetectContentType sniffs the MIME type of content.
func DetectContentType(content []byte) string {
	return mimetype.Detect(content).String()
}

// chooseEncoding compresses text-like content only. Images and archives are
// usually compressed already.
func chooseEncoding(content []byte, contentType string) Encoding {
	if len(content) < minCompressSize {
		return EncodingNone
	}
	if contentType == "" {
		contentType = DetectContentType(content)
	}
	mtype := mimetype.Lookup(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	if mtype == nil {
		mtype = mimetype.Detect(content)
	}
	for m := mtype; m != nil; m = m.Parent() {
		if m.Is("text/plain") || m.Is("text/xml") || m.Is("application/json") {
			return EncodingZstd
		}
	}
	return EncodingNone
}

func encode(content []byte, enc Encoding) ([]byte, error) {
	switch enc {
	case EncodingNone, "":
		return content, nil
	case EncodingZstd:
		return zstdEncoder.EncodeAll(content, make([]byte, 0, len(content)/2)), nil
	default:
		return nil, fmt.Errorf("unsupported blob encoding %q", enc)
	}
}

func decode(stored []byte, enc Encoding, size int64) ([]byte, error) {
	switch enc {
	case EncodingNone, "":
		return stored, nil
	case EncodingZstd:
		out, err := zstdDecoder.DecodeAll(stored, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("zstd decode: %w", err)
		}
		if int64(len(out)) != size {
			return nil, fmt.Errorf("zstd decode: size %d does not match expected %d", len(out), size)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported blob encoding %q", enc)
	}
}
