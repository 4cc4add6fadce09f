package core

// read.go loads an upload into memory and cleans up common export artifacts:
// a UTF-8 byte order mark from spreadsheet tools and invalid UTF-8 bytes from
// legacy encodings (replaced with U+FFFD).

import (
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"
)

// DefaultMaxFileSize is used when ReadUpload is given a non-positive limit.
const DefaultMaxFileSize int64 = 10 * 1024 * 1024

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadUpload reads r fully. It fails with a KindReadFailure error on I/O
// errors or when the content is larger than maxSize bytes.
func ReadUpload(r io.Reader, maxSize int64) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, newError(KindReadFailure, "", err)
	}
	if int64(len(data)) > maxSize {
		return nil, newError(KindReadFailure, "", fmt.Errorf("%w: exceeds %d bytes", ErrFileTooLarge, maxSize))
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	return sanitizeUTF8(data), nil
}

func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune(utf8.RuneError)
		} else {
			buf.Write(data[:size])
		}
		data = data[size:]
	}

	return buf.Bytes()
}
