// Package encoding renders raw random bytes in the handful of output
// formats mixrand's CLI supports. Each encoder is a thin adapter over
// an existing representation; there is no shared abstraction beyond
// the single Encode entry point, since the formats have nothing in
// common besides taking bytes in and text (or the same bytes) out.
package encoding

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/mixrand/mixrand/internal/mixerr"
)

// Format names one of the supported output encodings.
type Format string

const (
	Hex       Format = "hex"
	HexUpper  Format = "hex-upper"
	Raw       Format = "raw"
	Base64    Format = "base64"
	Base64URL Format = "base64url"
	UUEncode  Format = "uuencode"
	Text      Format = "text"
	Octal     Format = "octal"
	Binary    Format = "binary"
)

// Encode renders b in the named format, returning text output as
// bytes ready to write to the destination. Raw and UUEncode-wrapped
// output both return bytes suitable for a direct write; every other
// format appends a single trailing newline, matching the convention
// CLI byte-generators use for terminal-friendly output. A zero-length
// b always yields zero-length output, regardless of format: an empty
// request produces nothing, not an empty line.
func Encode(format Format, b []byte) ([]byte, error) {
	if len(b) == 0 {
		if _, err := validFormat(format); err != nil {
			return nil, err
		}
		return []byte{}, nil
	}
	switch format {
	case Hex:
		return append([]byte(hex.EncodeToString(b)), '\n'), nil
	case HexUpper:
		return append([]byte(strings.ToUpper(hex.EncodeToString(b))), '\n'), nil
	case Raw:
		return b, nil
	case Base64:
		return append([]byte(base64.StdEncoding.EncodeToString(b)), '\n'), nil
	case Base64URL:
		return append([]byte(base64.URLEncoding.EncodeToString(b)), '\n'), nil
	case UUEncode:
		return uuencode(b), nil
	case Text:
		return encodeText(b), nil
	case Octal:
		return encodeOctal(b), nil
	case Binary:
		return encodeBinary(b), nil
	default:
		return nil, mixerr.New(mixerr.ConfigInvalid, "encoding.encode", fmt.Errorf("unrecognized format %q", format))
	}
}

// validFormat reports whether format is one Encode recognizes, without
// producing any output. Used to keep the zero-length fast path in
// Encode from masking an unrecognized format as a silent success.
func validFormat(format Format) (Format, error) {
	switch format {
	case Hex, HexUpper, Raw, Base64, Base64URL, UUEncode, Text, Octal, Binary:
		return format, nil
	default:
		return "", mixerr.New(mixerr.ConfigInvalid, "encoding.encode", fmt.Errorf("unrecognized format %q", format))
	}
}

// encodeText renders each byte as a decimal number separated by
// spaces, a human-skimmable debug format.
func encodeText(b []byte) []byte {
	parts := make([]string, len(b))
	for i, by := range b {
		parts[i] = fmt.Sprintf("%d", by)
	}
	return append([]byte(strings.Join(parts, " ")), '\n')
}

// encodeOctal renders each byte as three octal digits.
func encodeOctal(b []byte) []byte {
	var sb strings.Builder
	for i, by := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%03o", by)
	}
	sb.WriteByte('\n')
	return []byte(sb.String())
}

// encodeBinary renders each byte as eight '0'/'1' characters.
func encodeBinary(b []byte) []byte {
	var sb strings.Builder
	for i, by := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}
		for bit := 7; bit >= 0; bit-- {
			if by&(1<<uint(bit)) != 0 {
				sb.WriteByte('1')
			} else {
				sb.WriteByte('0')
			}
		}
	}
	sb.WriteByte('\n')
	return []byte(sb.String())
}

// uuencodeLineLen is the classic BSD uuencode line length: 45 raw
// bytes per encoded line, the largest multiple of 3 that keeps encoded
// lines under the traditional 62-character limit.
const uuencodeLineLen = 45

// uuencode implements the traditional uuencode text transform: each
// group of up to 3 bytes becomes 4 printable characters offset from
// ' ' (0x20), length-prefixed per line, terminated by a single '`'
// line and an "end" marker. No third-party implementation of this
// legacy format exists in the dependency pack, so it's hand-rolled
// directly from the well-known algorithm.
func uuencode(b []byte) []byte {
	var sb strings.Builder
	sb.WriteString("begin 644 mixrand.bin\n")
	for off := 0; off < len(b); off += uuencodeLineLen {
		end := off + uuencodeLineLen
		if end > len(b) {
			end = len(b)
		}
		line := b[off:end]
		sb.WriteByte(uuchar(byte(len(line))))
		for i := 0; i < len(line); i += 3 {
			var group [3]byte
			n := copy(group[:], line[i:])
			sb.WriteByte(uuchar(group[0] >> 2))
			sb.WriteByte(uuchar(((group[0] << 4) | (group[1] >> 4)) & 0x3f))
			if n > 1 {
				sb.WriteByte(uuchar(((group[1] << 2) | (group[2] >> 6)) & 0x3f))
			} else {
				sb.WriteByte(uuchar(0))
			}
			if n > 2 {
				sb.WriteByte(uuchar(group[2] & 0x3f))
			} else {
				sb.WriteByte(uuchar(0))
			}
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("`\nend\n")
	return []byte(sb.String())
}

// uuchar maps a 6-bit value to its uuencode character: 0 maps to '`'
// (0x60) rather than space, the traditional substitution that avoids
// trailing-whitespace corruption by mail transports.
func uuchar(v byte) byte {
	v &= 0x3f
	if v == 0 {
		return '`'
	}
	return v + ' '
}
