package ingest

import (
	"bytes"
	"io"
	"os"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/simplifiedchinese"
	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

type EncodingResult struct {
	Encoding   string  `json:"encoding"`
	Confidence float64 `json:"confidence"`
	HasBOM     bool    `json:"has_bom"`
}

const sampleSize = 64 * 1024

// Single-byte and legacy multi-byte charsets tried when a file is neither
// UTF-8 nor UTF-16. Order breaks ties.
var legacyCandidates = []struct {
	name     string
	encoding encoding.Encoding
}{
	{"windows-1252", charmap.Windows1252},
	{"iso-8859-1", charmap.ISO8859_1},
	{"windows-1250", charmap.Windows1250},
	{"windows-1251", charmap.Windows1251},
	{"koi8r", charmap.KOI8R},
	{"shift-jis", japanese.ShiftJIS},
	{"gbk", simplifiedchinese.GBK},
}

func DetectEncoding(data []byte) EncodingResult {
	if len(data) == 0 {
		return EncodingResult{Encoding: "utf-8", Confidence: 1.0}
	}

	if result, ok := detectBOM(data); ok {
		return result
	}

	sample := data
	if len(sample) > sampleSize {
		sample = trimPartialRune(data[:sampleSize])
	}

	if name, ok := detectUTF16(sample); ok {
		return EncodingResult{Encoding: name, Confidence: 0.8}
	}
	if isASCII(sample) {
		return EncodingResult{Encoding: "ascii", Confidence: 1.0}
	}
	if utf8.Valid(sample) {
		return EncodingResult{Encoding: "utf-8", Confidence: 0.95}
	}

	best := EncodingResult{Encoding: "utf-8", Confidence: 0.1}
	for _, cand := range legacyCandidates {
		if score := scoreDecoding(sample, cand.encoding); score > best.Confidence {
			best = EncodingResult{Encoding: cand.name, Confidence: score}
		}
	}
	return best
}

func detectBOM(data []byte) (EncodingResult, bool) {
	switch {
	case bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}):
		return EncodingResult{Encoding: "utf-8", Confidence: 1.0, HasBOM: true}, true
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}):
		return EncodingResult{Encoding: "utf-16le", Confidence: 1.0, HasBOM: true}, true
	case bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		return EncodingResult{Encoding: "utf-16be", Confidence: 1.0, HasBOM: true}, true
	}
	return EncodingResult{}, false
}

func isASCII(data []byte) bool {
	for _, b := range data {
		if b > 127 {
			return false
		}
	}
	return true
}

// trimPartialRune drops a truncated multi-byte sequence at the end of a
// sample so a valid UTF-8 file is not misread because of where it was cut.
func trimPartialRune(data []byte) []byte {
	for i := 0; i < utf8.UTFMax && i < len(data); i++ {
		if r, size := utf8.DecodeLastRune(data[:len(data)-i]); r != utf8.RuneError || size > 1 {
			return data[:len(data)-i]
		}
	}
	return data
}

func detectUTF16(data []byte) (string, bool) {
	if len(data) < 2 || len(data)%2 != 0 {
		return "", false
	}

	var evenNulls, oddNulls int
	for i := 0; i+1 < len(data); i += 2 {
		if data[i] == 0 {
			evenNulls++
		}
		if data[i+1] == 0 {
			oddNulls++
		}
	}

	pairs := float64(len(data) / 2)
	switch {
	case float64(oddNulls)/pairs > 0.75:
		return "utf-16le", true
	case float64(evenNulls)/pairs > 0.75:
		return "utf-16be", true
	}
	return "", false
}

// scoreDecoding rates a candidate by the share of decoded non-ASCII runes
// that are letters, punctuation or spaces. Replacement and control runes
// count against it.
func scoreDecoding(sample []byte, enc encoding.Encoding) float64 {
	decoded, _, err := transform.Bytes(enc.NewDecoder(), sample)
	if err != nil {
		return 0
	}

	var good, total int
	for _, r := range string(decoded) {
		if r < utf8.RuneSelf {
			continue
		}
		total++
		switch {
		case r == utf8.RuneError, unicode.IsControl(r):
		case unicode.IsLetter(r), unicode.IsPunct(r), unicode.IsSpace(r), unicode.IsSymbol(r), unicode.IsNumber(r):
			good++
		}
	}
	if total == 0 {
		return 0
	}
	return 0.9 * float64(good) / float64(total)
}

func decoderFor(name string) *encoding.Decoder {
	switch name {
	case "utf-16le":
		return xunicode.UTF16(xunicode.LittleEndian, xunicode.UseBOM).NewDecoder()
	case "utf-16be":
		return xunicode.UTF16(xunicode.BigEndian, xunicode.UseBOM).NewDecoder()
	}
	for _, cand := range legacyCandidates {
		if cand.name == name {
			return cand.encoding.NewDecoder()
		}
	}
	return nil
}

// NewUTF8Reader wraps r so that it yields UTF-8 text for the detected
// charset, with any byte order mark removed.
func NewUTF8Reader(r io.Reader, detected EncodingResult) io.Reader {
	if detected.HasBOM && detected.Encoding == "utf-8" {
		r = skipBytes(r, 3)
	}
	if dec := decoderFor(detected.Encoding); dec != nil {
		return transform.NewReader(r, dec)
	}
	return r
}

func skipBytes(r io.Reader, n int64) io.Reader {
	_, _ = io.CopyN(io.Discard, r, n)
	return r
}

// ProbeFileEncoding reads at most sampleSize bytes from path.
func ProbeFileEncoding(path string) (EncodingResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return EncodingResult{}, err
	}
	defer file.Close()

	probe := make([]byte, sampleSize)
	n, err := io.ReadFull(file, probe)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return EncodingResult{}, err
	}

	return DetectEncoding(probe[:n]), nil
}
