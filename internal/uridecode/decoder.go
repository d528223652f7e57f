package uridecode

import (
	"strings"

	"github.com/Sc1pex/httc/http/status"
	"github.com/Sc1pex/httc/internal/hexconv"
	"github.com/indigo-web/utils/uf"
)

// Decode translates %HH escapes in src into their true form. The source
// string is returned as-is when it contains no escapes. Malformed escapes,
// including truncated ones, fail the whole decode.
func Decode(src string) (string, error) {
	percent := strings.IndexByte(src, '%')
	if percent == -1 {
		return src, nil
	}

	decoded := make([]byte, 0, len(src))

	for percent != -1 {
		if percent+2 >= len(src) {
			return "", status.ErrURIDecoding
		}

		hi, lo := hexconv.Parse(src[percent+1]), hexconv.Parse(src[percent+2])
		if hi == hexconv.Invalid || lo == hexconv.Invalid {
			return "", status.ErrURIDecoding
		}

		decoded = append(decoded, src[:percent]...)
		decoded = append(decoded, hi<<4|lo)
		src = src[percent+3:]
		percent = strings.IndexByte(src, '%')
	}

	return uf.B2S(append(decoded, src...)), nil
}
