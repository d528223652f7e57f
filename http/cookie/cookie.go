// Package cookie parses Cookie headers received from a user-agent and builds
// response cookies. A response Cookie is rendered with String into a raw
// Set-Cookie value, which the response emits verbatim.
package cookie

import (
	"strings"

	"github.com/Sc1pex/httc/internal/strutil"
	"github.com/Sc1pex/httc/kv"
)

// Parse extracts name=value pairs from a single Cookie header value into
// jar. Pairs are separated by semicolons and may carry surrounding
// whitespace; pairs without an equals sign or with an empty name are
// skipped, as user-agents aren't supposed to produce them anyway.
func Parse(jar *kv.Storage, data string) {
	for len(data) > 0 {
		var pair string
		pair, data, _ = strings.Cut(data, ";")

		pair = strutil.RStripWS(strutil.LStripWS(pair))
		name, value, found := strings.Cut(pair, "=")
		if !found || len(name) == 0 {
			continue
		}

		jar.Add(name, value)
	}
}
