package uri

import (
	"strings"

	"github.com/Sc1pex/httc/http/status"
	"github.com/Sc1pex/httc/internal/uridecode"
	"github.com/Sc1pex/httc/kv"
)

// Match grades how well two URIs match each other, from no match at all to
// full equivalence. The grades order the router's dispatch priority.
type Match uint8

const (
	NoMatch Match = iota
	// WildMatch is produced by a trailing * segment swallowing the rest of
	// the other path, e.g. /path/* against /path/anything/here.
	WildMatch
	// ParamMatch is produced by :param segments standing in for concrete
	// ones, e.g. /path/:param against /path/value.
	ParamMatch
	// FullMatch means the paths are equivalent segment by segment.
	FullMatch
)

// URI is a parsed request target: percent-decoded path segments and the
// query as ordered key-value pairs. An empty Segments slice denotes /.
type URI struct {
	Segments []string
	Query    *kv.Storage
}

// Parse splits a raw request target into decoded path segments and query
// pairs. The path must be absolute. Segments are decoded individually after
// splitting, as decoding the whole path first would corrupt reserved
// characters encoded inside segments. A single trailing * segment is
// allowed; a * anywhere else invalidates the URI.
func Parse(raw string) (URI, error) {
	path, rawQuery, _ := strings.Cut(raw, "?")
	if len(path) == 0 || path[0] != '/' {
		return URI{}, status.ErrInvalidURI
	}

	uri := URI{Query: kv.New()}

	for len(path) > 0 {
		path = path[1:]
		var segment string
		if slash := strings.IndexByte(path, '/'); slash == -1 {
			segment, path = path, ""
		} else {
			segment, path = path[:slash], path[slash:]
		}

		if len(segment) == 0 {
			continue
		}

		if strings.IndexByte(segment, '*') != -1 {
			if segment != "*" || len(path) > 0 {
				return URI{}, status.ErrInvalidURI
			}

			uri.Segments = append(uri.Segments, segment)
			continue
		}

		decoded, err := uridecode.Decode(segment)
		if err != nil {
			return URI{}, err
		}

		uri.Segments = append(uri.Segments, decoded)
	}

	if err := parseQuery(uri.Query, rawQuery); err != nil {
		return URI{}, err
	}

	return uri, nil
}

func parseQuery(into *kv.Storage, rawQuery string) error {
	for len(rawQuery) > 0 {
		var pair string
		pair, rawQuery, _ = strings.Cut(rawQuery, "&")
		if len(pair) == 0 {
			continue
		}

		key, value, _ := strings.Cut(pair, "=")

		key, err := uridecode.Decode(key)
		if err != nil {
			return err
		}

		value, err = uridecode.Decode(value)
		if err != nil {
			return err
		}

		into.Add(key, value)
	}

	return nil
}

// Match compares two URIs. The comparison is symmetric: parameters and
// wildcards are honored on either side.
func (u URI) Match(other URI) Match {
	a, b := u.Segments, other.Segments
	common := min(len(a), len(b))
	var paramA, paramB bool

	for i := 0; i < common; i++ {
		if a[i] == "*" || b[i] == "*" {
			return WildMatch
		}

		if a[i] == b[i] {
			continue
		}

		pa, pb := isParam(a[i]), isParam(b[i])
		if !pa && !pb {
			return NoMatch
		}

		paramA = paramA || pa
		paramB = paramB || pb
	}

	if len(a) != len(b) {
		longer := a
		if len(b) > len(a) {
			longer = b
		}

		if len(a)-len(b) == 1 || len(b)-len(a) == 1 {
			if longer[len(longer)-1] == "*" {
				return WildMatch
			}
		}

		return NoMatch
	}

	switch {
	case paramA && paramB:
		return FullMatch
	case paramA || paramB:
		return ParamMatch
	default:
		return FullMatch
	}
}

// Path renders the path part back into its textual form.
func (u URI) Path() string {
	if len(u.Segments) == 0 {
		return "/"
	}

	var b strings.Builder
	for _, segment := range u.Segments {
		b.WriteByte('/')
		b.WriteString(segment)
	}

	return b.String()
}

// String renders the whole URI, query included. Segments, keys and values
// are written as stored, without percent-encoding them again, so parsing the
// result yields the original URI back only when none of them contains a
// character Parse treats specially, such as '/', '?', '%', '&', '=' or '*'.
func (u URI) String() string {
	if u.Query == nil || u.Query.Empty() {
		return u.Path()
	}

	var b strings.Builder
	b.WriteString(u.Path())
	b.WriteByte('?')

	first := true
	for key, value := range u.Query.Iter() {
		if !first {
			b.WriteByte('&')
		}

		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(value)
		first = false
	}

	return b.String()
}

// QueryParam returns the first value of the named query parameter.
func (u URI) QueryParam(name string) (string, bool) {
	if u.Query == nil {
		return "", false
	}

	return u.Query.Get(name)
}

// IsParam reports whether the segment is a :name parameter.
func IsParam(segment string) bool {
	return isParam(segment)
}

func isParam(segment string) bool {
	return len(segment) > 1 && segment[0] == ':'
}
