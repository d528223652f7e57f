package uri

import (
	"testing"

	"github.com/Sc1pex/httc/kv"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, raw string) URI {
	t.Helper()
	uri, err := Parse(raw)
	require.NoError(t, err)
	return uri
}

func TestParse(t *testing.T) {
	t.Run("simple path", func(t *testing.T) {
		uri := mustParse(t, "/index.html")
		require.Equal(t, []string{"index.html"}, uri.Segments)
		require.True(t, uri.Query.Empty())
	})

	t.Run("root path", func(t *testing.T) {
		uri := mustParse(t, "/")
		require.Empty(t, uri.Segments)
		require.True(t, uri.Query.Empty())
	})

	t.Run("multiple segments", func(t *testing.T) {
		uri := mustParse(t, "/api/v1/users")
		require.Equal(t, []string{"api", "v1", "users"}, uri.Segments)
	})

	t.Run("trailing slash", func(t *testing.T) {
		uri := mustParse(t, "/api/v1/users/")
		require.Equal(t, []string{"api", "v1", "users"}, uri.Segments)
	})

	t.Run("parameter segments stay verbatim", func(t *testing.T) {
		uri := mustParse(t, "/api/v1/users/:userId")
		require.Equal(t, []string{"api", "v1", "users", ":userId"}, uri.Segments)
	})

	t.Run("trailing wildcard", func(t *testing.T) {
		uri := mustParse(t, "/files/*")
		require.Equal(t, []string{"files", "*"}, uri.Segments)
	})

	t.Run("percent-decoded segments", func(t *testing.T) {
		uri := mustParse(t, "/some%20dir/file%2Etxt")
		require.Equal(t, []string{"some dir", "file.txt"}, uri.Segments)
	})

	t.Run("encoded slash stays inside its segment", func(t *testing.T) {
		uri := mustParse(t, "/a%2Fb/c")
		require.Equal(t, []string{"a/b", "c"}, uri.Segments)
	})
}

func TestParseQuery(t *testing.T) {
	t.Run("single parameter", func(t *testing.T) {
		uri := mustParse(t, "/search?q=test")
		require.Equal(t, []kv.Pair{{Key: "q", Value: "test"}}, uri.Query.Expose())
	})

	t.Run("multiple parameters keep order", func(t *testing.T) {
		uri := mustParse(t, "/search?q=test&page=1&limit=10")
		require.Equal(t, []kv.Pair{
			{Key: "q", Value: "test"},
			{Key: "page", Value: "1"},
			{Key: "limit", Value: "10"},
		}, uri.Query.Expose())
	})

	t.Run("empty value", func(t *testing.T) {
		uri := mustParse(t, "/search?q=&page=1")
		require.Equal(t, []kv.Pair{
			{Key: "q", Value: ""},
			{Key: "page", Value: "1"},
		}, uri.Query.Expose())
	})

	t.Run("key without value", func(t *testing.T) {
		uri := mustParse(t, "/search?debug&verbose")
		require.Equal(t, []kv.Pair{
			{Key: "debug", Value: ""},
			{Key: "verbose", Value: ""},
		}, uri.Query.Expose())
	})

	t.Run("empty query string", func(t *testing.T) {
		uri := mustParse(t, "/search?")
		require.True(t, uri.Query.Empty())
	})

	t.Run("decoded pairs", func(t *testing.T) {
		uri := mustParse(t, "/search?full%20name=John%20Doe")
		value, found := uri.QueryParam("full name")
		require.True(t, found)
		require.Equal(t, "John Doe", value)
	})
}

func TestParseInvalid(t *testing.T) {
	for _, raw := range []string{
		"invalid/path",
		"?q=test",
		"",
		"/files/*/nested",
		"/files/ab*",
		"/bad%2",
		"/bad%zz",
		"/ok?bad=%f",
	} {
		_, err := Parse(raw)
		require.Error(t, err, raw)
	}
}

func TestMatch(t *testing.T) {
	match := func(a, b string) Match {
		return mustParse(t, a).Match(mustParse(t, b))
	}

	t.Run("full", func(t *testing.T) {
		require.Equal(t, FullMatch, match("/", "/"))
		require.Equal(t, FullMatch, match("/a/b", "/a/b"))
		require.Equal(t, FullMatch, match("/users/:id", "/users/:userId"))
		require.Equal(t, FullMatch, match("/users/:id", "/users/:id"))
	})

	t.Run("param", func(t *testing.T) {
		require.Equal(t, ParamMatch, match("/users/:id", "/users/42"))
		require.Equal(t, ParamMatch, match("/users/42", "/users/:id"))
		require.Equal(t, ParamMatch, match("/:a/:b", "/x/y"))
	})

	t.Run("wild", func(t *testing.T) {
		require.Equal(t, WildMatch, match("/files/*", "/files/a/b/c"))
		require.Equal(t, WildMatch, match("/files/a", "/files/*"))
		require.Equal(t, WildMatch, match("/files/*", "/files"))
		require.Equal(t, WildMatch, match("/files/:id/*", "/files/42/path/to/x"))
	})

	t.Run("no match", func(t *testing.T) {
		require.Equal(t, NoMatch, match("/a", "/b"))
		require.Equal(t, NoMatch, match("/a/b", "/a"))
		require.Equal(t, NoMatch, match("/a", "/a/b/c"))
		require.Equal(t, NoMatch, match("/users/:id", "/posts/42"))
	})

	t.Run("symmetry", func(t *testing.T) {
		pairs := [][2]string{
			{"/users/:id", "/users/42"},
			{"/files/*", "/files/a/b"},
			{"/a/b", "/a/b"},
			{"/a", "/b"},
		}
		for _, pair := range pairs {
			require.Equal(t, match(pair[0], pair[1]), match(pair[1], pair[0]))
		}
	})
}

func TestStringRoundTrip(t *testing.T) {
	for _, raw := range []string{
		"/",
		"/api/v1/users",
		"/search?q=test&page=1",
		"/search?debug",
		"/files/*",
	} {
		uri := mustParse(t, raw)
		again := mustParse(t, uri.String())
		require.Equal(t, uri.Segments, again.Segments)
		require.Equal(t, uri.Query.Expose(), again.Query.Expose())
	}
}

func TestPath(t *testing.T) {
	require.Equal(t, "/", mustParse(t, "/").Path())
	require.Equal(t, "/a/b", mustParse(t, "/a/b?q=1").Path())
}
