package replicate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	t.Parallel()

	valid := []struct {
		in      string
		want    VersionRef
		isModel bool
	}{
		{in: "acme/hello-world:5c7d5dc6", want: VersionRef{Owner: "acme", Name: "hello-world", ID: "5c7d5dc6"}},
		{in: "acme/hello-world", want: VersionRef{Owner: "acme", Name: "hello-world"}, isModel: true},
		{in: "5c7d5dc6dd8bf75c1acaa8565735e7986bc5b66206b55cca93cb72c9bf15ccaa", want: VersionRef{ID: "5c7d5dc6dd8bf75c1acaa8565735e7986bc5b66206b55cca93cb72c9bf15ccaa"}},
	}
	for _, tt := range valid {
		got, err := ParseVersion(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.isModel, got.IsModel(), tt.in)
		assert.Equal(t, tt.in, got.String())
	}

	for _, in := range []string{
		"",
		":",
		"acme/",
		"/hello-world",
		"acme/hello-world:",
		"acme/hello/world",
		"acme/hello-world:v1:v2",
		"acme/hello-world:a/b",
		"5c7d5dc6:extra",
	} {
		_, err := ParseVersion(in)
		var versionErr *InvalidVersionError
		require.ErrorAs(t, err, &versionErr, in)
		assert.Equal(t, in, versionErr.Version)
	}
}
