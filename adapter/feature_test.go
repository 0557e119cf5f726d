package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExtension struct {
	uri string
}

func (f fakeExtension) FeatureURI() string { return f.uri }

func TestNormalizeFeatureURI(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{"adds trailing slash", "https://x/features/foo", "https://x/features/foo/", false},
		{"keeps trailing slash", "https://x/features/foo/", "https://x/features/foo/", false},
		{"relative uri", "/features/foo", "", true},
		{"empty", "", "", true},
		{"no host", "https:///foo", "", true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := NormalizeFeatureURI(test.input)
			if test.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.expected, got)
		})
	}
}

func TestFeatureSet_Standard(t *testing.T) {
	fs := NewFeatureSet()

	handle := struct{ name string }{"snapshot"}
	require.NoError(t, fs.AddStandard(FeatureReadSnapshot, handle))

	t.Run("lookup", func(t *testing.T) {
		got, ok := fs.Standard(FeatureReadSnapshot)
		require.True(t, ok)
		assert.Equal(t, handle, got)
	})

	t.Run("missing", func(t *testing.T) {
		_, ok := fs.Standard(FeatureReadRaw)
		assert.False(t, ok)
	})

	t.Run("duplicate rejected", func(t *testing.T) {
		assert.Error(t, fs.AddStandard(FeatureReadSnapshot, handle))
	})

	t.Run("nil handle rejected", func(t *testing.T) {
		assert.Error(t, fs.AddStandard(FeatureReadRaw, nil))
	})
}

func TestFeatureSet_Extension(t *testing.T) {
	fs := NewFeatureSet()
	require.NoError(t, fs.AddExtension(fakeExtension{"https://x/features/foo"}))

	t.Run("lookup normalizes", func(t *testing.T) {
		_, ok := fs.Extension("https://x/features/foo")
		assert.True(t, ok)
		_, ok = fs.Extension("https://x/features/foo/")
		assert.True(t, ok)
	})

	t.Run("duplicate rejected after normalization", func(t *testing.T) {
		assert.Error(t, fs.AddExtension(fakeExtension{"https://x/features/foo/"}))
	})

	t.Run("relative uri rejected", func(t *testing.T) {
		assert.Error(t, fs.AddExtension(fakeExtension{"/features/foo"}))
	})
}

func TestFeatureSet_ExtensionForURI(t *testing.T) {
	fs := NewFeatureSet()
	require.NoError(t, fs.AddExtension(fakeExtension{"https://x/features/foo/"}))
	require.NoError(t, fs.AddExtension(fakeExtension{"https://x/features/foo/sub/"}))

	t.Run("matches operation uri", func(t *testing.T) {
		_, uri, ok := fs.ExtensionForURI("https://x/features/foo/ops/bar/")
		require.True(t, ok)
		assert.Equal(t, "https://x/features/foo/", uri)
	})

	t.Run("longest prefix wins", func(t *testing.T) {
		_, uri, ok := fs.ExtensionForURI("https://x/features/foo/sub/ops/bar/")
		require.True(t, ok)
		assert.Equal(t, "https://x/features/foo/sub/", uri)
	})

	t.Run("no sibling prefix match", func(t *testing.T) {
		// "foo/" must not match "foobar/..." thanks to the trailing
		// separator added at registration.
		_, _, ok := fs.ExtensionForURI("https://x/features/foobar/ops/run/")
		assert.False(t, ok)
	})
}

func TestFeatureSet_Contains(t *testing.T) {
	fs := NewFeatureSet()
	require.NoError(t, fs.AddStandard(FeatureTagSearch, struct{}{}))
	require.NoError(t, fs.AddExtension(fakeExtension{"https://x/features/ping"}))

	assert.True(t, fs.Contains("tags.search"))
	assert.True(t, fs.Contains("https://x/features/ping/"))
	assert.True(t, fs.Contains("https://x/features/ping"), "bare feature uri without separator")
	assert.True(t, fs.Contains("https://x/features/ping/ops/echo/"), "operation uri")
	assert.False(t, fs.Contains("tags.read.raw"))
	assert.False(t, fs.Contains("https://x/features/pingpong/"))
}

func TestFeatureSet_Listings(t *testing.T) {
	fs := NewFeatureSet()
	require.NoError(t, fs.AddStandard(FeatureWriteValues, struct{}{}))
	require.NoError(t, fs.AddStandard(FeatureTagSearch, struct{}{}))
	require.NoError(t, fs.AddExtension(fakeExtension{"https://x/b"}))
	require.NoError(t, fs.AddExtension(fakeExtension{"https://x/a"}))

	assert.Equal(t, []FeatureID{FeatureTagSearch, FeatureWriteValues}, fs.StandardIDs())
	assert.Equal(t, []string{"https://x/a/", "https://x/b/"}, fs.ExtensionURIs())
}
