package feed_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/piraces/feedcache/pkg/new/domain/feed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAddress(t *testing.T) {
	testCases := []struct {
		name    string
		s       string
		wantErr bool
	}{
		{name: "empty", s: "", wantErr: true},
		{name: "relative", s: "images/1.png", wantErr: true},
		{name: "rooted_path", s: "/images/1.png", wantErr: true},
		{name: "unparseable", s: "https:// images.example/", wantErr: true},
		{name: "ftp", s: "ftp://images.example/1.png", wantErr: false},
		{name: "file", s: "file:///var/cache/images/1.png", wantErr: false},
		{name: "data", s: "data:image/png;base64,iVBORw0KGgo=", wantErr: false},
		{name: "https", s: "https://images.example/1.png", wantErr: false},
		{name: "http", s: "http://images.example/1.png", wantErr: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			address, err := feed.NewAddress(tc.s)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.s, address.String())
		})
	}
}

func TestImageCopiesOptionalText(t *testing.T) {
	description := "a description"
	image := feed.NewImage(uuid.New(), &description, nil, feed.MustNewAddress("https://images.example/1.png"))

	description = "changed"

	got, ok := image.Description()
	require.True(t, ok)
	assert.Equal(t, "a description", got)

	_, ok = image.Location()
	assert.False(t, ok)
}

func TestImageEqualIsStructural(t *testing.T) {
	id := uuid.New()
	url := feed.MustNewAddress("https://images.example/1.png")
	a, b := "location", "location"

	assert.True(t, feed.NewImage(id, nil, &a, url).Equal(feed.NewImage(id, nil, &b, url)))
	assert.False(t, feed.NewImage(id, nil, &a, url).Equal(feed.NewImage(id, nil, nil, url)))
	assert.False(t, feed.NewImage(id, nil, nil, url).Equal(feed.NewImage(uuid.New(), nil, nil, url)))
}

func TestImageReplacesInvalidUTF8InOptionalText(t *testing.T) {
	description, location := "caf\xe9", "valid \u00e9"
	image := feed.NewImage(uuid.New(), &description, &location, feed.MustNewAddress("https://images.example/1.png"))

	got, ok := image.Description()
	require.True(t, ok)
	assert.Equal(t, "caf\uFFFD", got)

	got, ok = image.Location()
	require.True(t, ok)
	assert.Equal(t, location, got)
}
