package feed

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/piraces/feedcache/pkg/helpers"
)

// Image is a single entry of the feed as the rest of the application sees it.
type Image struct {
	id          uuid.UUID
	description *string
	location    *string
	url         Address
}

// NewImage copies the optional text it is given. Invalid UTF-8 sequences in it are
// replaced with U+FFFD so that every store can persist the image as it is.
func NewImage(id uuid.UUID, description *string, location *string, url Address) Image {
	return Image{
		id:          id,
		description: copyText(description),
		location:    copyText(location),
		url:         url,
	}
}

func (i Image) ID() uuid.UUID {
	return i.id
}

func (i Image) Description() (string, bool) {
	return readText(i.description)
}

func (i Image) Location() (string, bool) {
	return readText(i.location)
}

func (i Image) URL() Address {
	return i.url
}

func (i Image) Equal(o Image) bool {
	return i.id == o.id &&
		sameText(i.description, o.description) &&
		sameText(i.location, o.location) &&
		i.url == o.url
}

// Address is an absolute URL. The scheme isn't restricted, images may live on disk
// or be embedded as data URLs.
type Address struct {
	s string
}

func NewAddress(s string) (Address, error) {
	if s == "" {
		return Address{}, errors.New("address can't be an empty string")
	}

	if !helpers.IsAbsoluteUrl(s) {
		return Address{}, errors.New("invalid URL provided (must be in absolute format)")
	}

	return Address{s: s}, nil
}

// MustNewAddress is intended for tests and constants.
func MustNewAddress(s string) Address {
	a, err := NewAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Address) String() string {
	return a.s
}

func copyText(s *string) *string {
	if s == nil {
		return nil
	}
	c := strings.ToValidUTF8(*s, "\uFFFD")
	return &c
}

func readText(s *string) (string, bool) {
	if s == nil {
		return "", false
	}
	return *s, true
}

func sameText(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
