package feed

import (
	"encoding/json"

	"github.com/google/uuid"
	domainfeed "github.com/piraces/feedcache/pkg/new/domain/feed"
	"github.com/pkg/errors"
)

// JSONMapper maps `{"items":[{"id","description","location","image"}]}` documents.
type JSONMapper struct {
}

func NewJSONMapper() *JSONMapper {
	return &JSONMapper{}
}

func (m *JSONMapper) Map(response Response) ([]domainfeed.Image, error) {
	if response.StatusCode != 200 {
		return nil, errors.Wrapf(ErrInvalidData, "unexpected status code %d", response.StatusCode)
	}

	var root remoteRoot
	if err := json.Unmarshal(response.Body, &root); err != nil {
		return nil, errors.Wrap(ErrInvalidData, err.Error())
	}
	if root.Items == nil {
		return nil, errors.Wrap(ErrInvalidData, "missing items")
	}

	images := make([]domainfeed.Image, 0, len(*root.Items))
	for i, item := range *root.Items {
		id, err := uuid.Parse(item.ID)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidData, "item %d has an invalid id", i)
		}

		address, err := domainfeed.NewAddress(item.Image)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidData, "item %d has an invalid image", i)
		}

		images = append(images, domainfeed.NewImage(id, item.Description, item.Location, address))
	}

	return images, nil
}

type remoteRoot struct {
	Items *[]remoteItem `json:"items"`
}

type remoteItem struct {
	ID          string  `json:"id"`
	Description *string `json:"description"`
	Location    *string `json:"location"`
	Image       string  `json:"image"`
}
