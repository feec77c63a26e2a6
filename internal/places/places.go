// Package places provides city autocomplete. The Google adapter talks
// to the Places API; when no API key is configured the Disabled
// adapter serves empty predictions so listing creation keeps working
// with a manually typed city.
package places

import (
	"context"
	"fmt"
	"strings"

	"googlemaps.github.io/maps"

	"github.com/mealbridge/mealbridge/internal/domain"
)

// minQueryLen avoids burning quota on one-character queries.
const minQueryLen = 2

// Prediction is one autocomplete suggestion.
type Prediction struct {
	Description string `json:"description"`
	PlaceID     string `json:"place_id"`
}

// Autocompleter suggests cities for a partial query.
type Autocompleter interface {
	CompleteCity(ctx context.Context, query string) ([]Prediction, error)
}

// Google implements Autocompleter on the Google Places API.
type Google struct {
	client  *maps.Client
	country string
}

// NewGoogle builds the Places adapter. Country is an ISO 3166-1 alpha-2
// code restricting predictions, e.g. "in".
func NewGoogle(apiKey, country string) (*Google, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("init places client: %w", err)
	}
	return &Google{client: client, country: country}, nil
}

func (g *Google) CompleteCity(ctx context.Context, query string) ([]Prediction, error) {
	query = strings.TrimSpace(query)
	if len(query) < minQueryLen {
		return nil, nil
	}

	req := &maps.PlaceAutocompleteRequest{
		Input: query,
		Types: maps.AutocompletePlaceTypeCities,
	}
	if g.country != "" {
		req.Components = map[maps.Component][]string{
			maps.ComponentCountry: {g.country},
		}
	}

	resp, err := g.client.PlaceAutocomplete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("places autocomplete: %v: %w", err, domain.ErrTransient)
	}

	predictions := make([]Prediction, 0, len(resp.Predictions))
	for _, p := range resp.Predictions {
		predictions = append(predictions, Prediction{
			Description: p.Description,
			PlaceID:     p.PlaceID,
		})
	}
	return predictions, nil
}

// Disabled is the no-provider fallback.
type Disabled struct{}

func (Disabled) CompleteCity(context.Context, string) ([]Prediction, error) {
	return nil, nil
}
