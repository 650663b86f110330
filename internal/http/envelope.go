package http

import (
	"encoding/json"
	"fmt"
	"io"
)

// Envelope is the response body every storefront service writes.
type Envelope[T any] struct {
	Status     string `json:"status"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Code       string `json:"code,omitempty"`
	Data       T      `json:"data"`
}

func DecodeEnvelope[T any](r io.Reader) (Envelope[T], error) {
	envelope := Envelope[T]{}
	if err := json.NewDecoder(r).Decode(&envelope); err != nil {
		return Envelope[T]{}, fmt.Errorf("failed decoding response envelope with error=%w", err)
	}
	return envelope, nil
}
