// Package store is the persistence port: a key/value store of JSON documents.
// There are no transactions; the last write wins.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	KeySurveys = "surveys"
	KeyLinks   = "links"
	KeySession = "session"

	responsesPrefix = "responses:"
)

// ResponsesKey is the key holding the response collection of a survey.
func ResponsesKey(surveyID string) string {
	return responsesPrefix + surveyID
}

var ErrEmptyKey = errors.New("store: empty key")

type Store interface {
	// Get returns the document under key; found is false when absent.
	Get(ctx context.Context, key string) (doc json.RawMessage, found bool, err error)
	Set(ctx context.Context, key string, doc json.RawMessage) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// GetJSON decodes the document under key into v. It reports false, leaving v
// untouched, when the key is absent.
func GetJSON(ctx context.Context, s Store, key string, v any) (bool, error) {
	doc, found, err := s.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	if err := json.Unmarshal(doc, v); err != nil {
		return false, fmt.Errorf("store: decode %q: %w", key, err)
	}
	return true, nil
}

func SetJSON(ctx context.Context, s Store, key string, v any) error {
	doc, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: encode %q: %w", key, err)
	}
	return s.Set(ctx, key, doc)
}
