package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"
)

// Resource is the typed gateway for one entity type. One instance exists
// per entity family (products, categories, orders, ...).
type Resource[T any] struct {
	client *Client
	path   string
	logger zerolog.Logger
}

// NewResource creates the gateway for the entity collection at path,
// e.g. NewResource[catalog.Product](client, "products").
func NewResource[T any](client *Client, path string) *Resource[T] {
	return &Resource[T]{
		client: client,
		path:   path,
		logger: client.logger.With().Str("resource", path).Logger(),
	}
}

// List fetches the collection filtered by the given query parameters.
func (r *Resource[T]) List(ctx context.Context, filters map[string]string) ([]T, error) {
	query := url.Values{}
	for key, value := range filters {
		query.Set(key, value)
	}

	body, _, err := r.client.do(ctx, http.MethodGet, r.path, query, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[T](body, r.logger)
}

// ListPage fetches one page of the collection and returns the total page
// count from the X-Total-Pages header (0 when the server does not page).
func (r *Resource[T]) ListPage(ctx context.Context, filters map[string]string, page, limit int) ([]T, int, error) {
	query := url.Values{}
	for key, value := range filters {
		query.Set(key, value)
	}
	query.Set("_page", strconv.Itoa(page))
	query.Set("_limit", strconv.Itoa(limit))

	body, headers, err := r.client.do(ctx, http.MethodGet, r.path, query, nil)
	if err != nil {
		return nil, 0, err
	}

	items, err := decodeList[T](body, r.logger)
	if err != nil {
		return nil, 0, err
	}

	totalPages := 0
	if v := headers.Get("X-Total-Pages"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			totalPages = n
		}
	}
	return items, totalPages, nil
}

// Get fetches a single entity by id.
func (r *Resource[T]) Get(ctx context.Context, id string) (T, error) {
	body, _, err := r.client.do(ctx, http.MethodGet, r.path+"/"+id, nil, nil)
	if err != nil {
		var zero T
		return zero, err
	}
	return decodeOne[T](body)
}

// Create posts a new entity and returns the server's authoritative copy.
func (r *Resource[T]) Create(ctx context.Context, payload T) (T, error) {
	body, _, err := r.client.do(ctx, http.MethodPost, r.path, nil, payload)
	if err != nil {
		var zero T
		return zero, err
	}
	return decodeOne[T](body)
}

// Update sends a partial entity and returns the server's merged copy.
func (r *Resource[T]) Update(ctx context.Context, id string, partial map[string]any) (T, error) {
	body, _, err := r.client.do(ctx, http.MethodPut, r.path+"/"+id, nil, partial)
	if err != nil {
		var zero T
		return zero, err
	}
	return decodeOne[T](body)
}

// Delete removes an entity. Some endpoints answer 200 with a
// {success:false} body instead of an error status; that is surfaced as a
// validation error.
func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	body, _, err := r.client.do(ctx, http.MethodDelete, r.path+"/"+id, nil, nil)
	if err != nil {
		return err
	}

	var result struct {
		Success *bool  `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &result); err == nil {
		if result.Success != nil && !*result.Success {
			message := result.Message
			if message == "" {
				message = fmt.Sprintf("delete %s/%s refused", r.path, id)
			}
			return &Error{Kind: KindValidation, StatusCode: http.StatusOK, Message: message}
		}
	}
	return nil
}
