package replicate

import (
	"context"
	"net/http"
	"net/url"
)

type Collections struct {
	client *Client
}

// Get returns a collection including its models.
func (c *Collections) Get(ctx context.Context, slug string) (*Collection, error) {
	collection := &Collection{}
	if err := c.client.do(ctx, "collections.get", http.MethodGet, "/collections/"+url.PathEscape(slug), nil, collection); err != nil {
		return nil, err
	}
	return collection, nil
}

// List returns collections without their models.
func (c *Collections) List(ctx context.Context) (*Page[Collection], error) {
	page := &Page[Collection]{}
	if err := c.client.do(ctx, "collections.list", http.MethodGet, "/collections", nil, page); err != nil {
		return nil, err
	}
	return page, nil
}
