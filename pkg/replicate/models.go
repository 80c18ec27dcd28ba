package replicate

import (
	"context"
	"net/http"
	"net/url"
)

type Models struct {
	client *Client

	Versions *Versions
}

func (m *Models) Get(ctx context.Context, owner, name string) (*Model, error) {
	model := &Model{}
	if err := m.client.do(ctx, "models.get", http.MethodGet, modelPath(owner, name), nil, model); err != nil {
		return nil, err
	}
	return model, nil
}

// List returns the first page of public models.
func (m *Models) List(ctx context.Context) (*Page[Model], error) {
	page := &Page[Model]{}
	if err := m.client.do(ctx, "models.list", http.MethodGet, "/models", nil, page); err != nil {
		return nil, err
	}
	return page, nil
}

type Versions struct {
	client *Client
}

func (v *Versions) Get(ctx context.Context, owner, name, versionID string) (*ModelVersion, error) {
	version := &ModelVersion{}
	path := modelPath(owner, name) + "/versions/" + url.PathEscape(versionID)
	if err := v.client.do(ctx, "versions.get", http.MethodGet, path, nil, version); err != nil {
		return nil, err
	}
	return version, nil
}

func (v *Versions) List(ctx context.Context, owner, name string) (*Page[ModelVersion], error) {
	page := &Page[ModelVersion]{}
	if err := v.client.do(ctx, "versions.list", http.MethodGet, modelPath(owner, name)+"/versions", nil, page); err != nil {
		return nil, err
	}
	return page, nil
}

func modelPath(owner, name string) string {
	return "/models/" + url.PathEscape(owner) + "/" + url.PathEscape(name)
}
