package client

import (
	"context"
	"fmt"
	"time"

	"github.com/kFady/stereo-site-1/pkg/types/chem"
)

// SketchesClient manages saved drawings.
type SketchesClient struct {
	client *Client
}

// Sketch is a saved drawing.
type Sketch struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Molecule    chem.Molecule `json:"molecule"`
	ContentHash string        `json:"content_hash"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Save snapshots a session's current molecule under a unique name.
func (s *SketchesClient) Save(ctx context.Context, sessionID, name string) (*Sketch, error) {
	if name == "" {
		return nil, fmt.Errorf("stereo: sketch name is required")
	}
	var out Sketch
	body := map[string]string{"session_id": sessionID, "name": name}
	if err := s.client.post(ctx, "/api/v1/sketches", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns a page of sketches, most recently updated first.
func (s *SketchesClient) List(ctx context.Context, page, pageSize int) ([]*Sketch, *Pagination, error) {
	var (
		out []*Sketch
		p   Pagination
	)
	path := fmt.Sprintf("/api/v1/sketches?page=%d&page_size=%d", page, pageSize)
	if err := s.client.do(ctx, "GET", path, nil, &out, &p); err != nil {
		return nil, nil, err
	}
	return out, &p, nil
}

// Get loads one sketch.
func (s *SketchesClient) Get(ctx context.Context, id string) (*Sketch, error) {
	var out Sketch
	if err := s.client.get(ctx, "/api/v1/sketches/"+id, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Rename changes a sketch's name.
func (s *SketchesClient) Rename(ctx context.Context, id, name string) (*Sketch, error) {
	var out Sketch
	body := map[string]string{"name": name}
	if err := s.client.put(ctx, "/api/v1/sketches/"+id, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a sketch.
func (s *SketchesClient) Delete(ctx context.Context, id string) error {
	return s.client.delete(ctx, "/api/v1/sketches/"+id)
}

// Load replaces a session's drawing with the stored sketch.
func (s *SketchesClient) Load(ctx context.Context, id, sessionID string) (RenderPlan, error) {
	var plan RenderPlan
	body := map[string]string{"session_id": sessionID}
	if err := s.client.post(ctx, "/api/v1/sketches/"+id+"/load", body, &plan); err != nil {
		return nil, err
	}
	return plan, nil
}
