package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"studyforge/internal/artifact"
	"studyforge/internal/services"
	"studyforge/internal/store"
)

// Handler executes one job type.
type Handler interface {
	Run(ctx context.Context, job *store.Job) (*store.Bundle, error)
	HealthCheck(ctx context.Context) Health
}

// ArtifactReader is the read-only store surface handlers may use.
type ArtifactReader interface {
	GetArtifact(ctx context.Context, id string) (*artifact.Artifact, error)
	ParentEdges(ctx context.Context, childID string) ([]artifact.Edge, error)
}

// Health summarizes the readiness of a handler.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy constructs an unhealthy Health record with context detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}

// Registry maps job types to handlers. It is filled at startup and read
// afterwards.
type Registry struct {
	handlers map[store.JobType]Handler
	order    []store.JobType
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[store.JobType]Handler)}
}

// Register installs h for t.
func (r *Registry) Register(t store.JobType, h Handler) {
	if _, exists := r.handlers[t]; !exists {
		r.order = append(r.order, t)
	}
	r.handlers[t] = h
}

// Lookup returns the handler for t or a validation error.
func (r *Registry) Lookup(t store.JobType) (Handler, error) {
	h, ok := r.handlers[t]
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "dispatch", "resolve handler",
			fmt.Sprintf("no handler registered for job type %q", t), nil)
	}
	return h, nil
}

// Health reports every registered handler in registration order.
func (r *Registry) Health(ctx context.Context) []Health {
	out := make([]Health, 0, len(r.order))
	for _, t := range r.order {
		out = append(out, r.handlers[t].HealthCheck(ctx))
	}
	return out
}

func newID() string { return uuid.NewString() }

func decodePayload(job *store.Job, dst any) error {
	if err := job.DecodePayload(dst); err != nil {
		return services.Wrap(services.ErrValidation, string(job.Type), "decode payload", "payload is not valid JSON for this job type", err)
	}
	return nil
}

func encodeResult(v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode job result: %w", err)
	}
	return data, nil
}

// passThrough keeps already classified errors and tags the rest.
func passThrough(marker error, stage, operation, message string, err error) error {
	var svc *services.ServiceError
	if errors.As(err, &svc) {
		return err
	}
	return services.Wrap(marker, stage, operation, message, err)
}
