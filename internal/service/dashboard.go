// Package service implements the dashboard/control operations: sync status
// projection, full-sync requests, and thin passthroughs to the search
// server's collection, synonym, and health endpoints.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/marco-pm/zencart-typesense/internal/domain"
	"github.com/marco-pm/zencart-typesense/internal/repository"
	"github.com/marco-pm/zencart-typesense/internal/typesense"
	apperrors "github.com/marco-pm/zencart-typesense/pkg/errors"
)

// logicalCollections are the only collection names the control surface
// accepts; everything else is rejected before reaching the search server.
var logicalCollections = map[string]bool{
	"products":   true,
	"categories": true,
	"brands":     true,
}

// SearchServer is the slice of the Typesense client the dashboard needs.
type SearchServer interface {
	RetrieveAlias(ctx context.Context, alias string) (string, error)
	RetrieveCollection(ctx context.Context, name string) (*typesense.Collection, error)
	ListSynonyms(ctx context.Context, collection string) ([]domain.Synonym, error)
	UpsertSynonym(ctx context.Context, collection string, syn domain.Synonym) error
	DeleteSynonym(ctx context.Context, collection, id string) error
	Health(ctx context.Context) (bool, error)
	Metrics(ctx context.Context) (json.RawMessage, error)
	Stats(ctx context.Context) (json.RawMessage, error)
}

// Dashboard exposes the operator control surface.
type Dashboard struct {
	state            repository.SyncStateRepository
	ts               SearchServer
	collectionPrefix string
	logger           *slog.Logger
}

// NewDashboard creates the dashboard service.
func NewDashboard(state repository.SyncStateRepository, ts SearchServer, collectionPrefix string, logger *slog.Logger) *Dashboard {
	return &Dashboard{state: state, ts: ts, collectionPrefix: collectionPrefix, logger: logger}
}

func (d *Dashboard) alias(base string) string {
	if d.collectionPrefix == "" {
		return base
	}
	return d.collectionPrefix + "_" + base
}

// SyncStatus returns the persisted sync state with its SQL-derived ages.
func (d *Dashboard) SyncStatus(ctx context.Context) (*domain.SyncState, error) {
	state, err := d.state.Read(ctx)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return state, nil
}

// RequestFullSync marks the next run as full. A graceful request takes
// effect on the next natural scheduler tick; a forced request additionally
// resets a failed status so the next tick runs unconditionally.
func (d *Dashboard) RequestFullSync(ctx context.Context, forced bool) error {
	if err := d.state.SetNextRunFull(ctx, forced); err != nil {
		return apperrors.Internal(err)
	}

	d.logger.InfoContext(ctx, "full sync requested", slog.Bool("forced", forced))
	return nil
}

// CollectionCount reports the live incarnation and document count behind one
// logical collection.
type CollectionCount struct {
	Alias        string `json:"alias"`
	Collection   string `json:"collection"`
	NumDocuments int64  `json:"num_documents"`
}

// CollectionCounts resolves each logical collection's alias and returns its
// document count. A not-yet-synced alias is reported with an empty
// collection name rather than an error.
func (d *Dashboard) CollectionCounts(ctx context.Context) ([]CollectionCount, error) {
	counts := make([]CollectionCount, 0, 3)

	for _, base := range []string{"products", "categories", "brands"} {
		alias := d.alias(base)
		count := CollectionCount{Alias: alias}

		name, err := d.ts.RetrieveAlias(ctx, alias)
		switch {
		case errors.Is(err, typesense.ErrAliasNotFound):
			counts = append(counts, count)
			continue
		case err != nil:
			return nil, apperrors.Upstream("typesense", err)
		}

		coll, err := d.ts.RetrieveCollection(ctx, name)
		if err != nil {
			return nil, apperrors.Upstream("typesense", err)
		}

		count.Collection = coll.Name
		count.NumDocuments = coll.NumDocuments
		counts = append(counts, count)
	}

	return counts, nil
}

// ListSynonyms returns the synonyms of all three logical collections keyed
// by their base name. Collections that have never been synced are skipped.
func (d *Dashboard) ListSynonyms(ctx context.Context) (map[string][]domain.Synonym, error) {
	out := make(map[string][]domain.Synonym, 3)

	for _, base := range []string{"products", "categories", "brands"} {
		// Synonym endpoints resolve aliases server-side, so the alias name
		// is passed straight through.
		synonyms, err := d.ts.ListSynonyms(ctx, d.alias(base))
		if err != nil {
			var statusErr *typesense.StatusError
			if errors.As(err, &statusErr) && statusErr.Status == 404 {
				out[base] = []domain.Synonym{}
				continue
			}
			return nil, apperrors.Upstream("typesense", err)
		}
		out[base] = synonyms
	}

	return out, nil
}

// UpsertSynonym creates or replaces a synonym on a logical collection.
func (d *Dashboard) UpsertSynonym(ctx context.Context, base string, syn domain.Synonym) error {
	if !logicalCollections[base] {
		return apperrors.InvalidInput(fmt.Sprintf("unknown collection %q", base))
	}
	if syn.ID == "" {
		return apperrors.InvalidInput("synonym id is required")
	}
	if len(syn.Synonyms) == 0 {
		return apperrors.InvalidInput("at least one synonym is required")
	}

	if err := d.ts.UpsertSynonym(ctx, d.alias(base), syn); err != nil {
		return apperrors.Upstream("typesense", err)
	}
	return nil
}

// DeleteSynonym removes a synonym from a logical collection.
func (d *Dashboard) DeleteSynonym(ctx context.Context, base, id string) error {
	if !logicalCollections[base] {
		return apperrors.InvalidInput(fmt.Sprintf("unknown collection %q", base))
	}

	if err := d.ts.DeleteSynonym(ctx, d.alias(base), id); err != nil {
		var statusErr *typesense.StatusError
		if errors.As(err, &statusErr) && statusErr.Status == 404 {
			return apperrors.NotFound("synonym", id)
		}
		return apperrors.Upstream("typesense", err)
	}
	return nil
}

// ServerHealth proxies the search server's health endpoint.
func (d *Dashboard) ServerHealth(ctx context.Context) (bool, error) {
	ok, err := d.ts.Health(ctx)
	if err != nil {
		return false, apperrors.Upstream("typesense", err)
	}
	return ok, nil
}

// ServerMetrics proxies the search server's resource metrics endpoint.
func (d *Dashboard) ServerMetrics(ctx context.Context) (json.RawMessage, error) {
	metrics, err := d.ts.Metrics(ctx)
	if err != nil {
		return nil, apperrors.Upstream("typesense", err)
	}
	return metrics, nil
}

// ServerStats proxies the search server's API stats endpoint.
func (d *Dashboard) ServerStats(ctx context.Context) (json.RawMessage, error) {
	stats, err := d.ts.Stats(ctx)
	if err != nil {
		return nil, apperrors.Upstream("typesense", err)
	}
	return stats, nil
}
