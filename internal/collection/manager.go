// Package collection manages the blue-green lifecycle of search collections:
// versioned incarnations, batched imports, synonym carry-over, and the atomic
// alias swap that makes a new incarnation live.
package collection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/marco-pm/zencart-typesense/internal/domain"
	"github.com/marco-pm/zencart-typesense/internal/typesense"
)

// ImportBatchSize bounds memory and request payload size per import call.
const ImportBatchSize = 100

// SearchAdmin is the slice of the search-server client the manager needs.
// *typesense.Client satisfies it.
type SearchAdmin interface {
	CreateCollection(ctx context.Context, schema typesense.CollectionSchema) error
	ListCollections(ctx context.Context) ([]typesense.Collection, error)
	DeleteCollection(ctx context.Context, name string) error
	UpsertAlias(ctx context.Context, alias, collection string) error
	RetrieveAlias(ctx context.Context, alias string) (string, error)
	ImportDocuments(ctx context.Context, collection string, docs []domain.Document, action typesense.ImportAction) error
	DeleteDocumentsByFilter(ctx context.Context, collection, filter string) (int64, error)
	ListSynonyms(ctx context.Context, collection string) ([]domain.Synonym, error)
	UpsertSynonym(ctx context.Context, collection string, syn domain.Synonym) error
}

// Manager creates, fills, and swaps collection incarnations.
type Manager struct {
	ts      SearchAdmin
	logger  *slog.Logger
	syncLog bool
	now     func() time.Time
}

// NewManager creates a collection manager.
func NewManager(ts SearchAdmin, logger *slog.Logger, syncLog bool) *Manager {
	return &Manager{ts: ts, logger: logger, syncLog: syncLog, now: time.Now}
}

func (m *Manager) debugLog(ctx context.Context, msg string, args ...any) {
	if m.syncLog {
		m.logger.DebugContext(ctx, msg, args...)
	}
}

// CreateIncarnation creates a new collection named <alias>_<epoch> with the
// given fields and returns its name. The incarnation stays invisible to
// readers until SwapAlias points the alias at it.
func (m *Manager) CreateIncarnation(ctx context.Context, alias string, fields []typesense.Field) (string, error) {
	name := fmt.Sprintf("%s_%d", alias, m.now().Unix())

	if err := m.ts.CreateCollection(ctx, typesense.CollectionSchema{Name: name, Fields: fields}); err != nil {
		return "", fmt.Errorf("create collection %s: %w", name, err)
	}

	m.debugLog(ctx, "collection created", slog.String("collection", name))
	return name, nil
}

// ImportBatches imports documents into a collection in fixed-size batches and
// returns the number of documents imported. Any batch failure aborts the
// whole import.
func (m *Manager) ImportBatches(ctx context.Context, collection string, docs []domain.Document, action typesense.ImportAction) (int, error) {
	imported := 0
	for start := 0; start < len(docs); start += ImportBatchSize {
		end := start + ImportBatchSize
		if end > len(docs) {
			end = len(docs)
		}

		if err := m.ts.ImportDocuments(ctx, collection, docs[start:end], action); err != nil {
			return imported, fmt.Errorf("import batch %d-%d into %s: %w", start, end, collection, err)
		}
		imported += end - start
	}

	m.debugLog(ctx, "documents imported",
		slog.String("collection", collection),
		slog.String("action", string(action)),
		slog.Int("documents", imported),
	)
	return imported, nil
}

// CopySynonyms carries the synonym definitions of the alias's current
// collection over to the new incarnation. A missing alias means this is the
// first-ever full sync and there is nothing to copy.
func (m *Manager) CopySynonyms(ctx context.Context, alias, newCollection string) error {
	current, err := m.ts.RetrieveAlias(ctx, alias)
	if err != nil {
		if errors.Is(err, typesense.ErrAliasNotFound) {
			return nil
		}
		return fmt.Errorf("resolve alias %s: %w", alias, err)
	}

	synonyms, err := m.ts.ListSynonyms(ctx, current)
	if err != nil {
		return fmt.Errorf("list synonyms of %s: %w", current, err)
	}

	for _, syn := range synonyms {
		if err := m.ts.UpsertSynonym(ctx, newCollection, syn); err != nil {
			return fmt.Errorf("copy synonym %s to %s: %w", syn.ID, newCollection, err)
		}
	}

	m.debugLog(ctx, "synonyms copied",
		slog.String("from", current),
		slog.String("to", newCollection),
		slog.Int("synonyms", len(synonyms)),
	)
	return nil
}

// SwapAlias atomically repoints the alias at the new incarnation, then sweeps
// every other collection sharing the alias prefix. The sweep removes both the
// superseded generation and orphans left behind by previously failed runs.
func (m *Manager) SwapAlias(ctx context.Context, alias, newCollection string) error {
	if err := m.ts.UpsertAlias(ctx, alias, newCollection); err != nil {
		return fmt.Errorf("upsert alias %s -> %s: %w", alias, newCollection, err)
	}

	collections, err := m.ts.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("list collections for sweep of %s: %w", alias, err)
	}

	prefix := alias + "_"
	for _, coll := range collections {
		if coll.Name == newCollection || !strings.HasPrefix(coll.Name, prefix) {
			continue
		}
		if err := m.ts.DeleteCollection(ctx, coll.Name); err != nil {
			return fmt.Errorf("delete stale collection %s: %w", coll.Name, err)
		}
		m.debugLog(ctx, "stale collection deleted", slog.String("collection", coll.Name))
	}

	return nil
}

// ResolveAlias returns the collection the alias currently points at.
// typesense.ErrAliasNotFound is passed through for callers to detect.
func (m *Manager) ResolveAlias(ctx context.Context, alias string) (string, error) {
	return m.ts.RetrieveAlias(ctx, alias)
}

// DeleteDocuments removes the given document ids from a collection with a
// single delete-by-filter call and returns the number deleted.
func (m *Manager) DeleteDocuments(ctx context.Context, collection string, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	filter := "id:[" + strings.Join(parts, ",") + "]"

	deleted, err := m.ts.DeleteDocumentsByFilter(ctx, collection, filter)
	if err != nil {
		return 0, fmt.Errorf("delete documents from %s: %w", collection, err)
	}

	m.debugLog(ctx, "documents deleted",
		slog.String("collection", collection),
		slog.Int64("deleted", deleted),
		slog.Int("requested", len(ids)),
	)
	return deleted, nil
}
