package collection

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marco-pm/zencart-typesense/internal/domain"
	"github.com/marco-pm/zencart-typesense/internal/typesense"
)

// fakeSearchAdmin records calls and simulates a small search server.
type fakeSearchAdmin struct {
	collections map[string][]typesense.Field
	aliases     map[string]string
	synonyms    map[string][]domain.Synonym

	importedBatches [][]domain.Document
	importActions   []typesense.ImportAction
	deletedColls    []string
	deleteFilter    string
	deleteResult    int64
	importErr       error
}

func newFakeSearchAdmin() *fakeSearchAdmin {
	return &fakeSearchAdmin{
		collections: make(map[string][]typesense.Field),
		aliases:     make(map[string]string),
		synonyms:    make(map[string][]domain.Synonym),
	}
}

func (f *fakeSearchAdmin) CreateCollection(ctx context.Context, schema typesense.CollectionSchema) error {
	f.collections[schema.Name] = schema.Fields
	return nil
}

func (f *fakeSearchAdmin) ListCollections(ctx context.Context) ([]typesense.Collection, error) {
	out := make([]typesense.Collection, 0, len(f.collections))
	for name := range f.collections {
		out = append(out, typesense.Collection{Name: name})
	}
	return out, nil
}

func (f *fakeSearchAdmin) DeleteCollection(ctx context.Context, name string) error {
	delete(f.collections, name)
	f.deletedColls = append(f.deletedColls, name)
	return nil
}

func (f *fakeSearchAdmin) UpsertAlias(ctx context.Context, alias, collection string) error {
	f.aliases[alias] = collection
	return nil
}

func (f *fakeSearchAdmin) RetrieveAlias(ctx context.Context, alias string) (string, error) {
	coll, ok := f.aliases[alias]
	if !ok {
		return "", typesense.ErrAliasNotFound
	}
	return coll, nil
}

func (f *fakeSearchAdmin) ImportDocuments(ctx context.Context, collection string, docs []domain.Document, action typesense.ImportAction) error {
	if f.importErr != nil {
		return f.importErr
	}
	f.importedBatches = append(f.importedBatches, docs)
	f.importActions = append(f.importActions, action)
	return nil
}

func (f *fakeSearchAdmin) DeleteDocumentsByFilter(ctx context.Context, collection, filter string) (int64, error) {
	f.deleteFilter = filter
	return f.deleteResult, nil
}

func (f *fakeSearchAdmin) ListSynonyms(ctx context.Context, collection string) ([]domain.Synonym, error) {
	return f.synonyms[collection], nil
}

func (f *fakeSearchAdmin) UpsertSynonym(ctx context.Context, collection string, syn domain.Synonym) error {
	f.synonyms[collection] = append(f.synonyms[collection], syn)
	return nil
}

func newTestManager(ts SearchAdmin) *Manager {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	m := NewManager(ts, logger, false)
	m.now = func() time.Time { return time.Unix(1700000000, 0) }
	return m
}

func makeDocs(n int) []domain.Document {
	docs := make([]domain.Document, n)
	for i := range docs {
		docs[i] = domain.Document{"id": i}
	}
	return docs
}

func TestCreateIncarnation_NamesByEpoch(t *testing.T) {
	ts := newFakeSearchAdmin()
	m := newTestManager(ts)

	name, err := m.CreateIncarnation(context.Background(), "products", []typesense.Field{{Name: "model", Type: "string"}})

	require.NoError(t, err)
	assert.Equal(t, "products_1700000000", name)
	assert.Contains(t, ts.collections, "products_1700000000")
}

func TestImportBatches_SplitsAtBatchSize(t *testing.T) {
	ts := newFakeSearchAdmin()
	m := newTestManager(ts)

	imported, err := m.ImportBatches(context.Background(), "products_1", makeDocs(250), typesense.ImportActionCreate)

	require.NoError(t, err)
	assert.Equal(t, 250, imported)
	require.Len(t, ts.importedBatches, 3)
	assert.Len(t, ts.importedBatches[0], 100)
	assert.Len(t, ts.importedBatches[1], 100)
	assert.Len(t, ts.importedBatches[2], 50)
	assert.Equal(t, typesense.ImportActionCreate, ts.importActions[0])
}

func TestImportBatches_EmptyIsNoop(t *testing.T) {
	ts := newFakeSearchAdmin()
	m := newTestManager(ts)

	imported, err := m.ImportBatches(context.Background(), "products_1", nil, typesense.ImportActionUpsert)

	require.NoError(t, err)
	assert.Zero(t, imported)
	assert.Empty(t, ts.importedBatches)
}

func TestImportBatches_FailureAborts(t *testing.T) {
	ts := newFakeSearchAdmin()
	ts.importErr = errors.New("import rejected")
	m := newTestManager(ts)

	imported, err := m.ImportBatches(context.Background(), "products_1", makeDocs(10), typesense.ImportActionCreate)

	require.Error(t, err)
	assert.Zero(t, imported)
}

func TestCopySynonyms_CarriesOverFromLiveCollection(t *testing.T) {
	ts := newFakeSearchAdmin()
	ts.aliases["products"] = "products_old"
	ts.synonyms["products_old"] = []domain.Synonym{{ID: "tv", Synonyms: []string{"tv", "television"}}}
	m := newTestManager(ts)

	err := m.CopySynonyms(context.Background(), "products", "products_new")

	require.NoError(t, err)
	require.Len(t, ts.synonyms["products_new"], 1)
	assert.Equal(t, "tv", ts.synonyms["products_new"][0].ID)
}

func TestCopySynonyms_MissingAliasIsNoop(t *testing.T) {
	ts := newFakeSearchAdmin()
	m := newTestManager(ts)

	err := m.CopySynonyms(context.Background(), "products", "products_new")

	require.NoError(t, err)
	assert.Empty(t, ts.synonyms["products_new"])
}

func TestSwapAlias_SweepsStaleIncarnations(t *testing.T) {
	ts := newFakeSearchAdmin()
	ts.collections["products_100"] = nil // superseded generation
	ts.collections["products_90"] = nil  // orphan from a failed run
	ts.collections["products_200"] = nil // the new incarnation
	ts.collections["categories_100"] = nil
	m := newTestManager(ts)

	err := m.SwapAlias(context.Background(), "products", "products_200")

	require.NoError(t, err)
	assert.Equal(t, "products_200", ts.aliases["products"])
	assert.ElementsMatch(t, []string{"products_100", "products_90"}, ts.deletedColls)
	assert.Contains(t, ts.collections, "products_200")
	assert.Contains(t, ts.collections, "categories_100")
}

func TestDeleteDocuments_BuildsIDFilter(t *testing.T) {
	ts := newFakeSearchAdmin()
	ts.deleteResult = 2
	m := newTestManager(ts)

	deleted, err := m.DeleteDocuments(context.Background(), "products_200", []int64{3, 17, 42})

	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	assert.Equal(t, "id:[3,17,42]", ts.deleteFilter)
}

func TestDeleteDocuments_EmptyQueueSkipsCall(t *testing.T) {
	ts := newFakeSearchAdmin()
	m := newTestManager(ts)

	deleted, err := m.DeleteDocuments(context.Background(), "products_200", nil)

	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.Empty(t, ts.deleteFilter)
}
