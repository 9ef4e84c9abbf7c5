package ingest

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/bimtools/bim-insight/internal/embedding"
	"github.com/bimtools/bim-insight/internal/errors"
	"github.com/bimtools/bim-insight/internal/logging"
	"github.com/bimtools/bim-insight/internal/tabular"
	"github.com/bimtools/bim-insight/internal/vectorstore"
)

// OnExists selects what happens when the target collection already holds
// data from a previous run.
type OnExists string

const (
	// OnExistsReuse keeps the existing collection untouched.
	OnExistsReuse OnExists = "reuse"

	// OnExistsReplace drops the collection and rebuilds it from scratch.
	OnExistsReplace OnExists = "replace"
)

// ParseOnExists validates a flag value.
func ParseOnExists(s string) (OnExists, error) {
	switch OnExists(s) {
	case OnExistsReuse, OnExistsReplace:
		return OnExists(s), nil
	default:
		return "", errors.Newf(errors.ErrTypeValidation,
			"invalid --on-exists value %q (want reuse or replace)", s)
	}
}

// BuildDocuments flattens a table into store documents. Document IDs are
// derived from the element type and row index, so rebuilding from the same
// exports produces byte-identical documents. Content is the element type
// followed by every non-empty field in source column order.
func BuildDocuments(table *tabular.Table) []vectorstore.Document {
	docs := make([]vectorstore.Document, 0, len(table.Records))

	for i, rec := range table.Records {
		var sb strings.Builder

		sb.WriteString("ElementType: ")
		sb.WriteString(table.ElementType)

		for _, col := range rec.Columns {
			v := rec.Get(col)
			if v.IsEmpty() {
				continue
			}

			sb.WriteString(" ")
			sb.WriteString(col)
			sb.WriteString(": ")
			sb.WriteString(v.String())
		}

		docs = append(docs, vectorstore.Document{
			ID:      fmt.Sprintf("%s_%d", table.ElementType, i),
			Content: sb.String(),
			Metadata: map[string]string{
				"element_type": table.ElementType,
				"row_index":    strconv.Itoa(i),
			},
		})
	}

	return docs
}

// Report summarizes one ingestion run. Committed counts documents whose
// batch reached the store, so a partial failure still reports what landed.
type Report struct {
	RunID      string
	Collection string
	Total      int
	Committed  int
	Reused     bool
}

// Ingestor embeds documents and loads them into a collection in batches.
type Ingestor struct {
	store     vectorstore.Store
	provider  embedding.Provider
	logger    *logging.Logger
	batchSize int
}

// NewIngestor wires an ingestor. batchSize bounds the documents per store
// write.
func NewIngestor(store vectorstore.Store, provider embedding.Provider, logger *logging.Logger, batchSize int) *Ingestor {
	if batchSize <= 0 {
		batchSize = 100
	}

	return &Ingestor{
		store:     store,
		provider:  provider,
		logger:    logger,
		batchSize: batchSize,
	}
}

// Ingest builds, embeds, and upserts documents for every table. When the
// collection already exists the onExists flag decides between reusing it
// as-is and rebuilding. A batch failure aborts the run but the report
// still carries the committed count.
func (in *Ingestor) Ingest(ctx context.Context, collection string, tables []*tabular.Table, onExists OnExists) (*Report, error) {
	report := &Report{
		RunID:      uuid.New().String(),
		Collection: collection,
	}

	log := in.logger.WithField("run_id", report.RunID)

	exists, err := in.store.HasCollection(ctx, collection)
	if err != nil {
		return report, err
	}

	if exists {
		if onExists == OnExistsReuse {
			report.Reused = true

			count, err := in.store.Count(ctx, collection)
			if err != nil {
				return report, err
			}

			report.Total = count
			report.Committed = count

			log.Infof("reusing existing collection %s with %d documents", collection, count)

			return report, nil
		}

		log.Infof("replacing existing collection %s", collection)

		if err := in.store.DropCollection(ctx, collection); err != nil {
			return report, err
		}
	}

	var docs []vectorstore.Document
	for _, table := range tables {
		docs = append(docs, BuildDocuments(table)...)
	}

	report.Total = len(docs)

	if len(docs) == 0 {
		return report, errors.New(errors.ErrTypeValidation, "no documents to ingest")
	}

	corpus := make([]string, len(docs))
	for i, doc := range docs {
		corpus[i] = doc.Content
	}

	if err := in.provider.Prepare(ctx, corpus); err != nil {
		return report, err
	}

	for i := range docs {
		vec, err := in.provider.Embed(ctx, docs[i].Content)
		if err != nil {
			return report, errors.Wrapf(err, errors.ErrTypeGeneration,
				"failed to embed document %s", docs[i].ID)
		}

		docs[i].Embedding = vec
	}

	if err := in.store.CreateCollection(ctx, collection, in.provider.Dimensions()); err != nil {
		return report, err
	}

	for start := 0; start < len(docs); start += in.batchSize {
		end := start + in.batchSize
		if end > len(docs) {
			end = len(docs)
		}

		if err := in.store.Upsert(ctx, collection, docs[start:end]); err != nil {
			return report, errors.Wrapf(err, errors.ErrTypeStorage,
				"batch %d-%d failed after %d committed documents", start, end, report.Committed)
		}

		report.Committed = end

		log.Debugf("committed batch %d-%d of %d", start, end, len(docs))
	}

	log.Infof("ingested %d documents into %s", report.Committed, collection)

	return report, nil
}
