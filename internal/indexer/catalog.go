package indexer

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/yungbote/datakit-backend/internal/data/repos"
	types "github.com/yungbote/datakit-backend/internal/domain"
	"github.com/yungbote/datakit-backend/internal/pkg/dbctx"
	"github.com/yungbote/datakit-backend/internal/pkg/logger"
)

// Catalog is the read-only schema view the indexer synchronizes against. It
// exposes exactly two shapes: the current field lists of active models (for
// sync), and the union of field lists across every model version including
// soft-deleted ones (for orphan detection).
type Catalog interface {
	ActiveModelFields(ctx context.Context) (map[uuid.UUID][]types.FieldDefinition, error)
	AllVersionFields(ctx context.Context) ([]types.FieldDefinition, error)
}

type catalog struct {
	models   repos.ModelRepo
	versions repos.ModelVersionRepo
	log      *logger.Logger
}

func NewCatalog(models repos.ModelRepo, versions repos.ModelVersionRepo, baseLog *logger.Logger) Catalog {
	return &catalog{
		models:   models,
		versions: versions,
		log:      baseLog.With("component", "SchemaCatalog"),
	}
}

func (c *catalog) ActiveModelFields(ctx context.Context) (map[uuid.UUID][]types.FieldDefinition, error) {
	dbc := dbctx.New(ctx)
	models, err := c.models.ListActive(dbc)
	if err != nil {
		return nil, err
	}
	versionIDs := make([]uuid.UUID, 0, len(models))
	versionToModel := make(map[uuid.UUID]uuid.UUID, len(models))
	for _, m := range models {
		if m.CurrentVersionID == nil {
			continue
		}
		versionIDs = append(versionIDs, *m.CurrentVersionID)
		versionToModel[*m.CurrentVersionID] = m.ID
	}
	versions, err := c.versions.GetByIDs(dbc, versionIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID][]types.FieldDefinition, len(versions))
	for _, v := range versions {
		fields, err := c.parseFields(v.Document)
		if err != nil {
			// A malformed stored document must not break a full sync run.
			c.log.Warn("Skipping model version with unparseable document", "version_id", v.ID, "error", err)
			continue
		}
		out[versionToModel[v.ID]] = fields
	}
	return out, nil
}

func (c *catalog) AllVersionFields(ctx context.Context) ([]types.FieldDefinition, error) {
	docs, err := c.versions.ListAllDocuments(dbctx.New(ctx))
	if err != nil {
		return nil, err
	}
	var out []types.FieldDefinition
	for _, raw := range docs {
		fields, err := c.parseFields(raw)
		if err != nil {
			c.log.Warn("Skipping unparseable model version document", "error", err)
			continue
		}
		out = append(out, fields...)
	}
	return out, nil
}

func (c *catalog) parseFields(raw []byte) ([]types.FieldDefinition, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return types.FieldsFromDocument(doc)
}
