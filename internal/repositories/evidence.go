package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"

	"dcia/internal/db"
	"dcia/internal/errors"
	"dcia/internal/models"
)

// EvidenceRepository stores the evidence catalog: crime subtypes, their
// evidence items, per-device locations, and item embeddings.
type EvidenceRepository struct {
	dbs    *db.Database
	logger *slog.Logger
}

func NewEvidenceRepository(dbs *db.Database, logger *slog.Logger) *EvidenceRepository {
	return &EvidenceRepository{
		dbs:    dbs,
		logger: logger.With("source", "EvidenceRepository"),
	}
}

// ListSubtypes returns all crime subtype names in alphabetical order.
func (r *EvidenceRepository) ListSubtypes(ctx context.Context) ([]string, error) {
	var subtypes []string
	stmt := `SELECT name FROM crime_subtypes ORDER BY name`
	if err := r.dbs.ReadOnly.SelectContext(ctx, &subtypes, stmt); err != nil {
		return nil, errors.Wrap(err, "select crime subtypes")
	}
	return subtypes, nil
}

// ListEvidence returns the evidence items for a crime subtype with their
// locations on the given device in catalog order. The subtype is matched
// case-insensitively. Items without locations on the device are returned
// with an empty location list; excluding them is the front-end's call.
func (r *EvidenceRepository) ListEvidence(
	ctx context.Context,
	subtype string,
	device models.DeviceType,
) ([]models.EvidenceItem, error) {
	type row struct {
		ID           int64          `db:"id"`
		Name         string         `db:"name"`
		Significance string         `db:"significance"`
		Path         sql.NullString `db:"path"`
	}
	stmt := `SELECT i.id, i.name, i.significance, l.path
		FROM evidence_items i
		JOIN crime_subtypes s ON s.id = i.subtype_id
		LEFT JOIN evidence_locations l ON l.item_id = i.id AND l.device = ?
		WHERE s.name = ? COLLATE NOCASE
		ORDER BY i.id, l.position`
	var rows []row
	if err := r.dbs.ReadOnly.SelectContext(ctx, &rows, stmt, string(device), subtype); err != nil {
		return nil, errors.Wrap(err, "select evidence items",
			slog.String("subtype", subtype), slog.String("device", string(device)))
	}

	var (
		items  []models.EvidenceItem
		lastID int64 = -1
	)
	for _, current := range rows {
		if current.ID != lastID {
			items = append(items, models.EvidenceItem{
				Name:         current.Name,
				Significance: current.Significance,
				Locations:    []string{},
			})
			lastID = current.ID
		}
		if current.Path.Valid {
			item := &items[len(items)-1]
			item.Locations = append(item.Locations, current.Path.String)
		}
	}
	return items, nil
}

// ReplaceCatalog replaces the whole catalog with the seed in one
// transaction. Existing embeddings are kept for items whose name and
// significance did not change, so a re-ingest does not force a full
// re-embedding run.
func (r *EvidenceRepository) ReplaceCatalog(ctx context.Context, seed models.CatalogSeed) error {
	embeddings, err := r.existingEmbeddings(ctx)
	if err != nil {
		return err
	}

	tx, err := r.dbs.ReadWrite.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM crime_subtypes`); err != nil {
		return errors.Wrap(err, "clear catalog")
	}

	for _, subtype := range seed.Subtypes {
		var subtypeID int64
		res, err := tx.ExecContext(ctx, `INSERT INTO crime_subtypes (name) VALUES (?)`, subtype.Name)
		if err != nil {
			return errors.Wrap(err, "insert crime subtype", slog.String("subtype", subtype.Name))
		}
		if subtypeID, err = res.LastInsertId(); err != nil {
			return errors.Wrap(err, "crime subtype id")
		}
		for _, item := range subtype.Items {
			var itemID int64
			res, err = tx.ExecContext(ctx,
				`INSERT INTO evidence_items (subtype_id, name, significance, embedding) VALUES (?, ?, ?, ?)`,
				subtypeID, item.Name, item.Significance, embeddings[item.Name+"\x00"+item.Significance])
			if err != nil {
				return errors.Wrap(err, "insert evidence item", slog.String("item", item.Name))
			}
			if itemID, err = res.LastInsertId(); err != nil {
				return errors.Wrap(err, "evidence item id")
			}
			for device, paths := range item.Locations {
				for position, path := range paths {
					if _, err = tx.ExecContext(ctx,
						`INSERT INTO evidence_locations (item_id, device, path, position) VALUES (?, ?, ?, ?)`,
						itemID, device, path, position); err != nil {
						return errors.Wrap(err, "insert evidence location",
							slog.String("item", item.Name), slog.String("device", device))
					}
				}
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit catalog")
	}
	return nil
}

func (r *EvidenceRepository) existingEmbeddings(ctx context.Context) (map[string]sql.NullString, error) {
	type row struct {
		Name         string         `db:"name"`
		Significance string         `db:"significance"`
		Embedding    sql.NullString `db:"embedding"`
	}
	var rows []row
	stmt := `SELECT name, significance, embedding FROM evidence_items WHERE embedding IS NOT NULL`
	if err := r.dbs.ReadOnly.SelectContext(ctx, &rows, stmt); err != nil {
		return nil, errors.Wrap(err, "select existing embeddings")
	}
	embeddings := make(map[string]sql.NullString, len(rows))
	for _, current := range rows {
		embeddings[current.Name+"\x00"+current.Significance] = current.Embedding
	}
	return embeddings, nil
}

// Node is an embeddable catalog entry used by the semantic search.
type Node struct {
	ID           int64
	Name         string
	Kind         string
	Significance string
	Embedding    []float32
}

// nodeKind labels catalog entries in question-answering citations.
const nodeKind = "EvidenceItem"

// NodesMissingEmbeddings returns the catalog nodes that have not been
// embedded yet.
func (r *EvidenceRepository) NodesMissingEmbeddings(ctx context.Context) ([]Node, error) {
	type row struct {
		ID           int64  `db:"id"`
		Name         string `db:"name"`
		Significance string `db:"significance"`
	}
	var rows []row
	stmt := `SELECT id, name, significance FROM evidence_items WHERE embedding IS NULL ORDER BY id`
	if err := r.dbs.ReadOnly.SelectContext(ctx, &rows, stmt); err != nil {
		return nil, errors.Wrap(err, "select nodes missing embeddings")
	}
	nodes := make([]Node, 0, len(rows))
	for _, current := range rows {
		nodes = append(nodes, Node{
			ID:           current.ID,
			Name:         current.Name,
			Kind:         nodeKind,
			Significance: current.Significance,
		})
	}
	return nodes, nil
}

// SaveEmbedding stores the embedding vector for an evidence item.
func (r *EvidenceRepository) SaveEmbedding(ctx context.Context, nodeID int64, embedding []float32) error {
	encoded, err := json.Marshal(embedding)
	if err != nil {
		return errors.Wrap(err, "marshal embedding", slog.Int64("node_id", nodeID))
	}
	stmt := `UPDATE evidence_items SET embedding = ? WHERE id = ?`
	if _, err = r.dbs.ReadWrite.ExecContext(ctx, stmt, string(encoded), nodeID); err != nil {
		return errors.Wrap(err, "update embedding", slog.Int64("node_id", nodeID))
	}
	return nil
}

// EmbeddedNodes returns all catalog nodes that carry an embedding.
func (r *EvidenceRepository) EmbeddedNodes(ctx context.Context) ([]Node, error) {
	type row struct {
		ID           int64  `db:"id"`
		Name         string `db:"name"`
		Significance string `db:"significance"`
		Embedding    string `db:"embedding"`
	}
	var rows []row
	stmt := `SELECT id, name, significance, embedding FROM evidence_items WHERE embedding IS NOT NULL ORDER BY id`
	if err := r.dbs.ReadOnly.SelectContext(ctx, &rows, stmt); err != nil {
		return nil, errors.Wrap(err, "select embedded nodes")
	}
	nodes := make([]Node, 0, len(rows))
	for _, current := range rows {
		var embedding []float32
		if err := json.Unmarshal([]byte(current.Embedding), &embedding); err != nil {
			r.logger.LogAttrs(ctx, slog.LevelWarn, "skipping node with malformed embedding",
				slog.Int64("node_id", current.ID), errors.SlogError(err))
			continue
		}
		nodes = append(nodes, Node{
			ID:           current.ID,
			Name:         current.Name,
			Kind:         nodeKind,
			Significance: current.Significance,
			Embedding:    embedding,
		})
	}
	return nodes, nil
}
