package load

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"

	"github.com/dfarias/escrow-etl/internal/table"
)

// BigQueryLoader writes the star schema to a BigQuery dataset. It assumes
// Application Default Credentials are configured.
type BigQueryLoader struct {
	client    *bigquery.Client
	projectID string
	datasetID string
}

func NewBigQueryLoader(ctx context.Context, projectID, datasetID string) (*BigQueryLoader, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("bigquery client: %w", err)
	}
	return &BigQueryLoader{client: client, projectID: projectID, datasetID: datasetID}, nil
}

// Ping verifies the dataset exists and is readable.
func (l *BigQueryLoader) Ping(ctx context.Context) error {
	if _, err := l.dataset().Metadata(ctx); err != nil {
		return fmt.Errorf("dataset %s.%s: %w", l.projectID, l.datasetID, err)
	}
	return nil
}

func (l *BigQueryLoader) Close() error {
	return l.client.Close()
}

// Replace deletes the destination table if present, recreates it with a
// schema inferred from the data, and streams the rows in.
func (l *BigQueryLoader) Replace(ctx context.Context, tableName string, t *table.Table) error {
	if len(t.Columns) == 0 {
		return fmt.Errorf("replace %s: table has no columns", tableName)
	}

	dst := l.dataset().Table(tableName)
	if err := dst.Delete(ctx); err != nil && !isNotFound(err) {
		return fmt.Errorf("replace %s: delete: %w", tableName, err)
	}
	if err := dst.Create(ctx, &bigquery.TableMetadata{Schema: inferSchema(t)}); err != nil {
		return fmt.Errorf("replace %s: create: %w", tableName, err)
	}

	if t.Len() == 0 {
		return nil
	}

	savers := make([]*rowSaver, t.Len())
	for i, row := range t.Rows {
		savers[i] = &rowSaver{columns: t.Columns, row: row}
	}
	if err := dst.Inserter().Put(ctx, savers); err != nil {
		return fmt.Errorf("replace %s: inserting rows: %w", tableName, err)
	}
	return nil
}

// Stats counts rows per destination table. Missing tables are skipped.
func (l *BigQueryLoader) Stats(ctx context.Context) (map[string]int, error) {
	stats := make(map[string]int)
	for _, name := range DestinationTables {
		if _, err := l.dataset().Table(name).Metadata(ctx); err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, fmt.Errorf("stats: table %s: %w", name, err)
		}

		q := l.client.Query(fmt.Sprintf("SELECT COUNT(*) AS n FROM `%s.%s.%s`", l.projectID, l.datasetID, name))
		it, err := q.Read(ctx)
		if err != nil {
			return nil, fmt.Errorf("stats: count %s: %w", name, err)
		}
		var row struct{ N int64 }
		for {
			err := it.Next(&row)
			if err == iterator.Done {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("stats: iterating %s: %w", name, err)
			}
		}
		stats[name] = int(row.N)
	}
	return stats, nil
}

func (l *BigQueryLoader) dataset() *bigquery.Dataset {
	return l.client.DatasetInProject(l.projectID, l.datasetID)
}

// inferSchema maps each column to the BigQuery type of its first non-absent
// value. Every field is nullable: absent cells are part of the data model.
func inferSchema(t *table.Table) bigquery.Schema {
	schema := make(bigquery.Schema, len(t.Columns))
	for i, c := range t.Columns {
		fieldType := bigquery.StringFieldType
	scan:
		for _, row := range t.Rows {
			switch row.Get(c).Kind() {
			case table.KindNumber:
				fieldType = bigquery.BigNumericFieldType
				break scan
			case table.KindDate:
				fieldType = bigquery.DateFieldType
				break scan
			case table.KindString:
				break scan
			}
		}
		schema[i] = &bigquery.FieldSchema{Name: c, Type: fieldType}
	}
	return schema
}

// rowSaver adapts one table row to the streaming insert API.
type rowSaver struct {
	columns []string
	row     table.Row
}

func (s *rowSaver) Save() (map[string]bigquery.Value, string, error) {
	out := make(map[string]bigquery.Value, len(s.columns))
	for _, c := range s.columns {
		v := s.row.Get(c)
		switch v.Kind() {
		case table.KindString:
			out[c] = v.Str()
		case table.KindNumber:
			d, _ := v.Decimal()
			out[c] = d.Rat()
		case table.KindDate:
			d, _ := v.CivilDate()
			out[c] = d
		default:
			out[c] = nil
		}
	}
	// No insert ID: each run replaces the table wholesale, so best-effort
	// dedup buys nothing.
	return out, bigquery.NoDedupeID, nil
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
