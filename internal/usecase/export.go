package usecase

import (
	"context"
	"fmt"

	"github.com/semmidev/tenantvault/internal/domain"
	"github.com/semmidev/tenantvault/internal/infrastructure/metrics"
)

type ExportResult struct {
	Data         domain.TableData
	Tables       []string
	TotalRecords int
}

// Exporter reads a tenant's tables from the data store. Whether a table is
// filtered by tenant comes from the descriptor registry only.
type Exporter struct {
	store        domain.DataStore
	registry     map[string]domain.TableDescriptor
	defaults     []string
	tenantColumn string
	logger       Logger
}

func NewExporter(
	store domain.DataStore,
	tables []domain.TableDescriptor,
	tenantColumn string,
	logger Logger,
) *Exporter {
	registry := make(map[string]domain.TableDescriptor, len(tables))
	defaults := make([]string, 0, len(tables))
	for _, t := range tables {
		// first descriptor wins
		if _, dup := registry[t.Name]; dup {
			continue
		}
		registry[t.Name] = t
		defaults = append(defaults, t.Name)
	}

	return &Exporter{
		store:        store,
		registry:     registry,
		defaults:     defaults,
		tenantColumn: tenantColumn,
		logger:       logger,
	}
}

// Tables resolves the list an export of requested reads: the default list
// when requested is empty, with repeated names dropped.
func (e *Exporter) Tables(requested []string) []string {
	if len(requested) == 0 {
		requested = e.defaults
	}

	seen := make(map[string]struct{}, len(requested))
	tables := make([]string, 0, len(requested))
	for _, name := range requested {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		tables = append(tables, name)
	}
	return tables
}

// Export reads every table Tables resolves for the request. A table that
// fails to read is left out of the result; only an unreachable data store or
// a cancelled context fails the export.
func (e *Exporter) Export(ctx context.Context, tenantID string, requested []string) (*ExportResult, error) {
	tables := e.Tables(requested)

	if err := e.store.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDataStoreUnavailable, err)
	}

	result := &ExportResult{
		Data:   domain.NewTableData(),
		Tables: make([]string, 0, len(tables)),
	}

	for _, table := range tables {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rows, err := e.store.ReadTable(ctx, e.query(table, tenantID))
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			e.logger.Warnf("[%s] Skipping table %s: %v", tenantID, table, err)
			metrics.TableExportFailures.WithLabelValues(table).Inc()
			continue
		}
		if rows == nil {
			rows = []domain.Row{}
		}

		result.Data.Set(table, rows)
		result.Tables = append(result.Tables, table)
		result.TotalRecords += len(rows)
	}

	e.logger.Infof("[%s] Exported %d/%d tables, %d records",
		tenantID, len(result.Tables), len(tables), result.TotalRecords)

	return result, nil
}

func (e *Exporter) query(table, tenantID string) domain.TableQuery {
	desc, ok := e.registry[table]
	if ok && !desc.TenantScoped {
		return domain.TableQuery{Table: table}
	}

	// unknown tables are filtered by tenant
	column := e.tenantColumn
	if desc.TenantColumn != "" {
		column = desc.TenantColumn
	}
	return domain.TableQuery{Table: table, TenantColumn: column, TenantID: tenantID}
}
