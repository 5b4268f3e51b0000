package cache

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/developer-mesh/querycache/pkg/observability"
)

// CachingExecutor runs read queries through the semantic cache and executes
// them against the database only on a miss. Mutations executed through Exec
// invalidate the cached entries reading the affected tables, acting as the
// in-process data-mutation notifier.
type CachingExecutor struct {
	db     *sqlx.DB
	cache  *SemanticQueryCache
	logger observability.Logger
}

// NewCachingExecutor creates a caching executor over the given database.
func NewCachingExecutor(db *sqlx.DB, cache *SemanticQueryCache, logger observability.Logger) (*CachingExecutor, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if cache == nil {
		return nil, fmt.Errorf("cache is required")
	}
	if logger == nil {
		logger = observability.NewLogger("querycache.executor")
	}

	return &CachingExecutor{
		db:     db,
		cache:  cache,
		logger: logger,
	}, nil
}

// Query returns cached rows for a semantically equivalent query when
// possible, otherwise executes the query and caches the result. Rows are
// returned as column-name maps; the entry's metadata records the tables the
// query reads so pattern invalidation can find it.
func (e *CachingExecutor) Query(ctx context.Context, query string, params ...interface{}) ([]map[string]interface{}, error) {
	if cached, ok := e.cache.Get(ctx, query, params); ok {
		if rows, ok := cached.([]map[string]interface{}); ok {
			return rows, nil
		}
	}

	rows, err := e.db.QueryxContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]map[string]interface{}, 0)
	for rows.Next() {
		row := map[string]interface{}{}
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}

	metadata := map[string]interface{}{
		"tables": referencedTables(query),
	}
	if err := e.cache.Set(ctx, query, params, results, metadata); err != nil {
		e.logger.Warn("Failed to cache query results", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return results, nil
}

// Exec executes a mutation and invalidates cached entries reading the tables
// the statement touches.
func (e *CachingExecutor) Exec(ctx context.Context, stmt string, params ...interface{}) (sql.Result, error) {
	result, err := e.db.ExecContext(ctx, stmt, params...)
	if err != nil {
		return nil, fmt.Errorf("exec failed: %w", err)
	}

	for _, table := range mutatedTables(stmt) {
		if removed := e.cache.InvalidateByTable(ctx, table); removed > 0 {
			e.logger.Debug("Invalidated entries after mutation", map[string]interface{}{
				"table":   table,
				"removed": removed,
			})
		}
	}

	return result, nil
}

// referencedTables extracts the table names a SELECT reads: the token after
// each FROM and JOIN keyword. The extraction is heuristic; pattern
// invalidation tolerates over-matching.
func referencedTables(query string) []string {
	return tablesAfterKeywords(query, map[string]bool{"FROM": true, "JOIN": true})
}

// mutatedTables extracts the table names a mutation writes: the token after
// INTO (INSERT), UPDATE, and FROM (DELETE).
func mutatedTables(stmt string) []string {
	return tablesAfterKeywords(stmt, map[string]bool{"INTO": true, "UPDATE": true, "FROM": true})
}

func tablesAfterKeywords(query string, keywords map[string]bool) []string {
	tokens := strings.Fields(strings.ToUpper(query))

	seen := make(map[string]bool)
	var tables []string
	for i := 0; i < len(tokens)-1; i++ {
		if !keywords[tokens[i]] {
			continue
		}
		table := strings.Trim(tokens[i+1], `"'(),;`)
		if table == "" || keywords[table] || strings.Contains(table, "(") {
			continue
		}
		if !seen[table] {
			seen[table] = true
			tables = append(tables, table)
		}
	}

	return tables
}
