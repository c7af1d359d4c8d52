package recording

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
)

// QueryParams encapsulates the optional parts of a table query.
type QueryParams struct {
	// Where holds the WHERE clause without the "WHERE" keyword, e.g.
	// "Iteration > ?".
	Where string

	// Args holds the arguments for the placeholders in Where.
	Args []any

	// Limit is the maximum number of records to return; 0 means no
	// limit.
	Limit int

	// Offset is the number of records to skip.
	Offset int

	// OrderBy specifies sorting without the "ORDER BY" keywords, e.g.
	// "Iteration ASC".
	OrderBy string
}

// Reader reads back run data written by a Recorder.
type Reader interface {
	// MapTable establishes the mapping between a table and the struct
	// type its rows are scanned into. Required before querying.
	MapTable(tableName string, sampleEntry any)

	// ListTables returns the mapped table names.
	ListTables() []string

	// Query returns the matching rows of a table and the total count
	// ignoring pagination.
	Query(ctx context.Context, tableName string, params QueryParams) (
		results []any,
		totalCount int,
		err error,
	)

	// Close closes the reader.
	Close() error
}

type sqliteReader struct {
	*sql.DB

	typeMap map[string]reflect.Type
}

// NewReader opens the database file written by a Recorder.
func NewReader(dbFilename string) Reader {
	db, err := sql.Open("sqlite3", dbFilename)
	if err != nil {
		panic(err)
	}

	return &sqliteReader{
		DB:      db,
		typeMap: make(map[string]reflect.Type),
	}
}

// NewReaderWithDB creates a Reader on an already open database.
func NewReaderWithDB(db *sql.DB) Reader {
	return &sqliteReader{
		DB:      db,
		typeMap: make(map[string]reflect.Type),
	}
}

func (r *sqliteReader) MapTable(tableName string, sampleEntry any) {
	r.typeMap[tableName] = reflect.TypeOf(sampleEntry)
}

func (r *sqliteReader) ListTables() []string {
	tables := make([]string, 0, len(r.typeMap))
	for name := range r.typeMap {
		tables = append(tables, name)
	}

	return tables
}

func (r *sqliteReader) Query(
	ctx context.Context,
	tableName string,
	params QueryParams,
) ([]any, int, error) {
	entryType, ok := r.typeMap[tableName]
	if !ok {
		return nil, 0, fmt.Errorf("table %s is not mapped", tableName)
	}

	countSQL := "SELECT COUNT(*) FROM " + tableName
	if params.Where != "" {
		countSQL += " WHERE " + params.Where
	}

	total := 0
	if err := r.QueryRowContext(
		ctx, countSQL, params.Args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	querySQL := "SELECT * FROM " + tableName
	if params.Where != "" {
		querySQL += " WHERE " + params.Where
	}
	if params.OrderBy != "" {
		querySQL += " ORDER BY " + params.OrderBy
	}
	if params.Limit > 0 {
		querySQL += fmt.Sprintf(" LIMIT %d OFFSET %d",
			params.Limit, params.Offset)
	}

	rows, err := r.QueryContext(ctx, querySQL, params.Args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []any

	for rows.Next() {
		entry := reflect.New(entryType).Elem()

		fields := make([]any, entryType.NumField())
		for i := range fields {
			fields[i] = entry.Field(i).Addr().Interface()
		}

		if err := rows.Scan(fields...); err != nil {
			return nil, 0, err
		}

		results = append(results, entry.Interface())
	}

	return results, total, rows.Err()
}
