package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	apperrors "github.com/ricesearch/matcheval/internal/pkg/errors"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteSource reads and writes pair tables stored in a SQLite database.
type SQLiteSource struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path.
func OpenSQLite(path string) (*SQLiteSource, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, apperrors.DatasetError("opening sqlite database", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, apperrors.DatasetError("opening sqlite database", err)
	}
	return &SQLiteSource{db: db}, nil
}

// Close closes the database.
func (s *SQLiteSource) Close() error {
	return s.db.Close()
}

func checkIdent(kind, name string) error {
	if !identRe.MatchString(name) {
		return apperrors.ValidationError(fmt.Sprintf("invalid %s name", kind)).WithDetail(kind, name)
	}
	return nil
}

// tableColumns lists the columns of table in declaration order.
func (s *SQLiteSource) tableColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return nil, apperrors.DatasetError("inspecting table", err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, apperrors.DatasetError("inspecting table", err)
		}
		cols = append(cols, name)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.DatasetError("inspecting table", err)
	}
	if len(cols) == 0 {
		return nil, apperrors.NotFoundError(fmt.Sprintf("table %s", table))
	}
	return cols, nil
}

// ReadTable loads the given columns of table. With no columns every
// column is read. Missing columns fail before any row is fetched.
func (s *SQLiteSource) ReadTable(ctx context.Context, table string, columns ...string) (*Table, error) {
	if err := checkIdent("table", table); err != nil {
		return nil, err
	}
	available, err := s.tableColumns(ctx, table)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		columns = available
	}
	if err := (&Table{Columns: available}).Require(columns...); err != nil {
		return nil, err
	}

	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = `"` + c + `"`
	}
	query := fmt.Sprintf(`SELECT %s FROM "%s"`, strings.Join(quoted, ", "), table)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.DatasetError("querying table", err)
	}
	defer rows.Close()

	t := &Table{Columns: columns}
	cells := make([]sql.NullString, len(columns))
	dest := make([]any, len(columns))
	for i := range cells {
		dest[i] = &cells[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, apperrors.DatasetError("scanning row", err)
		}
		rec := make(Record, len(columns))
		for i, c := range columns {
			rec[c] = cells[i].String
		}
		t.Records = append(t.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.DatasetError("reading rows", err)
	}
	return t, nil
}

// WriteTable replaces table with the contents of t inside one transaction.
func (s *SQLiteSource) WriteTable(ctx context.Context, table string, t *Table) error {
	if err := checkIdent("table", table); err != nil {
		return err
	}
	if len(t.Columns) == 0 {
		return apperrors.ValidationError("table has no columns")
	}
	quoted := make([]string, len(t.Columns))
	marks := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		if err := checkIdent("column", c); err != nil {
			return err
		}
		quoted[i] = `"` + c + `"`
		marks[i] = "?"
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.DatasetError("starting transaction", err)
	}
	defer tx.Rollback()

	stmts := []string{
		fmt.Sprintf(`DROP TABLE IF EXISTS "%s"`, table),
		fmt.Sprintf(`CREATE TABLE "%s" (%s)`, table, strings.Join(quoted, ", ")),
	}
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return apperrors.DatasetError("creating table", err)
		}
	}

	insert, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO "%s" (%s) VALUES (%s)`,
		table, strings.Join(quoted, ", "), strings.Join(marks, ", ")))
	if err != nil {
		return apperrors.DatasetError("preparing insert", err)
	}
	defer insert.Close()

	args := make([]any, len(t.Columns))
	for _, rec := range t.Records {
		for i, c := range t.Columns {
			args[i] = rec[c]
		}
		if _, err := insert.ExecContext(ctx, args...); err != nil {
			return apperrors.DatasetError("inserting row", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.DatasetError("committing table", err)
	}
	return nil
}
