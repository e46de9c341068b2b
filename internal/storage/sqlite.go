package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver registration.

	"findit/internal/model"
	"findit/internal/query"
	"findit/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

const reportColumns = `id, collection, description, location, fullname, email, phone_number,
	course, year_of_study, image_url, date_lost, time_lost, is_found, verification_code,
	expires_at, created_at`

var sqliteColumns = map[query.Field]string{
	query.FieldIsFound:   "is_found",
	query.FieldDateLost:  "date_lost",
	query.FieldCreatedAt: "created_at",
	query.FieldID:        "id",
}

var sqliteOperators = map[comparison]string{
	cmpEqual:   "=",
	cmpLess:    "<",
	cmpGreater: ">",
}

// SQLite implements Store backed by a SQLite database. Keywords live in a
// side table so that array membership becomes a subquery.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Query runs a descriptor against the reports table.
func (s *SQLite) Query(ctx context.Context, d query.Descriptor, after *model.Cursor, limit int) ([]Document, error) {
	stmt, args, err := buildSelect(d, after, limit)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	docs, err := scanDocuments(rows)
	_ = rows.Close()
	if err != nil {
		return nil, err
	}

	if err := s.loadKeywords(ctx, docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// Get returns a single document by collection and ID.
func (s *SQLite) Get(ctx context.Context, c query.Collection, id string) (*Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE collection = ? AND id = ?`,
		string(c), id,
	)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	docs := []Document{*doc}
	if err := s.loadKeywords(ctx, docs); err != nil {
		return nil, err
	}
	return &docs[0], nil
}

// SetFound sets the isFound flag of a document.
func (s *SQLite) SetFound(ctx context.Context, c query.Collection, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE reports SET is_found = 1 WHERE collection = ? AND id = ?`,
		string(c), id,
	)
	if err != nil {
		return fmt.Errorf("update report: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Create inserts a document with its keywords and populates ID and
// CreatedAt when they are unset.
func (s *SQLite) Create(ctx context.Context, doc *Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var code sql.NullInt64
	if doc.VerificationCode != 0 {
		code = sql.NullInt64{Int64: int64(doc.VerificationCode), Valid: true}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO reports (`+reportColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, string(doc.Collection), doc.Description, doc.Location, doc.Fullname, doc.Email, doc.PhoneNumber,
		nullString(doc.Course), nullString(doc.YearOfStudy), nullString(doc.ImageURL),
		formatTime(doc.DateLost), doc.TimeLost, boolToInt(doc.IsFound), code,
		formatTime(doc.ExpiresAt), formatTime(doc.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}

	for _, kw := range doc.Keywords {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO report_keywords (report_id, keyword) VALUES (?, ?)`,
			doc.ID, kw,
		); err != nil {
			return fmt.Errorf("insert keyword: %w", err)
		}
	}
	return tx.Commit()
}

// DeleteExpired removes every document whose expiry is at or before now.
func (s *SQLite) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	cutoff := formatTime(now)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM report_keywords WHERE report_id IN (SELECT id FROM reports WHERE expires_at <= ?)`,
		cutoff,
	); err != nil {
		return 0, fmt.Errorf("delete keywords: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM reports WHERE expires_at <= ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete reports: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, tx.Commit()
}

func (s *SQLite) loadKeywords(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	index := make(map[string]int, len(docs))
	placeholders := make([]string, 0, len(docs))
	args := make([]any, 0, len(docs))
	for i, d := range docs {
		index[d.ID] = i
		placeholders = append(placeholders, "?")
		args = append(args, d.ID)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT report_id, keyword FROM report_keywords
		 WHERE report_id IN (`+strings.Join(placeholders, ", ")+`) ORDER BY rowid`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("query keywords: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var id, kw string
		if err := rows.Scan(&id, &kw); err != nil {
			return fmt.Errorf("scan keyword: %w", err)
		}
		if i, ok := index[id]; ok {
			docs[i].Keywords = append(docs[i].Keywords, kw)
		}
	}
	return rows.Err()
}

func buildSelect(d query.Descriptor, after *model.Cursor, limit int) (string, []any, error) {
	where := []string{"collection = ?"}
	args := []any{string(d.Collection)}

	for _, p := range d.Predicates {
		switch p.Op {
		case query.OpEqual:
			col, ok := sqliteColumns[p.Field]
			if !ok {
				return "", nil, fmt.Errorf("unsupported equality field %q", p.Field)
			}
			where = append(where, col+" = ?")
			args = append(args, sqliteValue(p.Value))
		case query.OpArrayContains:
			if p.Field != query.FieldKeywords {
				return "", nil, fmt.Errorf("unsupported array field %q", p.Field)
			}
			where = append(where, "id IN (SELECT report_id FROM report_keywords WHERE keyword = ?)")
			args = append(args, p.Value)
		default:
			return "", nil, fmt.Errorf("unsupported operator %q", p.Op)
		}
	}

	sorts := ordering(d)
	if after != nil {
		terms, err := keyset(sorts, after)
		if err != nil {
			return "", nil, err
		}
		var ors []string
		for _, term := range terms {
			var ands []string
			for _, c := range term.conds {
				col := sqliteColumns[c.field]
				switch c.cmp {
				case cmpIsNull:
					ands = append(ands, col+" IS NULL")
				case cmpNotNull:
					ands = append(ands, col+" IS NOT NULL")
				default:
					ands = append(ands, col+" "+sqliteOperators[c.cmp]+" ?")
					args = append(args, sqliteValue(c.value))
				}
			}
			ors = append(ors, "("+strings.Join(ands, " AND ")+")")
		}
		where = append(where, "("+strings.Join(ors, " OR ")+")")
	}

	order := make([]string, 0, len(sorts))
	for _, s := range sorts {
		col, ok := sqliteColumns[s.Field]
		if !ok {
			return "", nil, fmt.Errorf("unsupported sort field %q", s.Field)
		}
		dir := "ASC"
		if s.Direction == query.Desc {
			dir = "DESC"
		}
		order = append(order, col+" "+dir)
	}

	stmt := `SELECT ` + reportColumns + ` FROM reports WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY ` + strings.Join(order, ", ")
	if limit > 0 {
		stmt += ` LIMIT ?`
		args = append(args, limit)
	}
	return stmt, args, nil
}

func sqliteValue(v any) any {
	switch x := v.(type) {
	case bool:
		return boolToInt(x)
	case time.Time:
		return formatTime(x)
	}
	return v
}

func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type scannable interface {
	Scan(dest ...any) error
}

func scanDocument(row scannable) (*Document, error) {
	var d Document
	var collection string
	var course, year, image, dateLost sql.NullString
	var isFound int
	var code sql.NullInt64
	var expires, created sql.NullString
	err := row.Scan(&d.ID, &collection, &d.Description, &d.Location, &d.Fullname, &d.Email, &d.PhoneNumber,
		&course, &year, &image, &dateLost, &d.TimeLost, &isFound, &code, &expires, &created)
	if err != nil {
		return nil, fmt.Errorf("scan report: %w", err)
	}
	d.Collection = query.Collection(collection)
	d.Course = course.String
	d.YearOfStudy = year.String
	d.ImageURL = image.String
	d.IsFound = isFound == 1
	d.VerificationCode = int(code.Int64)
	d.DateLost = parseTime(dateLost)
	d.ExpiresAt = parseTime(expires)
	d.CreatedAt = parseTime(created)
	return &d, nil
}

func scanDocuments(rows *sql.Rows) ([]Document, error) {
	var docs []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	return docs, rows.Err()
}

func parseTime(s sql.NullString) time.Time {
	if !s.Valid {
		return time.Time{}
	}
	t, _ := time.Parse(timeLayout, s.String)
	return t
}
