package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/guyvdb/drepo/fault"
	"github.com/guyvdb/drepo/record"
)

// SQLDB is a SQLite database holding one table per record type.
type SQLDB struct {
	db   *sql.DB
	opts *options
}

// SQL implements the Store interface over one table of a SQLDB.
var _ Store = (*SQL)(nil)

type SQL struct {
	db      *sql.DB
	name    string
	table   string
	columns []Column
	byName  map[string]Column
	opts    *options
}

// OpenSQL opens (or creates) the SQLite database at path. ":memory:" gives
// a private in-memory database.
func OpenSQL(path string, opts ...Option) (*SQLDB, error) {
	slog.Debug("OpenSQL - open sqlite db", "path", path)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite supports a single writer; one connection also keeps a
	// :memory: database alive for the lifetime of the handle.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	return &SQLDB{db: db, opts: newOptions(opts)}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Store returns the store for the named type, creating its table and
// indexes if they do not exist yet.
func (d *SQLDB) Store(name string, columns []Column) (*SQL, error) {
	s := &SQL{
		db:     d.db,
		name:   name,
		table:  quoteIdent(name),
		byName: columnIndex(columns),
		opts:   d.opts,
	}
	s.columns = append(s.columns, implicitColumns()...)
	for _, c := range columns {
		if _, implicit := columnIndex(nil)[c.Name]; !implicit {
			s.columns = append(s.columns, c)
		}
	}

	if _, err := d.db.Exec(s.createTableSQL()); err != nil {
		return nil, fmt.Errorf("failed to create table %s: %w", name, err)
	}
	for _, c := range s.columns {
		if c.Index != NonUniqueIndex {
			continue
		}
		stmt := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
			quoteIdent("idx_"+name+"_"+c.Name), s.table, quoteIdent(c.Name))
		if _, err := d.db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("failed to create index on %s.%s: %w", name, c.Name, err)
		}
	}
	return s, nil
}

// DB returns the underlying sql.DB for direct queries.
func (d *SQLDB) DB() *sql.DB {
	return d.db
}

func (d *SQLDB) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

func (s *SQL) Name() string {
	return s.name
}

func (s *SQL) All() ([]*record.Record, error) {
	return s.query(fmt.Sprintf("SELECT %s FROM %s ORDER BY %s", s.columnList(), s.table, quoteIdent(record.IdField)))
}

func (s *SQL) Find(id int64) (*record.Record, error) {
	slog.Debug("SQL.Find() - find record", "type", s.name, "id", id)

	results, err := s.query(fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", s.columnList(), s.table, quoteIdent(record.IdField)), id)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fault.ErrRecordNotFound
	}
	return results[0], nil
}

func (s *SQL) Where(filter record.Attributes) ([]*record.Record, error) {
	var conds []string
	var params []any
	for _, name := range filter.Keys() {
		c, ok := s.byName[name]
		if !ok {
			return nil, &fault.UnknownAttributeError{TypeName: s.name, Attribute: name}
		}
		v, err := s.toColumn(c, filter[name])
		if err != nil {
			return nil, err
		}
		if v == nil {
			conds = append(conds, quoteIdent(name)+" IS NULL")
			continue
		}
		conds = append(conds, quoteIdent(name)+" = ?")
		params = append(params, v)
	}

	stmt := fmt.Sprintf("SELECT %s FROM %s", s.columnList(), s.table)
	if len(conds) > 0 {
		stmt += " WHERE " + strings.Join(conds, " AND ")
	}
	stmt += " ORDER BY " + quoteIdent(record.IdField)
	return s.query(stmt, params...)
}

func (s *SQL) Create(attrs record.Attributes) (*record.Record, error) {
	r := record.New(attrs)

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if id, ok := requestedId(attrs); ok {
		taken, err := s.exists(tx, id)
		if err != nil {
			return nil, err
		}
		if taken {
			slog.Debug("SQL.Create() - id taken, reassigning", "type", s.name, "id", id)
			r.Unset(record.IdField)
		} else {
			r.SetId(id)
		}
	} else {
		r.Unset(record.IdField)
	}
	touch(r, s.opts.now(), true)

	id, err := s.insert(tx, r)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.Find(id)
}

func (s *SQL) Save(r *record.Record) error {
	if r == nil {
		return fault.ErrNilRecord
	}
	if r.Id() <= 0 {
		created, err := s.Create(r.Attributes())
		if err != nil {
			return err
		}
		for k, v := range created.Attributes() {
			r.Set(k, v)
		}
		return nil
	}

	previous, err := s.Find(r.Id())
	if err != nil && !errors.Is(err, fault.ErrRecordNotFound) {
		return err
	}
	if previous != nil && !r.Has(record.CreatedAtField) {
		r.Set(record.CreatedAtField, previous.Get(record.CreatedAtField))
	}
	touch(r, s.opts.now(), previous == nil)

	names, params, err := s.row(r)
	if err != nil {
		return err
	}
	updates := make([]string, 0, len(names))
	for _, name := range names {
		if name != quoteIdent(record.IdField) {
			updates = append(updates, name+" = excluded."+name)
		}
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(%s) DO UPDATE SET %s",
		s.table, strings.Join(names, ", "), placeholders(len(names)), quoteIdent(record.IdField), strings.Join(updates, ", "))
	if _, err := s.db.Exec(stmt, params...); err != nil {
		return fmt.Errorf("%w: %w", fault.ErrPutFailed, err)
	}
	return nil
}

func (s *SQL) Delete(id int64) error {
	_, err := s.db.Exec(fmt.Sprintf("DELETE FROM %s WHERE %s = ?", s.table, quoteIdent(record.IdField)), id)
	return err
}

func (s *SQL) DeleteAll() error {
	slog.Debug("SQL.DeleteAll() - delete rows", "type", s.name)
	_, err := s.db.Exec("DELETE FROM " + s.table)
	return err
}

func (s *SQL) Exists(id int64) (bool, error) {
	return s.exists(s.db, id)
}

func (s *SQL) First() (*record.Record, error) {
	return s.edge("ASC")
}

func (s *SQL) Last() (*record.Record, error) {
	return s.edge("DESC")
}

// Close is a no-op; the database is closed through SQLDB.
func (s *SQL) Close() error {
	return nil
}

type querier interface {
	QueryRow(query string, args ...any) *sql.Row
}

func (s *SQL) exists(q querier, id int64) (bool, error) {
	var one int
	err := q.QueryRow(fmt.Sprintf("SELECT 1 FROM %s WHERE %s = ?", s.table, quoteIdent(record.IdField)), id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQL) edge(direction string) (*record.Record, error) {
	results, err := s.query(fmt.Sprintf("SELECT %s FROM %s ORDER BY %s %s LIMIT 1",
		s.columnList(), s.table, quoteIdent(record.IdField), direction))
	if err != nil || len(results) == 0 {
		return nil, err
	}
	return results[0], nil
}

func (s *SQL) insert(tx *sql.Tx, r *record.Record) (int64, error) {
	names, params, err := s.row(r)
	if err != nil {
		return 0, err
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", s.table, strings.Join(names, ", "), placeholders(len(names)))
	res, err := tx.Exec(stmt, params...)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, fmt.Errorf("%w: %w", fault.ErrUniqueConstraint, err)
		}
		return 0, fmt.Errorf("%w: %w", fault.ErrPutFailed, err)
	}
	return res.LastInsertId()
}

// row returns the quoted column names and storage values of r.
func (s *SQL) row(r *record.Record) ([]string, []any, error) {
	attrs := r.Attributes()
	names := make([]string, 0, len(attrs))
	params := make([]any, 0, len(attrs))
	for _, name := range attrs.Keys() {
		c, ok := s.byName[name]
		if !ok {
			return nil, nil, &fault.UnknownAttributeError{TypeName: s.name, Attribute: name}
		}
		v, err := s.toColumn(c, attrs[name])
		if err != nil {
			return nil, nil, err
		}
		names = append(names, quoteIdent(name))
		params = append(params, v)
	}
	return names, params, nil
}

func (s *SQL) query(stmt string, params ...any) ([]*record.Record, error) {
	rows, err := s.db.Query(stmt, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]*record.Record, 0)
	for rows.Next() {
		values := make([]any, len(s.columns))
		ptrs := make([]any, len(s.columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		attrs := make(record.Attributes, len(s.columns))
		for i, c := range s.columns {
			v, err := s.fromColumn(c, values[i])
			if err != nil {
				return nil, fmt.Errorf("%w: %s.%s: %w", fault.ErrUnmarshalFailed, s.name, c.Name, err)
			}
			if v != nil || c.Name == record.IdField {
				attrs[c.Name] = v
			}
		}
		results = append(results, record.New(attrs))
	}
	return results, rows.Err()
}

// toColumn converts a field value to its SQLite storage form.
func (s *SQL) toColumn(c Column, v any) (any, error) {
	cv, err := Coerce(c.Kind, v)
	if err != nil || cv == nil {
		return nil, err
	}
	switch c.Kind {
	case KindBool:
		if cv.(bool) {
			return int64(1), nil
		}
		return int64(0), nil
	case KindTime:
		return cv.(time.Time).Format(time.RFC3339Nano), nil
	case KindAny:
		return s.opts.codec.Marshal(record.Attributes{"v": cv})
	}
	return cv, nil
}

func (s *SQL) fromColumn(c Column, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if c.Kind == KindAny {
		data, ok := v.([]byte)
		if !ok {
			return record.Normalize(v), nil
		}
		attrs, err := s.opts.codec.Unmarshal(data)
		if err != nil {
			return nil, err
		}
		return attrs["v"], nil
	}
	return Coerce(c.Kind, v)
}

func (s *SQL) columnList() string {
	names := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = quoteIdent(c.Name)
	}
	return strings.Join(names, ", ")
}

func (s *SQL) createTableSQL() string {
	defs := make([]string, 0, len(s.columns))
	for _, c := range s.columns {
		if c.Name == record.IdField {
			defs = append(defs, quoteIdent(c.Name)+" INTEGER PRIMARY KEY AUTOINCREMENT")
			continue
		}
		def := quoteIdent(c.Name) + " " + sqlType(c.Kind)
		if c.Index == UniqueIndex {
			def += " UNIQUE"
		}
		defs = append(defs, def)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", s.table, strings.Join(defs, ", "))
}

func sqlType(k Kind) string {
	switch k {
	case KindInt, KindBool:
		return "INTEGER"
	case KindFloat:
		return "REAL"
	case KindString, KindTime:
		return "TEXT"
	}
	return "BLOB"
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
