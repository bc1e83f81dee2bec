package repo

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/carlfranklin/avnrepo/internal/query"
	"github.com/carlfranklin/avnrepo/pkg/errors"
	"github.com/carlfranklin/avnrepo/pkg/logger"
)

const sqlStore = "sql"

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// SQL stores entities as rows of one table. Columns come from the db tags of
// T (lowercased field names when untagged), as sqlx maps them.
type SQL[T Entity] struct {
	db     *sqlx.DB
	schema *query.Schema[T]
	log    logger.Logger

	selectAll  string
	selectByID string
	insert     string
	update     string
	deleteByID string
	deleteAll  string
}

func NewSQL[T Entity](cfg SQLConfig, table string, schema *query.Schema[T], log logger.Logger) (*SQL[T], error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "postgres"
	}

	db, err := sqlx.Open(driver, cfg.DSN)
	if err != nil {
		return nil, errors.WrapFailf(err, "open %s database", driver)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	s, err := NewSQLFromDB(db, table, cfg.KeyColumn, schema, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func NewSQLFromDB[T Entity](db *sqlx.DB, table, key string, schema *query.Schema[T], log logger.Logger) (*SQL[T], error) {
	if key == "" {
		key = "id"
	}

	if !identifier.MatchString(table) || !identifier.MatchString(key) {
		return nil, errors.Errorf("bad table or key column name: %q, %q", table, key)
	}

	columns := dbColumns(reflect.TypeFor[T]())
	if len(columns) == 0 {
		return nil, errors.Errorf("no columns in %s", reflect.TypeFor[T]())
	}

	var (
		named  = make([]string, len(columns))
		assign = make([]string, 0, len(columns))
	)
	for i, c := range columns {
		named[i] = ":" + c
		if c != key {
			assign = append(assign, c+" = :"+c)
		}
	}

	return &SQL[T]{
		db:     db,
		schema: schema,
		log:    log.With("sql_repo"),

		selectAll:  fmt.Sprintf("SELECT * FROM %s", table),
		selectByID: db.Rebind(fmt.Sprintf("SELECT * FROM %s WHERE %s = ?", table, key)),
		insert: fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			table, strings.Join(columns, ", "), strings.Join(named, ", ")),
		update: fmt.Sprintf("UPDATE %s SET %s WHERE %s = :%s",
			table, strings.Join(assign, ", "), key, key),
		deleteByID: db.Rebind(fmt.Sprintf("DELETE FROM %s WHERE %s = ?", table, key)),
		deleteAll:  fmt.Sprintf("DELETE FROM %s", table),
	}, nil
}

func (s *SQL[T]) GetAll(ctx context.Context) ([]T, error) {
	var items []T
	err := s.db.SelectContext(ctx, &items, s.selectAll)
	return items, storeErr(sqlStore, "select all", err)
}

func (s *SQL[T]) GetByID(ctx context.Context, id string) (T, error) {
	var item T
	err := s.db.GetContext(ctx, &item, s.selectByID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return item, ErrNotFound
	}
	return item, storeErr(sqlStore, "select by id", err)
}

// Get loads the whole table and evaluates filter in memory.
func (s *SQL[T]) Get(ctx context.Context, filter query.Filter) (query.Result[T], error) {
	items, err := s.GetAll(ctx)
	if err != nil {
		return query.Result[T]{}, err
	}
	return query.Evaluate(ctx, s.schema, items, filter)
}

func (s *SQL[T]) Insert(ctx context.Context, item T) (T, error) {
	if item.ID() == "" {
		return item, ErrMissingID
	}

	_, err := s.db.NamedExecContext(ctx, s.insert, item)
	return item, storeErr(sqlStore, "insert", err)
}

func (s *SQL[T]) Update(ctx context.Context, item T) (T, error) {
	r, err := s.db.NamedExecContext(ctx, s.update, item)
	if err != nil {
		return item, storeErr(sqlStore, "update", err)
	}

	n, err := r.RowsAffected()
	if err != nil {
		return item, storeErr(sqlStore, "count updated rows", err)
	}
	if n == 0 {
		return item, ErrNotFound
	}
	return item, nil
}

func (s *SQL[T]) Delete(ctx context.Context, id string) (bool, error) {
	r, err := s.db.ExecContext(ctx, s.deleteByID, id)
	if err != nil {
		return false, storeErr(sqlStore, "delete", err)
	}

	n, err := r.RowsAffected()
	if err != nil {
		return false, storeErr(sqlStore, "count deleted rows", err)
	}
	return n > 0, nil
}

func (s *SQL[T]) DeleteAll(ctx context.Context) error {
	r, err := s.db.ExecContext(ctx, s.deleteAll)
	if err != nil {
		return storeErr(sqlStore, "delete all", err)
	}

	if n, err := r.RowsAffected(); err == nil {
		s.log.Infof("deleted %d rows", n)
	}
	return nil
}

func (s *SQL[T]) Close(context.Context) error {
	return errors.WrapFail(s.db.Close(), "close sql database")
}

func dbColumns(t reflect.Type) []string {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}

	var columns []string
	for _, sf := range reflect.VisibleFields(t) {
		if !sf.IsExported() || sf.Anonymous {
			continue
		}

		name, _, _ := strings.Cut(sf.Tag.Get("db"), ",")
		switch name {
		case "-":
			continue
		case "":
			name = strings.ToLower(sf.Name)
		}
		columns = append(columns, name)
	}
	return columns
}
