package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // dialect registration
	_ "github.com/jackc/pgx/v5/stdlib"                  // pgx database/sql driver
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"
	_ "github.com/lib/pq" // postgres driver
	_ "modernc.org/sqlite" // sqlite driver

	"careerboost/internal/config"
	"careerboost/internal/errors"
	"careerboost/internal/types"
)

const (
	resumesTable = "resumes"

	colID               = "id"
	colUserID           = "user_id"
	colTitle            = "title"
	colFileName         = "file_name"
	colFileType         = "file_type"
	colFileKey          = "file_key"
	colFileURL          = "file_url"
	colOriginalText     = "original_text"
	colOptimizedText    = "optimized_text"
	colLastSavedText    = "last_saved_text"
	colLastSavedScore   = "last_saved_score"
	colATSScore         = "ats_score"
	colLanguage         = "language"
	colSuggestions      = "suggestions"
	colKeywords         = "keywords"
	colSelectedTemplate = "selected_template"
	colCreatedAt        = "created_at"
	colUpdatedAt        = "updated_at"
)

var resumeColumns = []any{
	colID, colUserID, colTitle, colFileName, colFileType, colFileKey, colFileURL,
	colOriginalText, colOptimizedText, colLastSavedText, colLastSavedScore,
	colATSScore, colLanguage, colSuggestions, colKeywords, colSelectedTemplate,
	colCreatedAt, colUpdatedAt,
}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ResumeStore persists resumes. Every lookup is scoped to the owning user.
type ResumeStore interface {
	Create(ctx context.Context, resume *types.Resume) error
	Get(ctx context.Context, userID, id string) (*types.Resume, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]types.Resume, error)
	Update(ctx context.Context, resume *types.Resume) error
	Delete(ctx context.Context, userID, id string) error
	Ping(ctx context.Context) error
	Close() error
}

// SQLStore is a ResumeStore on top of Postgres or SQLite
type SQLStore struct {
	db      *sqlx.DB
	driver  string
	dialect goqu.DialectWrapper
	logger  *errors.Logger
}

// driverInfo maps a configured driver to its database/sql name and goqu dialect
func driverInfo(driver string) (sqlDriver, dialect string, err error) {
	switch strings.ToLower(driver) {
	case "postgres":
		return "postgres", "postgres", nil
	case "pgx":
		return "pgx", "postgres", nil
	case "sqlite", "sqlite3":
		return "sqlite", "sqlite3", nil
	}
	return "", "", errors.NewConfigError(errors.ErrCodeInvalidConfig,
		fmt.Sprintf("unsupported database driver: %s", driver), nil)
}

// Open connects to the configured database and, when enabled, migrates it
func Open(ctx context.Context, cfg *config.DatabaseConfig, logger *errors.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	sqlDriver, dialect, err := driverInfo(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(sqlDriver, cfg.DSN)
	if err != nil {
		return nil, errors.NewStorageError(errors.ErrCodeStorageFailed, "failed to open database connection", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if dialect == "sqlite3" {
		// sqlite allows a single writer
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.NewStorageError(errors.ErrCodeStorageFailed, "failed to ping database", err)
	}

	s := &SQLStore{
		db:      db,
		driver:  sqlDriver,
		dialect: goqu.Dialect(dialect),
		logger:  logger,
	}
	if cfg.AutoMigrate {
		if err := s.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	logger.Info("Database connected", "driver", sqlDriver)
	return s, nil
}

// Migrate creates the resumes table and its index when missing
func (s *SQLStore) Migrate(ctx context.Context) error {
	timestampType := "TIMESTAMPTZ"
	if s.driver == "sqlite" {
		timestampType = "DATETIME"
	}
	statements := []string{
		`CREATE TABLE IF NOT EXISTS ` + resumesTable + ` (
			id                TEXT PRIMARY KEY,
			user_id           TEXT NOT NULL,
			title             TEXT NOT NULL DEFAULT '',
			file_name         TEXT NOT NULL DEFAULT '',
			file_type         TEXT NOT NULL DEFAULT '',
			file_key          TEXT NOT NULL DEFAULT '',
			file_url          TEXT NOT NULL DEFAULT '',
			original_text     TEXT NOT NULL,
			optimized_text    TEXT NOT NULL,
			last_saved_text   TEXT,
			last_saved_score  INTEGER,
			ats_score         INTEGER NOT NULL,
			language          TEXT NOT NULL DEFAULT 'en',
			suggestions       TEXT NOT NULL DEFAULT '[]',
			keywords          TEXT NOT NULL DEFAULT '[]',
			selected_template TEXT NOT NULL DEFAULT '',
			created_at        ` + timestampType + ` NOT NULL,
			updated_at        ` + timestampType + ` NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_resumes_user_updated ON ` + resumesTable + ` (user_id, updated_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.NewStorageError(errors.ErrCodeStorageFailed, "failed to migrate database", err)
		}
	}
	s.logger.Debug("Database migrated", "table", resumesTable)
	return nil
}

// Create inserts a new resume
func (s *SQLStore) Create(ctx context.Context, r *types.Resume) error {
	record, err := toRecord(r)
	if err != nil {
		return err
	}
	record[colID] = r.ID
	record[colUserID] = r.UserID
	record[colCreatedAt] = r.CreatedAt.UTC()

	query, args, err := s.dialect.Insert(resumesTable).Rows(record).Prepared(true).ToSQL()
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeStorageFailed, "failed to build insert query", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return errors.NewStorageError(errors.ErrCodeStorageFailed, "failed to insert resume", err).
			WithContext("resume_id", r.ID)
	}
	s.logger.Debug("Resume created", "resume_id", r.ID, "user_id", r.UserID)
	return nil
}

// Get returns the resume with id owned by userID
func (s *SQLStore) Get(ctx context.Context, userID, id string) (*types.Resume, error) {
	query, args, err := s.dialect.From(resumesTable).
		Select(resumeColumns...).
		Where(goqu.Ex{colID: id, colUserID: userID}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeStorageFailed, "failed to build select query", err)
	}

	var row resumeRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, notFound(id)
		}
		return nil, errors.NewStorageError(errors.ErrCodeStorageFailed, "failed to load resume", err).
			WithContext("resume_id", id)
	}
	return row.toResume()
}

// ListByUser returns the user's resumes, most recently updated first. A
// limit of zero returns all of them.
func (s *SQLStore) ListByUser(ctx context.Context, userID string, limit int) ([]types.Resume, error) {
	ds := s.dialect.From(resumesTable).
		Select(resumeColumns...).
		Where(goqu.Ex{colUserID: userID}).
		Order(goqu.C(colUpdatedAt).Desc(), goqu.C(colID).Asc())
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeStorageFailed, "failed to build select query", err)
	}

	var rows []resumeRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.NewStorageError(errors.ErrCodeStorageFailed, "failed to list resumes", err)
	}
	out := make([]types.Resume, 0, len(rows))
	for _, row := range rows {
		r, err := row.toResume()
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, nil
}

// Update writes the mutable fields of an existing resume
func (s *SQLStore) Update(ctx context.Context, r *types.Resume) error {
	record, err := toRecord(r)
	if err != nil {
		return err
	}
	query, args, err := s.dialect.Update(resumesTable).
		Set(record).
		Where(goqu.Ex{colID: r.ID, colUserID: r.UserID}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeStorageFailed, "failed to build update query", err)
	}
	return s.execOne(ctx, query, args, r.ID, "update")
}

// Delete removes the resume with id owned by userID
func (s *SQLStore) Delete(ctx context.Context, userID, id string) error {
	query, args, err := s.dialect.Delete(resumesTable).
		Where(goqu.Ex{colID: id, colUserID: userID}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeStorageFailed, "failed to build delete query", err)
	}
	return s.execOne(ctx, query, args, id, "delete")
}

func (s *SQLStore) execOne(ctx context.Context, query string, args []any, id, action string) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.NewStorageError(errors.ErrCodeStorageFailed, "failed to "+action+" resume", err).
			WithContext("resume_id", id)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.NewStorageError(errors.ErrCodeStorageFailed, "failed to read affected rows", err)
	}
	if affected == 0 {
		return notFound(id)
	}
	s.logger.Debug("Resume "+action+"d", "resume_id", id)
	return nil
}

// Ping checks the database connection
func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return errors.NewStorageError(errors.ErrCodeStorageFailed, "database unreachable", err)
	}
	return nil
}

// Close closes the connection pool
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func notFound(id string) error {
	return errors.NewNotFoundError(errors.ErrCodeResumeNotFound,
		fmt.Sprintf("resume %s not found", id), nil).WithContext("resume_id", id)
}

// toRecord holds the columns written by both insert and update
func toRecord(r *types.Resume) (goqu.Record, error) {
	suggestions := r.Suggestions
	if suggestions == nil {
		suggestions = []types.Suggestion{}
	}
	keywords := r.Keywords
	if keywords == nil {
		keywords = []types.Keyword{}
	}
	suggestionsJSON, err := json.MarshalToString(suggestions)
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeStorageFailed, "failed to encode suggestions", err)
	}
	keywordsJSON, err := json.MarshalToString(keywords)
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeStorageFailed, "failed to encode keywords", err)
	}

	updatedAt := r.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	var lastSavedText, lastSavedScore any
	if r.LastSavedText != nil {
		lastSavedText = *r.LastSavedText
	}
	if r.LastSavedScore != nil {
		lastSavedScore = *r.LastSavedScore
	}

	return goqu.Record{
		colTitle:            r.Title,
		colFileName:         r.FileName,
		colFileType:         r.FileType,
		colFileKey:          r.FileKey,
		colFileURL:          r.FileURL,
		colOriginalText:     r.OriginalText,
		colOptimizedText:    r.OptimizedText,
		colLastSavedText:    lastSavedText,
		colLastSavedScore:   lastSavedScore,
		colATSScore:         r.ATSScore,
		colLanguage:         r.Language,
		colSuggestions:      suggestionsJSON,
		colKeywords:         keywordsJSON,
		colSelectedTemplate: r.SelectedTemplate,
		colUpdatedAt:        updatedAt.UTC(),
	}, nil
}
