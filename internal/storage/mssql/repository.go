package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/microsoft/go-mssqldb"

	"finnews-scraper/internal/observability"
	"finnews-scraper/internal/storage"
)

const schema = `
IF OBJECT_ID(N'dbo.TblHeadlines', N'U') IS NULL
CREATE TABLE dbo.TblHeadlines (
	[CheckSum]    CHAR(64)       NOT NULL PRIMARY KEY,
	[Title]       NVARCHAR(1000) NOT NULL,
	[URL]         NVARCHAR(2000) NOT NULL,
	[Source]      NVARCHAR(200)  NOT NULL,
	[PostingDate] NVARCHAR(200)  NOT NULL,
	[RunID]       UNIQUEIDENTIFIER NOT NULL,
	[FirstSeenAt] DATETIME2      NOT NULL,
	[LastSeenAt]  DATETIME2      NOT NULL
);`

const upsertQuery = `
	MERGE INTO dbo.TblHeadlines AS target
	USING (SELECT @CheckSum AS [CheckSum]) AS source
	ON target.[CheckSum] = source.[CheckSum]
	WHEN MATCHED THEN
		UPDATE SET
			[RunID] = @RunID,
			[LastSeenAt] = @SeenAt
	WHEN NOT MATCHED THEN
		INSERT ([CheckSum], [Title], [URL], [Source], [PostingDate], [RunID], [FirstSeenAt], [LastSeenAt])
		VALUES (@CheckSum, @Title, @URL, @Source, @PostingDate, @RunID, @SeenAt, @SeenAt)
	OUTPUT $action;
`

type Repository struct {
	db             *sql.DB
	commandTimeout time.Duration
	logger         *observability.Logger
}

var _ storage.Repository = (*Repository)(nil)

func NewRepository(dsn string, commandTimeout time.Duration, logger *observability.Logger) (*Repository, error) {
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Тестируем соединение
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Repository{
		db:             db,
		commandTimeout: commandTimeout,
		logger:         logger,
	}, nil
}

// UpsertHeadline сохраняет заголовок или обновляет время последнего появления
func (r *Repository) UpsertHeadline(ctx context.Context, h *storage.StoredHeadline) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	stmt, err := r.db.PrepareContext(ctx, upsertQuery)
	if err != nil {
		return false, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			r.logger.Error("Failed to close statement", "error", err.Error())
		}
	}()

	var action string
	err = stmt.QueryRowContext(ctx,
		sql.Named("CheckSum", h.CheckSum),
		sql.Named("Title", h.Headline.Title),
		sql.Named("URL", h.Headline.URL),
		sql.Named("Source", h.Headline.Source),
		sql.Named("PostingDate", h.Headline.PostingDate),
		sql.Named("RunID", h.RunID.String()),
		sql.Named("SeenAt", h.ScrapedAt.UTC()),
	).Scan(&action)
	if err != nil {
		return false, fmt.Errorf("failed to execute upsert: %w", err)
	}

	return action == "INSERT", nil
}

// CountBySource получает количество заголовков по источникам
func (r *Repository) CountBySource(ctx context.Context) (map[string]int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `SELECT [Source], COUNT(*) FROM dbo.TblHeadlines GROUP BY [Source]`)
	if err != nil {
		return nil, fmt.Errorf("failed to query database: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.Error("Failed to close rows", "error", err.Error())
		}
	}()

	counts := map[string]int{}
	for rows.Next() {
		var source string
		var n int
		if err := rows.Scan(&source, &n); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		counts[source] = n
	}
	return counts, rows.Err()
}

// Close закрывает соединение с БД
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
