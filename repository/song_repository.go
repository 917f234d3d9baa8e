package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/psycacid/musichub/logger"
	"github.com/psycacid/musichub/model"
)

// SongRepository defines the catalog's persistent operations. Every mutation
// is a single statement; there are no multi-statement transactions.
type SongRepository interface {
	CreateSong(ctx context.Context, song *model.Song) (int64, error)
	UpdateSong(ctx context.Context, id int64, upd model.SongUpdate) error
	DeleteSong(ctx context.Context, id int64) error
	// GetSongByID returns (nil, nil) when no song has the id.
	GetSongByID(ctx context.Context, id int64) (*model.Song, error)
	GetAllSongs(ctx context.Context) ([]*model.Song, error)
	// GetMusicFilePath returns the audio locator of a song, or ErrNotFound.
	GetMusicFilePath(ctx context.Context, id int64) (string, error)
}

// sqlSongRepository implements SongRepository over database/sql. The queries
// only use `?` placeholders and COALESCE, so they run unchanged on SQLite and MySQL.
type sqlSongRepository struct {
	db *sql.DB
}

// NewSQLSongRepository creates a repository over an open catalog database.
func NewSQLSongRepository(db *sql.DB) SongRepository {
	return &sqlSongRepository{db: db}
}

const songColumns = `id, title, artist, album, genre, file_path, song_image`

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func validateSong(song *model.Song) error {
	if song == nil {
		return &ValidationError{Field: "song"}
	}
	if blank(song.Title) {
		return &ValidationError{Field: "title"}
	}
	if blank(song.Artist) {
		return &ValidationError{Field: "artist"}
	}
	if blank(song.AudioLocator) {
		return &ValidationError{Field: "audio locator"}
	}
	return nil
}

func validateUpdate(upd model.SongUpdate) error {
	if upd.Title != nil && blank(*upd.Title) {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if upd.Artist != nil && blank(*upd.Artist) {
		return &ValidationError{Field: "artist", Reason: "must not be empty"}
	}
	if upd.AudioLocator != nil && blank(*upd.AudioLocator) {
		return &ValidationError{Field: "audio locator", Reason: "must not be empty"}
	}
	return nil
}

// nullable stores optional text as NULL when empty.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// optional maps an update field onto a query argument; nil keeps the column.
func optional(p *string) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSong(row rowScanner) (*model.Song, error) {
	var (
		song                model.Song
		album, genre, image sql.NullString
	)
	if err := row.Scan(&song.ID, &song.Title, &song.Artist, &album, &genre, &song.AudioLocator, &image); err != nil {
		return nil, err
	}
	song.Album = album.String
	song.Genre = genre.String
	song.ImageLocator = image.String
	return &song, nil
}

// CreateSong inserts a new song and returns its id.
func (r *sqlSongRepository) CreateSong(ctx context.Context, song *model.Song) (int64, error) {
	if err := validateSong(song); err != nil {
		return 0, err
	}

	query := `INSERT INTO songs (title, artist, album, genre, file_path, song_image) VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query,
		song.Title, song.Artist, nullable(song.Album), nullable(song.Genre), song.AudioLocator, nullable(song.ImageLocator))
	if err != nil {
		return 0, persistenceErr("create song", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, persistenceErr("get last insert ID for song", err)
	}
	logger.Info("Song created", logger.Int64("songId", id), logger.String("title", song.Title))
	return id, nil
}

// UpdateSong changes only the supplied fields of a song in a single statement.
func (r *sqlSongRepository) UpdateSong(ctx context.Context, id int64, upd model.SongUpdate) error {
	if err := validateUpdate(upd); err != nil {
		return err
	}

	// Optional columns: a supplied "" clears the column, a nil keeps it.
	query := `UPDATE songs SET
		title = COALESCE(?, title),
		artist = COALESCE(?, artist),
		album = CASE WHEN ? THEN NULLIF(?, '') ELSE album END,
		genre = CASE WHEN ? THEN NULLIF(?, '') ELSE genre END,
		file_path = COALESCE(?, file_path),
		song_image = CASE WHEN ? THEN NULLIF(?, '') ELSE song_image END
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		optional(upd.Title),
		optional(upd.Artist),
		upd.Album != nil, optional(upd.Album),
		upd.Genre != nil, optional(upd.Genre),
		optional(upd.AudioLocator),
		upd.ImageLocator != nil, optional(upd.ImageLocator),
		id)
	if err != nil {
		return persistenceErr(fmt.Sprintf("update song %d", id), err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return persistenceErr(fmt.Sprintf("read rows affected updating song %d", id), err)
	}
	if n == 0 {
		return ErrNotFound
	}
	logger.Info("Song updated", logger.Int64("songId", id))
	return nil
}

// DeleteSong removes a song. Deleting an absent song returns ErrNotFound.
func (r *sqlSongRepository) DeleteSong(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM songs WHERE id = ?`, id)
	if err != nil {
		return persistenceErr(fmt.Sprintf("delete song %d", id), err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return persistenceErr(fmt.Sprintf("read rows affected deleting song %d", id), err)
	}
	if n == 0 {
		return ErrNotFound
	}
	logger.Info("Song deleted", logger.Int64("songId", id))
	return nil
}

// GetSongByID retrieves a song by its ID.
func (r *sqlSongRepository) GetSongByID(ctx context.Context, id int64) (*model.Song, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+songColumns+` FROM songs WHERE id = ?`, id)

	song, err := scanSong(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Song not found
		}
		return nil, persistenceErr(fmt.Sprintf("get song by ID %d", id), err)
	}
	return song, nil
}

// GetAllSongs retrieves all songs ordered by id.
func (r *sqlSongRepository) GetAllSongs(ctx context.Context) ([]*model.Song, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+songColumns+` FROM songs ORDER BY id`)
	if err != nil {
		return nil, persistenceErr("query all songs", err)
	}
	defer rows.Close()

	songs := make([]*model.Song, 0)
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, persistenceErr("scan song in GetAllSongs", err)
		}
		songs = append(songs, song)
	}

	if err = rows.Err(); err != nil {
		return nil, persistenceErr("iterate songs in GetAllSongs", err)
	}
	return songs, nil
}

// GetMusicFilePath retrieves the audio locator of a song.
func (r *sqlSongRepository) GetMusicFilePath(ctx context.Context, id int64) (string, error) {
	var locator string
	err := r.db.QueryRowContext(ctx, `SELECT file_path FROM songs WHERE id = ?`, id).Scan(&locator)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", persistenceErr(fmt.Sprintf("get file path for song %d", id), err)
	}
	return locator, nil
}
