// Package database stores snapshots of an extracted highlight library in a
// local SQLite file, so exports can be re-run without the Apple Books databases.
package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/highlights/internal/entities"
	"github.com/mrlokans/highlights/internal/services"
)

// ErrNoSnapshot is returned by LastSnapshot when nothing was saved yet.
var ErrNoSnapshot = errors.New("no snapshot saved")

type Database struct {
	DB     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

func NewDatabase(dbPath string, log *zap.Logger) (*Database, error) {
	if log == nil {
		log = zap.NewNop()
	}

	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create archive directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = db.AutoMigrate(
		&BookRecord{},
		&AnnotationRecord{},
		&SnapshotRecord{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Debug("archive opened", zap.String("path", dbPath))

	return &Database{DB: db, logger: log, now: time.Now}, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Save replaces the archived library with library in a single transaction
// and records the snapshot.
func (d *Database) Save(ctx context.Context, library entities.Library) (services.Snapshot, error) {
	snapshot := SnapshotRecord{
		ID:         uuid.NewString(),
		SavedAt:    d.now().UTC(),
		Books:      library.Count(),
		Highlights: library.HighlightCount(),
	}

	err := d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&AnnotationRecord{}).Error; err != nil {
			return fmt.Errorf("failed to clear annotations: %w", err)
		}
		if err := tx.Where("1 = 1").Delete(&BookRecord{}).Error; err != nil {
			return fmt.Errorf("failed to clear books: %w", err)
		}

		for i, book := range library.Books() {
			record := toBookRecord(i, book)
			if err := tx.Create(&record).Error; err != nil {
				return fmt.Errorf("failed to save book %q: %w", book.Title(), err)
			}
		}

		if err := tx.Create(&snapshot).Error; err != nil {
			return fmt.Errorf("failed to record snapshot: %w", err)
		}
		return nil
	})
	if err != nil {
		return services.Snapshot{}, err
	}

	d.logger.Info("library archived",
		zap.String("snapshot_id", snapshot.ID),
		zap.Int("books", snapshot.Books),
		zap.Int("highlights", snapshot.Highlights))

	return toSnapshot(snapshot), nil
}

// Fetch returns the archived library in the order it was saved.
func (d *Database) Fetch(ctx context.Context) (entities.Library, error) {
	var records []BookRecord
	err := d.DB.WithContext(ctx).
		Preload("Annotations", func(db *gorm.DB) *gorm.DB {
			return db.Order("position")
		}).
		Order("position").
		Find(&records).Error
	if err != nil {
		return entities.Library{}, fmt.Errorf("failed to load archived books: %w", err)
	}

	books := make([]entities.Book, 0, len(records))
	for _, record := range records {
		books = append(books, record.toBook())
	}
	return entities.NewLibrary(books), nil
}

// LastSnapshot returns the most recently saved snapshot.
func (d *Database) LastSnapshot(ctx context.Context) (services.Snapshot, error) {
	var record SnapshotRecord
	err := d.DB.WithContext(ctx).Order("saved_at DESC, rowid DESC").First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return services.Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return services.Snapshot{}, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return toSnapshot(record), nil
}

func toBookRecord(position int, book entities.Book) BookRecord {
	annotations := book.Annotations()
	record := BookRecord{
		AssetID:     book.Identifier(),
		Title:       book.Title(),
		Author:      book.Author(),
		Position:    position,
		Annotations: make([]AnnotationRecord, 0, len(annotations)),
	}
	for i, a := range annotations {
		record.Annotations = append(record.Annotations, AnnotationRecord{
			Position:   i,
			Text:       a.Text(),
			Note:       a.Note(),
			Chapter:    a.Chapter(),
			ModifiedAt: a.Modified(),
		})
	}
	return record
}

func (r BookRecord) toBook() entities.Book {
	annotations := make([]entities.Annotation, 0, len(r.Annotations))
	for _, a := range r.Annotations {
		annotations = append(annotations, entities.NewAnnotation(a.Text, a.Note, a.Chapter, a.ModifiedAt))
	}
	return entities.NewBook(r.AssetID, r.Title, r.Author, annotations)
}

func toSnapshot(r SnapshotRecord) services.Snapshot {
	return services.Snapshot{
		ID:         r.ID,
		SavedAt:    r.SavedAt,
		Books:      r.Books,
		Highlights: r.Highlights,
	}
}

var (
	_ services.LibrarySource   = (*Database)(nil)
	_ services.LibraryArchiver = (*Database)(nil)
)
