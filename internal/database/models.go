package database

import "time"

// BookRecord is one archived book. Position keeps the library order.
type BookRecord struct {
	ID          uint   `gorm:"primaryKey"`
	AssetID     string `gorm:"index"`
	Title       string `gorm:"index"`
	Author      string
	Position    int                `gorm:"not null;index"`
	Annotations []AnnotationRecord `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE"`
}

func (BookRecord) TableName() string {
	return "books"
}

// AnnotationRecord is one archived highlight. Position keeps the in-book order.
type AnnotationRecord struct {
	ID         uint `gorm:"primaryKey"`
	BookID     uint `gorm:"not null;index"`
	Position   int  `gorm:"not null"`
	Text       string
	Note       string
	Chapter    string
	ModifiedAt time.Time
}

func (AnnotationRecord) TableName() string {
	return "annotations"
}

// SnapshotRecord is appended every time a library is saved.
type SnapshotRecord struct {
	ID         string    `gorm:"primaryKey"`
	SavedAt    time.Time `gorm:"not null;index"`
	Books      int
	Highlights int
}

func (SnapshotRecord) TableName() string {
	return "snapshots"
}
