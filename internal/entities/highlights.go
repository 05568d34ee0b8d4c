package entities

import (
	"time"
)

// Annotation is a single highlighted passage. Values are fixed at construction.
type Annotation struct {
	text     string
	note     string
	chapter  string
	modified time.Time
}

// NewAnnotation builds an Annotation. Empty note and chapter mean "none".
func NewAnnotation(text, note, chapter string, modified time.Time) Annotation {
	return Annotation{
		text:     text,
		note:     note,
		chapter:  chapter,
		modified: modified.UTC(),
	}
}

func (a Annotation) Text() string        { return a.text }
func (a Annotation) Note() string        { return a.note }
func (a Annotation) Chapter() string     { return a.chapter }
func (a Annotation) Modified() time.Time { return a.modified }

// Noted reports whether the reader attached a note to the highlight.
func (a Annotation) Noted() bool {
	return a.note != ""
}

// Book is a title with its highlights in position-in-book order.
type Book struct {
	identifier  string
	title       string
	author      string
	annotations []Annotation
}

// NewBook copies annotations so later changes to the caller's slice are not observed.
func NewBook(identifier, title, author string, annotations []Annotation) Book {
	return Book{
		identifier:  identifier,
		title:       title,
		author:      author,
		annotations: append([]Annotation(nil), annotations...),
	}
}

// Identifier is the Apple Books asset ID.
func (b Book) Identifier() string { return b.identifier }
func (b Book) Title() string      { return b.title }
func (b Book) Author() string     { return b.author }

// Annotations returns a copy of the book's highlights.
func (b Book) Annotations() []Annotation {
	return append([]Annotation(nil), b.annotations...)
}

// Count returns the number of annotations.
func (b Book) Count() int {
	return len(b.annotations)
}

// Library is the full extracted result.
type Library struct {
	books []Book
}

func NewLibrary(books []Book) Library {
	return Library{books: append([]Book(nil), books...)}
}

// Books returns a copy of the library's books.
func (l Library) Books() []Book {
	return append([]Book(nil), l.books...)
}

// Count returns the number of books.
func (l Library) Count() int {
	return len(l.books)
}

// HighlightCount returns the number of annotations across all books.
func (l Library) HighlightCount() int {
	total := 0
	for _, book := range l.books {
		total += book.Count()
	}
	return total
}
