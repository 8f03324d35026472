package model

// Author represents a row in the `authors` table.
//
// Fields:
//  ID        - primary key identifier.
//  Name      - display name.
//  Biography - free text, may be empty.
//  BirthDate - optional date of birth.
type Author struct {
	ID        uint64 `db:"id" json:"id"`                 // authors.id
	Name      string `db:"name" json:"name"`             // authors.name
	Biography string `db:"biography" json:"biography"`   // authors.biography
	BirthDate *Date  `db:"birth_date" json:"birth_date"` // authors.birth_date (nullable)
}

// Genre represents a row in the `genres` table.  Books reference genres
// through the `book_genres` join table.
type Genre struct {
	ID   uint64 `db:"id" json:"id"`     // genres.id
	Name string `db:"name" json:"name"` // genres.name
}

// Book represents a row in the `books` table together with its genre ids.
// AvailableCopies is owned by the lending workflow: it only changes when a
// copy is issued, returned, or stock is adjusted through the same workflow.
//
// Fields:
//  ID              - primary key identifier.
//  Title           - book title.
//  Description     - free text, may be empty.
//  PublicationDate - optional publication date.
//  TotalCopies     - copies owned by the library.
//  AvailableCopies - copies currently on the shelf; never negative.
//  AuthorID        - reference to authors.id.
//  GenreIDs        - ids from book_genres, not a column.
type Book struct {
	ID              uint64   `db:"id" json:"id"`                             // books.id
	Title           string   `db:"title" json:"title"`                       // books.title
	Description     string   `db:"description" json:"description"`           // books.description
	PublicationDate *Date    `db:"publication_date" json:"publication_date"` // books.publication_date (nullable)
	TotalCopies     int      `db:"total_copies" json:"total_copies"`         // books.total_copies
	AvailableCopies int      `db:"available_copies" json:"available_copies"` // books.available_copies
	AuthorID        uint64   `db:"author_id" json:"author_id"`               // books.author_id
	GenreIDs        []uint64 `db:"-" json:"genre_ids"`
}
