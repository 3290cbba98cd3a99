package domain

import "time"

type Post struct {
	ID        string
	Title     string
	Content   string
	AuthorID  string
	ImageFile string // blob filename, "" for none
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PostView is a post joined with the author fields the pages show.
type PostView struct {
	Post
	Author Author
}

// Author is the public subset of a User.
type Author struct {
	ID        string
	Username  string
	FirstName string
	LastName  string
	ImageFile string
}

func (a Author) DisplayName() string {
	return TitleCase(a.FirstName + " " + a.LastName)
}

// AuthorOf projects u to its public fields.
func AuthorOf(u User) Author {
	return Author{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		ImageFile: u.ImageFile,
	}
}

// Page is one page of an ordered listing.
type Page[T any] struct {
	Items   []T
	Page    int // 1-based
	PerPage int
	Total   int
}

// Pages is the number of pages needed for Total items, at least 1.
func (p Page[T]) Pages() int {
	if p.PerPage <= 0 || p.Total == 0 {
		return 1
	}
	return (p.Total + p.PerPage - 1) / p.PerPage
}

func (p Page[T]) HasPrev() bool { return p.Page > 1 }
func (p Page[T]) HasNext() bool { return p.Page < p.Pages() }
func (p Page[T]) PrevNum() int  { return p.Page - 1 }
func (p Page[T]) NextNum() int  { return p.Page + 1 }

// PageNumbers lists the page links to render, with 0 marking a gap:
// the first and last page plus one either side of the current one,
// e.g. "1 … 6 7 8 … 20".
func (p Page[T]) PageNumbers() []int {
	const edge, window = 1, 1

	pages := p.Pages()
	out := make([]int, 0, pages)
	last := 0
	for n := 1; n <= pages; n++ {
		if n <= edge || n > pages-edge || (n >= p.Page-window && n <= p.Page+window) {
			if last != 0 && n != last+1 {
				out = append(out, 0)
			}
			out = append(out, n)
			last = n
		}
	}
	return out
}
