package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPagePages(t *testing.T) {
	require.Equal(t, 1, Page[int]{PerPage: 5}.Pages())
	require.Equal(t, 1, Page[int]{PerPage: 5, Total: 5}.Pages())
	require.Equal(t, 2, Page[int]{PerPage: 5, Total: 6}.Pages())
}

func TestPageNumbers(t *testing.T) {
	tests := []struct {
		page, total int
		want        []int
	}{
		{1, 0, []int{1}},
		{1, 15, []int{1, 2, 3}},
		{1, 100, []int{1, 2, 0, 20}},
		{7, 100, []int{1, 0, 6, 7, 8, 0, 20}},
		{20, 100, []int{1, 0, 19, 20}},
		{2, 100, []int{1, 2, 3, 0, 20}},
	}
	for _, tt := range tests {
		p := Page[int]{Page: tt.page, PerPage: 5, Total: tt.total}
		require.Equal(t, tt.want, p.PageNumbers(), "page %d of %d items", tt.page, tt.total)
	}
}

func TestDisplayName(t *testing.T) {
	u := User{FirstName: "ada", LastName: "lovelace"}
	require.Equal(t, "Ada Lovelace", u.DisplayName())
	require.Equal(t, "Ada Lovelace", AuthorOf(u).DisplayName())
}
