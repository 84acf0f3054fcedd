/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Seednode/taboo/games/taboo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCards_Default(t *testing.T) {
	cards, err := loadCards("")
	require.NoError(t, err)

	assert.NotEmpty(t, cards)
	seen := map[string]bool{}
	for _, c := range cards {
		assert.NotEmpty(t, c.Word)
		assert.NotEmpty(t, c.Taboo, "card %q has no taboo words", c.Word)
		assert.False(t, seen[c.Word], "duplicate card %q", c.Word)
		seen[c.Word] = true
	}
}

func TestLoadCards_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`cards:
  - word: "  Kettle "
    taboo: [Tea, " Boil ", "", Water]
  - word: Anchor
    taboo: []
`), 0o644))

	cards, err := loadCards(path)
	require.NoError(t, err)

	assert.Equal(t, []taboo.Card{
		{Word: "Kettle", Taboo: []string{"Tea", "Boil", "Water"}},
		{Word: "Anchor", Taboo: []string{}},
	}, cards)
}

func TestLoadCards_MissingFile(t *testing.T) {
	_, err := loadCards(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestParseCards_Errors(t *testing.T) {
	_, err := parseCards([]byte("cards: []\n"))
	assert.ErrorIs(t, err, taboo.ErrDeckExhausted)

	_, err = parseCards([]byte(""))
	assert.ErrorIs(t, err, taboo.ErrDeckExhausted)

	_, err = parseCards([]byte("cards:\n  - taboo: [a]\n"))
	assert.ErrorContains(t, err, "card 1 has no word")

	_, err = parseCards([]byte("cards: {word: [unterminated\n"))
	assert.ErrorContains(t, err, "parsing card pool")
}
