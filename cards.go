/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/Seednode/taboo/games/taboo"
	"go.yaml.in/yaml/v3"
)

//go:embed cards.yaml
var defaultCards []byte

type cardFile struct {
	Cards []taboo.Card `yaml:"cards"`
}

// loadCards reads the card pool from path, or the built-in pool when path
// is empty. An empty pool is a startup error.
func loadCards(path string) ([]taboo.Card, error) {
	data := defaultCards

	if path != "" {
		var err error

		data, err = os.ReadFile(path)
		if err != nil {
			return nil, err
		}
	}

	return parseCards(data)
}

func parseCards(data []byte) ([]taboo.Card, error) {
	var f cardFile

	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing card pool: %w", err)
	}

	cards := make([]taboo.Card, 0, len(f.Cards))
	for i, c := range f.Cards {
		c.Word = strings.TrimSpace(c.Word)
		if c.Word == "" {
			return nil, fmt.Errorf("card %d has no word", i+1)
		}

		taboos := make([]string, 0, len(c.Taboo))
		for _, t := range c.Taboo {
			if t = strings.TrimSpace(t); t != "" {
				taboos = append(taboos, t)
			}
		}
		c.Taboo = taboos

		cards = append(cards, c)
	}

	if len(cards) == 0 {
		return nil, taboo.ErrDeckExhausted
	}

	return cards, nil
}
