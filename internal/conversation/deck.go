package conversation

import (
	"fmt"
	"math/rand"
	"path/filepath"
)

var styleFolders = map[string]string{
	"день": "day",
	"ночь": "night",
}

// FSDeck draws cards from a directory of numbered jpg files, one folder per
// style. Limit caps the highest card number that can be drawn; zero or
// negative means the whole deck.
type FSDeck struct {
	Root  string
	Limit int

	// Rand overrides the card picker in tests. Receives the number of
	// drawable cards, returns an index in [0, n).
	Rand func(n int) int
}

func (d *FSDeck) Draw(style string) (int, string, error) {
	folder, ok := styleFolders[style]
	if !ok {
		return 0, "", fmt.Errorf("unknown card style: %q", style)
	}

	dir := filepath.Join(d.Root, folder)
	cards, err := filepath.Glob(filepath.Join(dir, "*.jpg"))
	if err != nil {
		return 0, "", err
	}
	if len(cards) == 0 {
		return 0, "", fmt.Errorf("no cards in %s", dir)
	}

	max := len(cards)
	if d.Limit > 0 && d.Limit < max {
		max = d.Limit
	}

	pick := d.Rand
	if pick == nil {
		pick = rand.Intn
	}
	number := pick(max) + 1

	return number, filepath.Join(dir, fmt.Sprintf("%05d.jpg", number)), nil
}
