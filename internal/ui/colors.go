package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/samdwyer/espritarena/internal/gamedata"
)

// ParseHexColor converts "#RRGGBB" or "RRGGBB" to a tcell color.
func ParseHexColor(hex string) (tcell.Color, error) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return tcell.ColorDefault, fmt.Errorf("invalid hex color length: %s", hex)
	}
	rgb, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return tcell.ColorDefault, fmt.Errorf("invalid hex color %s: %w", hex, err)
	}
	return tcell.NewHexColor(int32(rgb)), nil
}

// elementStyle colors an esprit's name by its element.
func elementStyle(e gamedata.Element) tcell.Style {
	color, err := ParseHexColor(e.Color())
	if err != nil {
		color = tcell.ColorWhite
	}
	return tcell.StyleDefault.Foreground(color).Bold(true)
}
