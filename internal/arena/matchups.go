package arena

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/samdwyer/espritarena/internal/game"
)

// ErrNoMatchups is returned for a matchup file that lists nothing to fight.
var ErrNoMatchups = errors.New("no matchups")

// MatchupFile is the on-disk list of battles to run.
//
//	matchups:
//	  - id: opening-night
//	    a:
//	      name: Aurora
//	      esprits:
//	        - {identity: Ignivar, element: inferno, tier: 6, attack: 120, defense: 40, max_hp: 900}
//	        ...
//	      stages: [[Ignivar, Sylvaris, Voltaris], [Maremor, Noctyra, Solenne]]
//	    b: ...
type MatchupFile struct {
	Matchups []game.Matchup `yaml:"matchups"`
}

// LoadMatchups reads a YAML (or JSON) matchup file. Matchups without an id
// are numbered from 1.
func LoadMatchups(path string) ([]game.Matchup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading matchups %s: %w", path, err)
	}
	return ParseMatchups(data)
}

// ParseMatchups decodes a matchup document.
func ParseMatchups(data []byte) ([]game.Matchup, error) {
	var f MatchupFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing matchups: %w", err)
	}
	if len(f.Matchups) == 0 {
		return nil, ErrNoMatchups
	}
	for i := range f.Matchups {
		if f.Matchups[i].ID == "" {
			f.Matchups[i].ID = fmt.Sprintf("matchup-%d", i+1)
		}
	}
	return f.Matchups, nil
}
