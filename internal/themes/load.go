package themes

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
)

type codebookFile struct {
	Themes []struct {
		Name     string   `json:"name"`
		Keywords []string `json:"keywords"`
	} `json:"themes"`
}

// LoadCodebook reads a codebook override from a JSON file. The file lists
// themes in report order, each with its keyword list.
func LoadCodebook(path string) (*Codebook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "themes: read codebook")
	}

	var doc codebookFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "themes: parse codebook")
	}
	if len(doc.Themes) == 0 {
		return nil, eris.Errorf("themes: codebook %s defines no themes", path)
	}

	order := make([]Theme, 0, len(doc.Themes))
	keywords := make(map[Theme][]string, len(doc.Themes))
	for _, t := range doc.Themes {
		if t.Name == "" {
			return nil, eris.Errorf("themes: codebook %s has a theme without a name", path)
		}
		if len(t.Keywords) == 0 {
			return nil, eris.Errorf("themes: codebook theme %q has no keywords", t.Name)
		}
		theme := Theme(t.Name)
		if _, dup := keywords[theme]; dup {
			return nil, eris.Errorf("themes: codebook theme %q listed twice", t.Name)
		}
		order = append(order, theme)
		keywords[theme] = t.Keywords
	}
	return NewCodebook(order, keywords), nil
}
