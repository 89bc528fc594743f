package booking

import (
	"strings"

	"goodfit/internal/model"
)

// Criteria narrows a gym list. Zero fields do not narrow.
type Criteria struct {
	City       string
	Categories []string
	SearchText string
}

// Filter applies city equality, then any-of category match, then a
// case-insensitive substring search over name, address, description and city.
func Filter(gyms []model.Gym, c Criteria) []model.Gym {
	out := gyms

	if c.City != "" {
		out = keep(out, func(g *model.Gym) bool { return g.City == c.City })
	}

	if len(c.Categories) > 0 {
		wanted := make(map[string]struct{}, len(c.Categories))
		for _, cat := range c.Categories {
			wanted[cat] = struct{}{}
		}
		out = keep(out, func(g *model.Gym) bool {
			for _, cat := range g.Categories {
				if _, ok := wanted[cat]; ok {
					return true
				}
			}
			return false
		})
	}

	if q := strings.ToLower(strings.TrimSpace(c.SearchText)); q != "" {
		out = keep(out, func(g *model.Gym) bool {
			for _, field := range []string{g.Name, g.Address, g.Description, g.City} {
				if strings.Contains(strings.ToLower(field), q) {
					return true
				}
			}
			return false
		})
	}

	return out
}

func keep(gyms []model.Gym, pred func(*model.Gym) bool) []model.Gym {
	out := make([]model.Gym, 0, len(gyms))
	for i := range gyms {
		if pred(&gyms[i]) {
			out = append(out, gyms[i])
		}
	}
	return out
}
