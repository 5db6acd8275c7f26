package offline

import "github.com/matthieubouillot/cubage-app-fbbois-sub000/pkg/session"

// nextLocalNumero estimates a provisional numero for an offline create: one
// past the highest numero already cached for the current user in the scope,
// or the user's configured range start when none is. This is a display
// estimate only; the server-assigned numero replaces it at replay, and it
// is never sent upstream as authoritative.
func (c *Coordinator) nextLocalNumero(chantierID, qualiteID string, user *session.User) (int, error) {
	rows, _, err := c.loadScope(chantierID, qualiteID)
	if err != nil {
		return 0, err
	}

	max := -1
	for _, row := range rows {
		if row.RecordedBy.ID != user.ID {
			continue
		}
		if row.Numero > max {
			max = row.Numero
		}
	}
	if max < 0 {
		return user.NumStart, nil
	}
	return max + 1, nil
}
