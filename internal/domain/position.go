package domain

// Position: сохранённая клетка игрока в конкретном space.
type Position struct {
	AccountID string `db:"user_id"`
	SpaceID   string `db:"space_id"`
	X         int    `db:"x"`
	Y         int    `db:"y"`
}
