package domain

// Space: карта, в которую заходят игроки. Width/Height в пикселях.
type Space struct {
	ID     string `db:"id"`
	Name   string `db:"name"`
	Width  int    `db:"width"`
	Height int    `db:"height"`
}

// GridSize возвращает число клеток по каждой оси для заданного размера тайла.
func (s Space) GridSize(tileSize int) (cols, rows int) {
	if tileSize <= 0 {
		tileSize = 1
	}
	cols, rows = s.Width/tileSize, s.Height/tileSize
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	return cols, rows
}
