package presence

import (
	"context"
	"sync"
	"time"
)

// positionSaver раз в SaveInterval пишет клетку игрока в хранилище.
// Ошибки глотаются: позиция сохраняется по возможности.
type positionSaver struct {
	final chan Point
	done  chan struct{}
	once  sync.Once
}

func (h *Hub) startSaver(p *Principal) *positionSaver {
	s := &positionSaver{
		final: make(chan Point, 1),
		done:  make(chan struct{}),
	}
	go h.runSaver(p, s)
	return s
}

func (h *Hub) runSaver(p *Principal, s *positionSaver) {
	defer close(s.done)

	ticker := time.NewTicker(h.opts.SaveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.mu.Lock()
			if p.gone {
				h.mu.Unlock()
				continue
			}
			pos := Point{X: p.x, Y: p.y}
			h.mu.Unlock()
			h.savePosition(p, pos)
		case pos := <-s.final:
			h.savePosition(p, pos)
			return
		}
	}
}

func (h *Hub) savePosition(p *Principal, pos Point) {
	ctx, cancel := context.WithTimeout(context.Background(), h.opts.SaveTimeout)
	defer cancel()

	if err := h.positions.UpdatePosition(ctx, p.accountID, p.spaceID, pos.X, pos.Y); err != nil {
		h.log.Debug("position save failed", "conn_id", p.id, "space_id", p.spaceID, "err", err)
	}
}

// stop останавливает таймер и ставит финальную запись. Повторный вызов ничего не делает.
func (s *positionSaver) stop(final Point) {
	s.once.Do(func() {
		s.final <- final
	})
}

// wait ждёт финальной записи, но не дольше ctx.
func (s *positionSaver) wait(ctx context.Context) {
	select {
	case <-s.done:
	case <-ctx.Done():
	}
}
