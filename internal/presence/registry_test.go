package presence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(id, account string, x, y int) (*Principal, *recorder) {
	rec := &recorder{}
	p := newPrincipal(id, rec)
	p.accountID = account
	p.x, p.y = x, y
	p.joined = true
	return p, rec
}

func TestRoomRegistry_AddRemove(t *testing.T) {
	r := NewRoomRegistry()
	a, _ := at("a", "acc-a", 0, 0)
	b, _ := at("b", "acc-b", 0, 0)

	r.Add("s1", a)
	r.Add("s1", b)
	assert.Equal(t, 2, r.Count("s1"))
	assert.Same(t, b, r.FindByAccount("acc-b", "s1"))
	assert.Same(t, a, r.FindByConnection("a", "s1"))
	assert.Nil(t, r.FindByConnection("a", "s2"))

	r.Remove(a, "s1")
	r.Remove(b, "s1")
	assert.Zero(t, r.Count("s1"))
	assert.Empty(t, r.rooms, "empty room should be deleted")

	// удаление из несуществующей комнаты: no-op
	r.Remove(a, "missing")
}

func TestRoomRegistry_Broadcast(t *testing.T) {
	r := NewRoomRegistry()
	a, recA := at("a", "acc-a", 0, 0)
	b, recB := at("b", "acc-b", 0, 0)
	r.Add("s1", a)
	r.Add("s1", b)

	r.Broadcast(Message{Type: TypeUserLeft}, a, "s1")
	assert.Zero(t, recA.count(TypeUserLeft))
	assert.Equal(t, 1, recB.count(TypeUserLeft))

	r.Broadcast(Message{Type: TypeUserLeft}, nil, "nowhere")
}

func TestRoomRegistry_NeighborsWithin(t *testing.T) {
	r := NewRoomRegistry()
	center, _ := at("c", "acc-c", 5, 5)
	r.Add("s1", center)

	cells := map[string][2]int{
		"n":    {5, 4},
		"ne":   {6, 4},
		"e":    {6, 5},
		"far":  {7, 5},
		"farY": {5, 3},
	}
	for id, xy := range cells {
		p, _ := at(id, "acc-"+id, xy[0], xy[1])
		r.Add("s1", p)
	}

	var ids []string
	for _, p := range r.NeighborsWithin(center, "s1", 1) {
		ids = append(ids, p.id)
	}
	assert.Equal(t, []string{"e", "n", "ne"}, ids)
}

func TestRoomRegistry_NeighborsSymmetric(t *testing.T) {
	r := NewRoomRegistry()
	var all []*Principal
	for i, xy := range [][2]int{{0, 0}, {1, 1}, {2, 2}, {2, 0}, {4, 4}, {3, 3}} {
		p, _ := at(string(rune('a'+i)), "", xy[0], xy[1])
		r.Add("s1", p)
		all = append(all, p)
	}

	contains := func(list []*Principal, q *Principal) bool {
		for _, p := range list {
			if p == q {
				return true
			}
		}
		return false
	}

	for _, p := range all {
		for _, q := range all {
			if p == q {
				continue
			}
			pq := contains(r.NeighborsWithin(p, "s1", 1), q)
			qp := contains(r.NeighborsWithin(q, "s1", 1), p)
			require.Equal(t, pq, qp, "%s/%s", p.id, q.id)
			assert.Equal(t, abs(p.x-q.x) <= 1 && abs(p.y-q.y) <= 1, pq, "%s/%s", p.id, q.id)
		}
	}
}

func TestSessionRegistry_RemoveBelowTwo(t *testing.T) {
	r := NewSessionRegistry()
	a, _ := at("a", "", 0, 0)
	b, _ := at("b", "", 0, 0)
	c, _ := at("c", "", 0, 0)
	r.Add("x", a)
	r.Add("x", b)
	r.Add("x", c)

	rest := r.Remove(c, "x")
	assert.Len(t, rest, 2)
	assert.Equal(t, 1, r.Len())

	rest = r.Remove(b, "x")
	require.Len(t, rest, 1)
	assert.Same(t, a, rest[0])
	assert.Zero(t, r.Len(), "singleton session must not persist")
	assert.Nil(t, r.FindByConnection("a", "x"))

	assert.Nil(t, r.Remove(a, "x"))
}

func TestSessionRegistry_Delete(t *testing.T) {
	r := NewSessionRegistry()
	a, recA := at("a", "", 0, 0)
	b, recB := at("b", "", 0, 0)
	r.Add("x", a)
	r.Add("x", b)

	r.Broadcast(Message{Type: TypeInboxMessage}, a, "x")
	assert.Zero(t, recA.count(TypeInboxMessage))
	assert.Equal(t, 1, recB.count(TypeInboxMessage))

	members := r.Delete("x")
	assert.Len(t, members, 2)
	assert.Zero(t, r.Count("x"))
}
