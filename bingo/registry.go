package bingo

import (
	"errors"
	"strconv"
	"strings"
)

var ErrInvalidName = errors.New("invalid name")

// Registry maps live connections to display names. It is the lobby roster.
// It is owned by the hub goroutine and is not safe for concurrent use.
type Registry struct {
	names map[string]string // connID -> display name
	order []string          // connIDs in join order
}

func NewRegistry() *Registry {
	return &Registry{
		names: make(map[string]string),
	}
}

// Resolve registers connID under requested and returns the name actually
// used. Names are kept exactly as sent; whitespace only rejects blank names. A non-resuming join whose name is held by another connection gets the
// lowest free "name#N" suffix (N >= 2) and renamed is true. A resuming join
// takes the name back verbatim, evicting whichever connection held it.
func (r *Registry) Resolve(connID, requested string, resume bool) (name string, renamed bool, err error) {
	if strings.TrimSpace(requested) == "" {
		return "", false, ErrInvalidName
	}
	name = requested

	if resume {
		for _, other := range r.holders(name, connID) {
			r.Remove(other)
		}
	} else if len(r.holders(name, connID)) > 0 {
		name = r.freeSuffix(name, connID)
		renamed = true
	}

	if _, ok := r.names[connID]; !ok {
		r.order = append(r.order, connID)
	}
	r.names[connID] = name

	return name, renamed, nil
}

// holders returns every connection other than self registered as name.
func (r *Registry) holders(name, self string) []string {
	var ids []string
	for _, id := range r.order {
		if id != self && r.names[id] == name {
			ids = append(ids, id)
		}
	}

	return ids
}

func (r *Registry) freeSuffix(base, self string) string {
	for n := 2; ; n++ {
		candidate := base + "#" + strconv.Itoa(n)
		if len(r.holders(candidate, self)) == 0 {
			return candidate
		}
	}
}

func (r *Registry) Remove(connID string) {
	if _, ok := r.names[connID]; !ok {
		return
	}

	delete(r.names, connID)
	for i, id := range r.order {
		if id == connID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *Registry) Name(connID string) (string, bool) {
	name, ok := r.names[connID]
	return name, ok
}

// Roster lists display names in join order.
func (r *Registry) Roster() []string {
	roster := make([]string, 0, len(r.order))
	for _, id := range r.order {
		roster = append(roster, r.names[id])
	}

	return roster
}

// Each visits registered connections in join order.
func (r *Registry) Each(fn func(connID, name string)) {
	for _, id := range r.order {
		fn(id, r.names[id])
	}
}

func (r *Registry) Len() int {
	return len(r.order)
}
