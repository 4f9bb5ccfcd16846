package net

import "sort"

// SessionStore tracks live sessions. Game loop only.
type SessionStore struct {
	byID map[uint64]*Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{byID: make(map[uint64]*Session)}
}

func (st *SessionStore) Add(s *Session) {
	st.byID[s.ID] = s
}

func (st *SessionStore) Get(id uint64) *Session {
	return st.byID[id]
}

// Remove drops the session and returns it, or nil if unknown.
func (st *SessionStore) Remove(id uint64) *Session {
	s, ok := st.byID[id]
	if !ok {
		return nil
	}
	delete(st.byID, id)
	return s
}

func (st *SessionStore) Count() int {
	return len(st.byID)
}

// ForEach visits sessions in ID order.
func (st *SessionStore) ForEach(fn func(*Session)) {
	ids := make([]uint64, 0, len(st.byID))
	for id := range st.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		fn(st.byID[id])
	}
}
