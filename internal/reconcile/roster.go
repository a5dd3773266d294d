package reconcile

import "go-clan-tracker/internal/coc"

// rosterSet 记录本轮名单中的 tag，以及本轮已成功写库的成员 ID。
type rosterSet struct {
	tags      map[string]struct{}
	persisted map[string]int64 // key: tag
}

func newRosterSet(roster []coc.RosterEntry) *rosterSet {
	s := &rosterSet{
		tags:      make(map[string]struct{}, len(roster)),
		persisted: make(map[string]int64, len(roster)),
	}
	for _, e := range roster {
		if e.Tag == "" {
			continue
		}
		s.tags[e.Tag] = struct{}{}
	}
	return s
}

func (s *rosterSet) has(tag string) bool {
	_, ok := s.tags[tag]
	return ok
}

func (s *rosterSet) persist(tag string, id int64) { s.persisted[tag] = id }

// id 仅对本轮已写库的成员返回 true。
func (s *rosterSet) id(tag string) (int64, bool) {
	id, ok := s.persisted[tag]
	return id, ok
}
