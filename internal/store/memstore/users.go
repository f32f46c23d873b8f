package memstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/pagination"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/users"
)

var _ users.Store = (*Store)(nil)

func (s *Store) CreateUser(_ context.Context, u users.User) (users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return users.User{}, users.ErrEmailTaken
		}
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (users.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (users.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return users.User{}, users.ErrNotFound
}

func (s *Store) ListUsers(_ context.Context, f users.Filter, p pagination.Page) ([]users.User, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	needle := strings.ToLower(f.Search)
	var all []users.User
	for _, u := range s.users {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		if f.Active != nil && u.IsActive != *f.Active {
			continue
		}
		if needle != "" && !containsFold(needle, u.FullName, u.Email, u.Institution) {
			continue
		}
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})
	res := pagination.Slice(all, p)
	return res.Items, res.Total, nil
}

func (s *Store) UpdateUser(_ context.Context, u users.User) (users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return users.User{}, users.ErrNotFound
	}
	for id, existing := range s.users {
		if id != u.ID && strings.EqualFold(existing.Email, u.Email) {
			return users.User{}, users.ErrEmailTaken
		}
	}
	s.users[u.ID] = u
	return u, nil
}

// DeleteUser removes the user with its per-user rows and unassigns owned courses.
func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return users.ErrNotFound
	}
	delete(s.users, id)
	for cid, c := range s.courses {
		if c.InstructorID != nil && *c.InstructorID == id {
			c.InstructorID = nil
			s.courses[cid] = c
		}
	}
	for eid, e := range s.enrollments {
		if e.StudentID == id {
			delete(s.enrollments, eid)
		}
	}
	for cid, c := range s.certificates {
		if c.StudentID == id {
			delete(s.certificates, cid)
		}
	}
	for sid, sub := range s.submissions {
		if sub.StudentID == id {
			delete(s.submissions, sid)
		}
	}
	for aid, a := range s.attempts {
		if a.StudentID == id {
			delete(s.attempts, aid)
		}
	}
	for pid, p := range s.payments {
		if p.StudentID == id {
			delete(s.payments, pid)
		}
	}
	return nil
}

func (s *Store) TouchUserLogin(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return users.ErrNotFound
	}
	t := at
	u.LastLoginAt = &t
	s.users[id] = u
	return nil
}

func containsFold(needle string, haystacks ...string) bool {
	for _, h := range haystacks {
		if strings.Contains(strings.ToLower(h), needle) {
			return true
		}
	}
	return false
}
