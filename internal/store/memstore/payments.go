package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/catalog"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/pagination"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/payment"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/users"
)

var _ payment.Store = (*Store)(nil)

func (s *Store) CreatePayment(_ context.Context, p payment.Payment) (payment.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[p.StudentID]; !ok {
		return payment.Payment{}, users.ErrNotFound
	}
	if _, ok := s.courses[p.CourseID]; !ok {
		return payment.Payment{}, catalog.ErrNotFound
	}
	for _, existing := range s.payments {
		if existing.StudentID == p.StudentID && existing.CourseID == p.CourseID && existing.Status == payment.StatusPending {
			return payment.Payment{}, payment.ErrPendingExists
		}
	}
	s.payments[p.ID] = p
	return s.paymentView(p), nil
}

func (s *Store) paymentView(p payment.Payment) payment.Payment {
	if c, ok := s.courses[p.CourseID]; ok {
		p.CourseTitle = c.Title
	}
	p.SettledAt = ptrTime(p.SettledAt)
	return p
}

func (s *Store) GetPayment(_ context.Context, id string) (payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payments[id]
	if !ok {
		return payment.Payment{}, payment.ErrNotFound
	}
	return s.paymentView(p), nil
}

func (s *Store) ListPayments(_ context.Context, f payment.Filter, pg pagination.Page) ([]payment.Payment, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []payment.Payment
	for _, p := range s.payments {
		switch {
		case f.StudentID != "" && p.StudentID != f.StudentID:
			continue
		case f.CourseID != "" && p.CourseID != f.CourseID:
			continue
		case f.Status != "" && p.Status != f.Status:
			continue
		}
		all = append(all, s.paymentView(p))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	res := pagination.Slice(all, pg)
	return res.Items, res.Total, nil
}

func (s *Store) SettlePayment(_ context.Context, id string, status payment.Status, reference string, at time.Time) (payment.Payment, payment.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return payment.Payment{}, payment.Payment{}, payment.ErrNotFound
	}
	if p.Status != payment.StatusPending {
		return payment.Payment{}, payment.Payment{}, payment.ErrNotPending
	}
	before := s.paymentView(p)
	p.Status = status
	p.Reference = reference
	settled := at
	p.SettledAt = &settled
	p.UpdatedAt = at
	s.payments[id] = p
	return before, s.paymentView(p), nil
}

func (s *Store) HasPaidPayment(_ context.Context, studentID, courseID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.payments {
		if p.StudentID == studentID && p.CourseID == courseID && p.Status == payment.StatusPaid {
			return true, nil
		}
	}
	return false, nil
}
