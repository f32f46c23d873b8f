package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/catalog"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/pagination"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/payment"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/users"
)

var _ payment.Store = (*Store)(nil)

// pendingPaymentIndex enforces one pending payment per (student, course).
const pendingPaymentIndex = "payments_one_pending_idx"

const paymentSelect = `
	select p.id, p.student_id, p.course_id, coalesce(c.title, ''), p.amount_cents, p.status, p.reference,
	       p.created_at, p.updated_at, p.settled_at
	from payments p
	left join courses c on c.id = p.course_id`

func scanPayment(row scanner) (payment.Payment, error) {
	var p payment.Payment
	err := row.Scan(&p.ID, &p.StudentID, &p.CourseID, &p.CourseTitle, &p.Amount, &p.Status, &p.Reference,
		&p.CreatedAt, &p.UpdatedAt, &p.SettledAt)
	if errors.Is(err, sql.ErrNoRows) {
		return payment.Payment{}, payment.ErrNotFound
	}
	return p, err
}

func (s *Store) CreatePayment(ctx context.Context, p payment.Payment) (payment.Payment, error) {
	_, err := s.db.ExecContext(ctx, `
		insert into payments (id, student_id, course_id, amount_cents, status, reference, created_at, updated_at, settled_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, p.ID, p.StudentID, p.CourseID, int64(p.Amount), string(p.Status), p.Reference, p.CreatedAt, p.UpdatedAt, p.SettledAt)
	switch {
	case violates(err, pgErrUniqueViolation, pendingPaymentIndex):
		return payment.Payment{}, payment.ErrPendingExists
	case violates(err, pgErrForeignKeyViolation, "payments_student_id_fkey"):
		return payment.Payment{}, users.ErrNotFound
	case violates(err, pgErrForeignKeyViolation, "payments_course_id_fkey"):
		return payment.Payment{}, catalog.ErrNotFound
	case err != nil:
		return payment.Payment{}, err
	}
	return s.GetPayment(ctx, p.ID)
}

func (s *Store) GetPayment(ctx context.Context, id string) (payment.Payment, error) {
	return scanPayment(s.db.QueryRowContext(ctx, paymentSelect+` where p.id = $1`, id))
}

func (s *Store) ListPayments(ctx context.Context, f payment.Filter, page pagination.Page) ([]payment.Payment, int, error) {
	var w where
	if f.StudentID != "" {
		w.add("p.student_id = $%d", f.StudentID)
	}
	if f.CourseID != "" {
		w.add("p.course_id = $%d", f.CourseID)
	}
	if f.Status != "" {
		w.add("p.status = $%d", string(f.Status))
	}
	total, err := s.count(ctx, "payments p", &w)
	if err != nil {
		return nil, 0, err
	}
	limit, args := w.page(page)
	out, err := listOf(ctx, s.db, scanPayment, paymentSelect+w.String()+` order by p.id desc`+limit, args...)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// SettlePayment locks the payment and moves it out of pending.
func (s *Store) SettlePayment(ctx context.Context, id string, status payment.Status, reference string, at time.Time) (payment.Payment, payment.Payment, error) {
	var before, after payment.Payment
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		before, err = scanPayment(tx.QueryRowContext(ctx, paymentSelect+` where p.id = $1 for update of p`, id))
		if err != nil {
			return err
		}
		if before.Status != payment.StatusPending {
			return payment.ErrNotPending
		}
		if _, err := tx.ExecContext(ctx, `
			update payments set status = $2, reference = $3, settled_at = $4, updated_at = $4
			where id = $1
		`, id, string(status), reference, at); err != nil {
			return err
		}
		after = before
		after.Status = status
		after.Reference = reference
		settled := at
		after.SettledAt = &settled
		after.UpdatedAt = at
		return nil
	})
	if err != nil {
		return payment.Payment{}, payment.Payment{}, err
	}
	return before, after, nil
}

func (s *Store) HasPaidPayment(ctx context.Context, studentID, courseID string) (bool, error) {
	var ok bool
	err := s.db.QueryRowContext(ctx, `
		select exists (select 1 from payments where student_id = $1 and course_id = $2 and status = 'paid')
	`, studentID, courseID).Scan(&ok)
	return ok, err
}
