package enrollment

import "time"

// clampPercent bounds p to [0, 100].
func clampPercent(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

// advance applies a progress report. Progress only moves forward, reaching 100
// completes the enrollment once, and repeating 100 changes nothing.
func advance(now time.Time, percent int) Mutation {
	return func(e Enrollment) (Enrollment, bool, error) {
		if e.Status == StatusCancelled {
			return e, false, ErrCancelled
		}
		p := clampPercent(percent)
		if p < e.ProgressPercent {
			return e, false, ErrProgressDecrease
		}
		if p == e.ProgressPercent {
			return e, false, nil
		}
		e.ProgressPercent = p
		if p == 100 && e.Status != StatusCompleted {
			e.Status = StatusCompleted
			t := now
			e.CompletedAt = &t
		}
		e.UpdatedAt = now
		return e, true, nil
	}
}

// reset moves an enrollment back to the start. This is the only path by
// which progress decreases.
func reset(now time.Time) Mutation {
	return func(e Enrollment) (Enrollment, bool, error) {
		if e.Status == StatusActive && e.ProgressPercent == 0 {
			return e, false, nil
		}
		e.Status = StatusActive
		e.ProgressPercent = 0
		e.CompletedAt = nil
		e.CancelledAt = nil
		e.UpdatedAt = now
		return e, true, nil
	}
}

func cancel(now time.Time) Mutation {
	return func(e Enrollment) (Enrollment, bool, error) {
		switch e.Status {
		case StatusCancelled:
			return e, false, ErrCancelled
		case StatusCompleted:
			return e, false, ErrCompleted
		}
		e.Status = StatusCancelled
		t := now
		e.CancelledAt = &t
		e.UpdatedAt = now
		return e, true, nil
	}
}
