package httpapi

import (
	"net/http"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/apperr"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/assessment"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/enrollment"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/payment"
)

type courseRequest struct {
	CourseID string `json:"course_id"`
}

type progressRequest struct {
	ProgressPercent *int `json:"progress_percent"`
}

type settleRequest struct {
	Reference string `json:"reference"`
}

var errProgressRequired = apperr.Field("progress_percent", "progress_percent is required")

func (a *API) handleEnrollments(w http.ResponseWriter, r *http.Request, rest []string) {
	actor := actorOf(r)
	switch {
	case len(rest) == 0:
		switch r.Method {
		case http.MethodGet:
			a.listEnrollments(w, r)
		case http.MethodPost:
			var in courseRequest
			if err := decodeJSON(w, r, &in); err != nil {
				writeError(w, r, err)
				return
			}
			e, err := a.svc.Enrollments.Enroll(r.Context(), actor, in.CourseID)
			if err != nil {
				writeError(w, r, err)
				return
			}
			respondMessage(w, r, http.StatusCreated, "enrolled", e)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
		}
	case len(rest) == 2 && rest[0] == "check":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		res, err := a.svc.Enrollments.Check(r.Context(), actor, rest[1])
		if err != nil {
			writeError(w, r, err)
			return
		}
		respond(w, r, http.StatusOK, res)
	case len(rest) == 1:
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		e, err := a.svc.Enrollments.Get(r.Context(), actor, rest[0])
		if err != nil {
			writeError(w, r, err)
			return
		}
		respond(w, r, http.StatusOK, e)
	case len(rest) == 2:
		a.enrollmentAction(w, r, rest[0], rest[1])
	default:
		notFound(w, r)
	}
}

func (a *API) listEnrollments(w http.ResponseWriter, r *http.Request) {
	page, err := queryPage(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	f := enrollment.Filter{
		StudentID: q.Get("student_id"),
		CourseID:  q.Get("course_id"),
		Status:    enrollment.Status(q.Get("status")),
	}
	res, err := a.svc.Enrollments.List(r.Context(), actorOf(r), f, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, res)
}

func (a *API) enrollmentAction(w http.ResponseWriter, r *http.Request, id, action string) {
	actor := actorOf(r)
	var (
		e   enrollment.Enrollment
		err error
	)
	switch action {
	case "progress":
		if r.Method != http.MethodPut {
			methodNotAllowed(w, r, http.MethodPut)
			return
		}
		var in progressRequest
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		if in.ProgressPercent == nil {
			writeError(w, r, errProgressRequired)
			return
		}
		e, err = a.svc.Enrollments.RecordProgress(r.Context(), actor, id, *in.ProgressPercent)
	case "complete", "cancel", "reset":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		switch action {
		case "complete":
			e, err = a.svc.Enrollments.Complete(r.Context(), actor, id)
		case "cancel":
			e, err = a.svc.Enrollments.Cancel(r.Context(), actor, id)
		default:
			e, err = a.svc.Enrollments.Reset(r.Context(), actor, id)
		}
	default:
		notFound(w, r)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, e)
}

func (a *API) handleCertificates(w http.ResponseWriter, r *http.Request, rest []string) {
	if len(rest) != 0 {
		notFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	certs, err := a.svc.Enrollments.Certificates(r.Context(), actorOf(r), r.URL.Query().Get("student_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, certs)
}

func (a *API) handlePayments(w http.ResponseWriter, r *http.Request, rest []string) {
	actor := actorOf(r)
	switch len(rest) {
	case 0:
		switch r.Method {
		case http.MethodGet:
			a.listPayments(w, r)
		case http.MethodPost:
			var in courseRequest
			if err := decodeJSON(w, r, &in); err != nil {
				writeError(w, r, err)
				return
			}
			p, err := a.svc.Payments.Create(r.Context(), actor, in.CourseID)
			if err != nil {
				writeError(w, r, err)
				return
			}
			respondMessage(w, r, http.StatusCreated, "payment created", p)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
		}
	case 1:
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		p, err := a.svc.Payments.Get(r.Context(), actor, rest[0])
		if err != nil {
			writeError(w, r, err)
			return
		}
		respond(w, r, http.StatusOK, p)
	case 2:
		if rest[1] != "paid" && rest[1] != "failed" {
			notFound(w, r)
			return
		}
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		var in settleRequest
		if err := decodeOptionalJSON(w, r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		settle := a.svc.Payments.MarkPaid
		if rest[1] == "failed" {
			settle = a.svc.Payments.MarkFailed
		}
		p, err := settle(r.Context(), actor, rest[0], in.Reference)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respond(w, r, http.StatusOK, p)
	default:
		notFound(w, r)
	}
}

func (a *API) listPayments(w http.ResponseWriter, r *http.Request) {
	page, err := queryPage(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	f := payment.Filter{
		StudentID: q.Get("student_id"),
		CourseID:  q.Get("course_id"),
		Status:    payment.Status(q.Get("status")),
	}
	res, err := a.svc.Payments.List(r.Context(), actorOf(r), f, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, res)
}

func (a *API) handleSubmissions(w http.ResponseWriter, r *http.Request, rest []string) {
	switch {
	case len(rest) == 0:
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		q := r.URL.Query()
		a.listSubmissions(w, r, assessment.SubmissionFilter{
			AssignmentID: q.Get("assignment_id"),
			CourseID:     q.Get("course_id"),
			StudentID:    q.Get("student_id"),
			Status:       assessment.SubmissionStatus(q.Get("status")),
		})
	case len(rest) == 2 && rest[1] == "grade":
		if r.Method != http.MethodPut {
			methodNotAllowed(w, r, http.MethodPut)
			return
		}
		var in assessment.GradeInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		s, err := a.svc.Assessments.Grade(r.Context(), actorOf(r), rest[0], in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respondMessage(w, r, http.StatusOK, "submission graded", s)
	default:
		notFound(w, r)
	}
}

func (a *API) listSubmissions(w http.ResponseWriter, r *http.Request, f assessment.SubmissionFilter) {
	page, err := queryPage(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := a.svc.Assessments.ListSubmissions(r.Context(), actorOf(r), f, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, res)
}

func (a *API) assignmentSubmissions(w http.ResponseWriter, r *http.Request, assignmentID string) {
	switch r.Method {
	case http.MethodGet:
		a.listSubmissions(w, r, assessment.SubmissionFilter{AssignmentID: assignmentID})
	case http.MethodPost:
		var in assessment.SubmitInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		s, err := a.svc.Assessments.Submit(r.Context(), actorOf(r), assignmentID, in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respondMessage(w, r, http.StatusCreated, "submission received", s)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) quizAttempts(w http.ResponseWriter, r *http.Request, quizID string) {
	switch r.Method {
	case http.MethodGet:
		page, err := queryPage(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		res, err := a.svc.Assessments.ListAttempts(r.Context(), actorOf(r), quizID, page)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respond(w, r, http.StatusOK, res)
	case http.MethodPost:
		var in assessment.AttemptInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		at, err := a.svc.Assessments.Attempt(r.Context(), actorOf(r), quizID, in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respond(w, r, http.StatusCreated, at)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}
