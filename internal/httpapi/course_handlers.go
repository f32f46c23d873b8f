package httpapi

import (
	"context"
	"net/http"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/auth"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/catalog"
)

type assignInstructorRequest struct {
	InstructorID string `json:"instructor_id"`
}

func (a *API) handleCourses(w http.ResponseWriter, r *http.Request, rest []string) {
	switch len(rest) {
	case 0:
		switch r.Method {
		case http.MethodGet:
			a.listCourses(w, r)
		case http.MethodPost:
			a.createCourse(w, r)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
		}
	case 1:
		serveItem(w, r, rest[0], "course deleted", a.svc.Catalog.Get, a.svc.Catalog.Update, a.svc.Catalog.Delete)
	case 2:
		id := rest[0]
		switch rest[1] {
		case "instructor":
			a.assignInstructor(w, r, id)
		case "modules":
			serveChildren(w, r, id, a.svc.Content.ListModules, a.svc.Content.CreateModule)
		case "assignments":
			serveChildren(w, r, id, a.svc.Content.ListAssignments, a.svc.Content.CreateAssignment)
		case "quizzes":
			serveChildren(w, r, id, a.svc.Content.ListQuizzes, a.svc.Content.CreateQuiz)
		case "forums":
			serveChildren(w, r, id, a.svc.Content.ListForums, a.svc.Content.CreateForum)
		default:
			notFound(w, r)
		}
	default:
		notFound(w, r)
	}
}

func (a *API) listCourses(w http.ResponseWriter, r *http.Request) {
	page, err := queryPage(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	sort, err := catalog.ParseSort(q.Get("sort"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	f := catalog.Filter{
		Status:       catalog.Status(q.Get("status")),
		Category:     q.Get("category"),
		Level:        catalog.Level(q.Get("level")),
		Search:       q.Get("search"),
		InstructorID: q.Get("instructor_id"),
		Sort:         sort,
	}
	res, err := a.svc.Catalog.List(r.Context(), actorOf(r), f, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, res)
}

func (a *API) createCourse(w http.ResponseWriter, r *http.Request) {
	var in catalog.CreateInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := a.svc.Catalog.Create(r.Context(), actorOf(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondMessage(w, r, http.StatusCreated, "course created", c)
}

func (a *API) assignInstructor(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	var in assignInstructorRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := a.svc.Catalog.AssignInstructor(r.Context(), actorOf(r), id, in.InstructorID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondMessage(w, r, http.StatusOK, "instructor assigned", c)
}

func (a *API) handleModules(w http.ResponseWriter, r *http.Request, rest []string) {
	switch {
	case len(rest) == 1:
		serveItem(w, r, rest[0], "module deleted", a.svc.Content.GetModule, a.svc.Content.UpdateModule, a.svc.Content.DeleteModule)
	case len(rest) == 2 && rest[1] == "lessons":
		serveChildren(w, r, rest[0], a.svc.Content.ListLessons, a.svc.Content.CreateLesson)
	default:
		notFound(w, r)
	}
}

func (a *API) handleLessons(w http.ResponseWriter, r *http.Request, rest []string) {
	if len(rest) != 1 {
		notFound(w, r)
		return
	}
	serveItem(w, r, rest[0], "lesson deleted", a.svc.Content.GetLesson, a.svc.Content.UpdateLesson, a.svc.Content.DeleteLesson)
}

func (a *API) handleAssignments(w http.ResponseWriter, r *http.Request, rest []string) {
	switch {
	case len(rest) == 1:
		serveItem(w, r, rest[0], "assignment deleted", a.svc.Content.GetAssignment, a.svc.Content.UpdateAssignment, a.svc.Content.DeleteAssignment)
	case len(rest) == 2 && rest[1] == "submissions":
		a.assignmentSubmissions(w, r, rest[0])
	default:
		notFound(w, r)
	}
}

func (a *API) handleQuizzes(w http.ResponseWriter, r *http.Request, rest []string) {
	switch {
	case len(rest) == 1:
		serveItem(w, r, rest[0], "quiz deleted", a.svc.Content.GetQuiz, a.svc.Content.UpdateQuiz, a.svc.Content.DeleteQuiz)
	case len(rest) == 2 && rest[1] == "attempts":
		a.quizAttempts(w, r, rest[0])
	default:
		notFound(w, r)
	}
}

func (a *API) handleForums(w http.ResponseWriter, r *http.Request, rest []string) {
	if len(rest) != 1 {
		notFound(w, r)
		return
	}
	serveItem(w, r, rest[0], "forum deleted", a.svc.Content.GetForum, a.svc.Content.UpdateForum, a.svc.Content.DeleteForum)
}

// serveItem handles GET, PUT and DELETE on a single resource of type T
// patched with P.
func serveItem[T, P any](
	w http.ResponseWriter, r *http.Request, id, deleted string,
	get func(context.Context, auth.Actor, string) (T, error),
	update func(context.Context, auth.Actor, string, P) (T, error),
	del func(context.Context, auth.Actor, string) error,
) {
	actor := actorOf(r)
	switch r.Method {
	case http.MethodGet:
		item, err := get(r.Context(), actor, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respond(w, r, http.StatusOK, item)
	case http.MethodPut:
		var patch P
		if err := decodeJSON(w, r, &patch); err != nil {
			writeError(w, r, err)
			return
		}
		item, err := update(r.Context(), actor, id, patch)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respond(w, r, http.StatusOK, item)
	case http.MethodDelete:
		if err := del(r.Context(), actor, id); err != nil {
			writeError(w, r, err)
			return
		}
		respondMessage(w, r, http.StatusOK, deleted, nil)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

// serveChildren handles GET (list) and POST (create) on the items under a parent.
func serveChildren[T, In any](
	w http.ResponseWriter, r *http.Request, parentID string,
	list func(context.Context, auth.Actor, string) ([]T, error),
	create func(context.Context, auth.Actor, string, In) (T, error),
) {
	actor := actorOf(r)
	switch r.Method {
	case http.MethodGet:
		items, err := list(r.Context(), actor, parentID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if items == nil {
			items = []T{}
		}
		respond(w, r, http.StatusOK, items)
	case http.MethodPost:
		var in In
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		item, err := create(r.Context(), actor, parentID, in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respond(w, r, http.StatusCreated, item)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}
