package httpapi

import (
	"net/http"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/auth"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/users"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *API) handleAuth(w http.ResponseWriter, r *http.Request, rest []string) {
	if len(rest) != 1 {
		notFound(w, r)
		return
	}
	switch rest[0] {
	case "register":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.register(w, r)
	case "login":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.login(w, r)
	case "logout":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		if err := a.svc.Users.Logout(r.Context(), actorOf(r)); err != nil {
			writeError(w, r, err)
			return
		}
		respondMessage(w, r, http.StatusOK, "logged out", nil)
	case "me":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		actor := actorOf(r)
		a.getUser(w, r, actor.ID)
	default:
		notFound(w, r)
	}
}

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	var in users.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := a.svc.Users.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondMessage(w, r, http.StatusCreated, "account created", u)
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	session, err := a.svc.Users.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, session)
}

func (a *API) handleUsers(w http.ResponseWriter, r *http.Request, rest []string) {
	switch len(rest) {
	case 0:
		switch r.Method {
		case http.MethodGet:
			a.listUsers(w, r)
		case http.MethodPost:
			a.createUser(w, r)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
		}
	case 1:
		id := rest[0]
		switch r.Method {
		case http.MethodGet:
			a.getUser(w, r, id)
		case http.MethodPut:
			a.updateUser(w, r, id)
		case http.MethodDelete:
			if err := a.svc.Users.Delete(r.Context(), actorOf(r), id); err != nil {
				writeError(w, r, err)
				return
			}
			respondMessage(w, r, http.StatusOK, "user deleted", nil)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
		}
	default:
		notFound(w, r)
	}
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	page, err := queryPage(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	f := users.Filter{Search: q.Get("search")}
	if raw := q.Get("role"); raw != "" {
		role, err := auth.ParseRole(raw)
		if err != nil {
			writeError(w, r, err)
			return
		}
		f.Role = role
	}
	if f.Active, err = parseBool(q.Get("is_active"), "is_active"); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := a.svc.Users.List(r.Context(), actorOf(r), f, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, res)
}

func (a *API) createUser(w http.ResponseWriter, r *http.Request) {
	var in users.CreateInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := a.svc.Users.Create(r.Context(), actorOf(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondMessage(w, r, http.StatusCreated, "user created", u)
}

func (a *API) getUser(w http.ResponseWriter, r *http.Request, id string) {
	u, err := a.svc.Users.Get(r.Context(), actorOf(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, u)
}

func (a *API) updateUser(w http.ResponseWriter, r *http.Request, id string) {
	var patch users.Patch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := a.svc.Users.Update(r.Context(), actorOf(r), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondMessage(w, r, http.StatusOK, "user updated", u)
}
