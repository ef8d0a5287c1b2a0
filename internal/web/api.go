package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/mesh-intelligence/courses/internal/catalog"
	"github.com/mesh-intelligence/courses/pkg/types"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

func (h *Handler) registerAPI(r *mux.Router) {
	r.HandleFunc("/courses", h.apiListCourses).Methods(http.MethodGet)
	r.HandleFunc("/courses", h.apiCreateCourse).Methods(http.MethodPost)
	r.HandleFunc("/courses/{id}", h.apiGetCourse).Methods(http.MethodGet)
	r.HandleFunc("/courses/{id}", h.apiUpdateCourse).Methods(http.MethodPut)
	r.HandleFunc("/courses/{id}", h.apiDeleteCourse).Methods(http.MethodDelete)
	r.HandleFunc("/courses/{id}/lessons", h.apiListLessons).Methods(http.MethodGet)
	r.HandleFunc("/courses/{id}/lessons", h.apiCreateLesson).Methods(http.MethodPost)
	r.HandleFunc("/lessons/{id}", h.apiGetLesson).Methods(http.MethodGet)
	r.HandleFunc("/lessons/{id}", h.apiDeleteLesson).Methods(http.MethodDelete)
	r.HandleFunc("/lessons/{id}/test", h.apiGetQuiz).Methods(http.MethodGet)
	r.HandleFunc("/tests/{id}/submit", h.apiSubmitQuiz).Methods(http.MethodPost)
	r.HandleFunc("/users/{user}/progress", h.apiProgress).Methods(http.MethodGet)
}

// courseRequest is the body of course create and update calls.
type courseRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	IsPublished bool    `json:"is_published"`
}

func (req courseRequest) input() catalog.CourseInput {
	in := catalog.CourseInput{Title: req.Title, IsPublished: req.IsPublished}
	if req.Description != nil {
		in.Description = *req.Description
	}
	return in
}

// lessonRequest is the body of lesson create calls. A missing order places
// the lesson after the existing ones.
type lessonRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Order   *int   `json:"order"`
}

// submitRequest maps question IDs to chosen option IDs.
type submitRequest struct {
	UserID  string            `json:"user_id"`
	Answers map[string]string `json:"answers"`
}

// quizResponse is a quiz as shown to learners: correctness is not revealed.
type quizResponse struct {
	ID        string             `json:"id"`
	LessonID  string             `json:"lesson_id"`
	Title     string             `json:"title"`
	Questions []questionResponse `json:"questions"`
}

type questionResponse struct {
	ID      string           `json:"id"`
	Text    string           `json:"text"`
	Options []optionResponse `json:"options"`
}

type optionResponse struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

func newQuizResponse(q *types.Quiz) quizResponse {
	resp := quizResponse{ID: q.ID, LessonID: q.LessonID, Title: q.Title, Questions: []questionResponse{}}
	for _, question := range q.Questions {
		qr := questionResponse{ID: question.ID, Text: question.Text, Options: []optionResponse{}}
		for _, o := range question.Options {
			qr.Options = append(qr.Options, optionResponse{ID: o.ID, Text: o.Text})
		}
		resp.Questions = append(resp.Questions, qr)
	}
	return resp
}

type progressResponse struct {
	UserID           string   `json:"user_id"`
	CompletedLessons []string `json:"completed_lessons"`
	CompletedCourses []string `json:"completed_courses"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDetail writes an error body shaped {"detail": msg}.
func writeDetail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

func (h *Handler) apiError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeDetail(w, status, http.StatusText(status))
		return
	}
	writeDetail(w, status, err.Error())
}

// decode reads a JSON body into v. Malformed input is answered with 422.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		msg := "invalid JSON body"
		if !errors.Is(err, io.EOF) {
			msg += ": " + err.Error()
		}
		writeDetail(w, http.StatusUnprocessableEntity, msg)
		return false
	}
	return true
}

func (h *Handler) apiListCourses(w http.ResponseWriter, r *http.Request) {
	filter := types.CourseFilter{Query: r.URL.Query().Get("q")}
	if raw := r.URL.Query().Get("published"); raw != "" {
		published, err := strconv.ParseBool(raw)
		if err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, "published must be true or false")
			return
		}
		filter.PublishedOnly = published
	}
	courses, err := h.svc.FetchCourses(filter)
	if err != nil {
		h.apiError(w, r, err)
		return
	}
	if courses == nil {
		courses = []*types.Course{}
	}
	writeJSON(w, http.StatusOK, courses)
}

func (h *Handler) apiCreateCourse(w http.ResponseWriter, r *http.Request) {
	var req courseRequest
	if !decode(w, r, &req) {
		return
	}
	c, err := h.svc.CreateCourse(req.input())
	if err != nil {
		h.apiError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) apiGetCourse(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Course(mux.Vars(r)["id"])
	if err != nil {
		h.apiError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) apiUpdateCourse(w http.ResponseWriter, r *http.Request) {
	var req courseRequest
	if !decode(w, r, &req) {
		return
	}
	c, err := h.svc.UpdateCourse(mux.Vars(r)["id"], req.input())
	if err != nil {
		h.apiError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) apiDeleteCourse(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteCourse(mux.Vars(r)["id"]); err != nil {
		h.apiError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) apiListLessons(w http.ResponseWriter, r *http.Request) {
	lessons, err := h.svc.CourseLessons(mux.Vars(r)["id"])
	if err != nil {
		h.apiError(w, r, err)
		return
	}
	if lessons == nil {
		lessons = []*types.Lesson{}
	}
	writeJSON(w, http.StatusOK, lessons)
}

func (h *Handler) apiCreateLesson(w http.ResponseWriter, r *http.Request) {
	courseID := mux.Vars(r)["id"]
	var req lessonRequest
	if !decode(w, r, &req) {
		return
	}

	var order string
	if req.Order != nil {
		order = strconv.Itoa(*req.Order)
	} else {
		next, err := h.svc.NextLessonOrder(courseID)
		if err != nil {
			h.apiError(w, r, err)
			return
		}
		order = strconv.Itoa(next)
	}

	l, err := h.svc.CreateLesson(courseID, catalog.LessonInput{Title: req.Title, Content: req.Content, Order: order})
	if err != nil {
		h.apiError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

func (h *Handler) apiDeleteLesson(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteLesson(mux.Vars(r)["id"]); err != nil {
		h.apiError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) apiGetLesson(w http.ResponseWriter, r *http.Request) {
	l, err := h.svc.Lesson(mux.Vars(r)["id"])
	if err != nil {
		h.apiError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (h *Handler) apiGetQuiz(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := h.svc.Lesson(id); err != nil {
		h.apiError(w, r, err)
		return
	}
	q, err := h.svc.QuizForLesson(id)
	if err != nil {
		h.apiError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newQuizResponse(q))
}

func (h *Handler) apiSubmitQuiz(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !decode(w, r, &req) {
		return
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = h.userID(r)
	}
	sub, err := h.svc.SubmitQuiz(userID, mux.Vars(r)["id"], req.Answers)
	if err != nil {
		h.apiError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub.Result)
}

func (h *Handler) apiProgress(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Progress(mux.Vars(r)["user"])
	if err != nil {
		h.apiError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, progressResponse{
		UserID:           p.UserID,
		CompletedLessons: sortedKeys(p.CompletedLessons),
		CompletedCourses: sortedKeys(p.CompletedCourses),
	})
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
