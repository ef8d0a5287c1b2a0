package web

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/mesh-intelligence/courses/internal/catalog"
	"github.com/mesh-intelligence/courses/pkg/types"
)

// Form validation messages shown above the form.
const (
	msgCourseTitle = "Course title is required"
	msgLessonTitle = "Lesson title is required"
	msgQuizText    = "Quiz title and question text are required"
	msgQuizOptions = "At least two answer options are required"
)

func (h *Handler) registerUI(r *mux.Router) {
	r.HandleFunc("/", h.uiCourses).Methods(http.MethodGet)
	r.HandleFunc("/ui/courses", h.uiCourses).Methods(http.MethodGet)
	r.HandleFunc("/ui/courses/{id}", h.uiCourse).Methods(http.MethodGet)
	r.HandleFunc("/ui/courses/{id}/complete", h.uiCompleteCourse).Methods(http.MethodPost)
	r.HandleFunc("/ui/lessons/{id}", h.uiLesson).Methods(http.MethodGet)
	r.HandleFunc("/ui/lessons/{id}/test", h.uiStartQuiz).Methods(http.MethodGet)
	r.HandleFunc("/ui/tests/{id}/submit", h.uiSubmitQuiz).Methods(http.MethodPost)

	r.HandleFunc("/ui/teacher/courses/new", h.uiNewCourse).Methods(http.MethodGet)
	r.HandleFunc("/ui/teacher/courses/new", h.uiCreateCourse).Methods(http.MethodPost)
	r.HandleFunc("/ui/teacher/courses/{id}/edit", h.uiEditCourse).Methods(http.MethodGet)
	r.HandleFunc("/ui/teacher/courses/{id}/edit", h.uiUpdateCourse).Methods(http.MethodPost)
	r.HandleFunc("/ui/teacher/courses/{id}/delete", h.uiDeleteCourse).Methods(http.MethodPost)
	r.HandleFunc("/ui/teacher/courses/{id}/lessons/new", h.uiNewLesson).Methods(http.MethodGet)
	r.HandleFunc("/ui/teacher/courses/{id}/lessons/new", h.uiCreateLesson).Methods(http.MethodPost)
	r.HandleFunc("/ui/teacher/lessons/{id}/delete", h.uiDeleteLesson).Methods(http.MethodPost)
	r.HandleFunc("/ui/teacher/lessons/{id}/test/edit", h.uiEditQuiz).Methods(http.MethodGet)
	r.HandleFunc("/ui/teacher/lessons/{id}/test/edit", h.uiSaveQuiz).Methods(http.MethodPost)
}

// page renders a page and reports template failures as a 500.
func (h *Handler) page(w http.ResponseWriter, r *http.Request, status int, name string, v *view) {
	if v.UserID == "" {
		v.UserID = h.userID(r)
	}
	if err := h.render.html(w, status, name, v); err != nil {
		h.uiError(w, r, err)
	}
}

// uiError writes a plain-text error page. Unexpected errors are logged.
func (h *Handler) uiError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		http.Error(w, http.StatusText(status), status)
		return
	}
	http.Error(w, err.Error(), status)
}

func redirect(w http.ResponseWriter, r *http.Request, format string, args ...any) {
	http.Redirect(w, r, fmt.Sprintf(format, args...), http.StatusFound)
}

func (h *Handler) uiCourses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	courses, err := h.svc.ListCourses(q)
	if err != nil {
		h.uiError(w, r, err)
		return
	}
	h.page(w, r, http.StatusOK, pageCourses, &view{Title: "Courses", Query: q, Courses: courses})
}

func (h *Handler) uiCourse(w http.ResponseWriter, r *http.Request) {
	userID := h.userID(r)
	cv, err := h.svc.CourseView(mux.Vars(r)["id"], userID)
	if err != nil {
		h.uiError(w, r, err)
		return
	}
	progress, err := h.svc.Progress(userID)
	if err != nil {
		h.uiError(w, r, err)
		return
	}
	h.page(w, r, http.StatusOK, pageCourseDetail, &view{
		Title:            cv.Course.Title,
		UserID:           userID,
		Course:           cv.Course,
		Lessons:          cv.Lessons,
		CompletedLessons: progress.CompletedLessons,
		IsCompleted:      cv.IsCompleted,
		CanComplete:      cv.CanComplete,
	})
}

func (h *Handler) uiCompleteCourse(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	userID := h.userID(r)
	if _, err := h.svc.CompleteCourse(userID, id); err != nil {
		h.uiError(w, r, err)
		return
	}
	redirect(w, r, "/ui/courses/%s?user_id=%s", id, url.QueryEscape(userID))
}

func (h *Handler) uiLesson(w http.ResponseWriter, r *http.Request) {
	lv, err := h.svc.LessonView(mux.Vars(r)["id"], h.userID(r))
	if err != nil {
		h.uiError(w, r, err)
		return
	}
	content, err := h.render.lessonHTML(lv.Lesson.Content)
	if err != nil {
		h.uiError(w, r, err)
		return
	}
	h.page(w, r, http.StatusOK, pageLessonDetail, &view{
		Title:   lv.Lesson.Title,
		UserID:  lv.UserID,
		Course:  lv.Course,
		Lesson:  lv.Lesson,
		Content: content,
		Quiz:    lv.Quiz,
		Result:  lv.SavedResult,
	})
}

func (h *Handler) uiStartQuiz(w http.ResponseWriter, r *http.Request) {
	qp, err := h.svc.StartQuiz(h.userID(r), mux.Vars(r)["id"])
	if err != nil {
		h.uiError(w, r, err)
		return
	}
	h.page(w, r, http.StatusOK, pageQuiz, &view{
		Title:  qp.Quiz.Title,
		UserID: qp.UserID,
		Course: qp.Course,
		Lesson: qp.Lesson,
		Quiz:   qp.Quiz,
	})
}

func (h *Handler) uiSubmitQuiz(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	quizID := mux.Vars(r)["id"]
	quiz, err := h.svc.Quiz(quizID)
	if err != nil {
		h.uiError(w, r, err)
		return
	}

	answers := make(map[string]string, len(quiz.Questions))
	for _, q := range quiz.Questions {
		answers[q.ID] = r.PostForm.Get("q_" + q.ID)
	}

	userID := h.userID(r)
	sub, err := h.svc.SubmitQuiz(userID, quizID, answers)
	if err != nil {
		h.uiError(w, r, err)
		return
	}
	h.page(w, r, http.StatusOK, pageQuizResult, &view{
		Title:  "Quiz result",
		UserID: userID,
		Course: sub.Course,
		Lesson: sub.Lesson,
		Quiz:   sub.Quiz,
		Result: sub.Result,
	})
}

func (h *Handler) uiNewCourse(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, http.StatusOK, pageCourseForm, &view{Title: "New course"})
}

func courseForm(r *http.Request) catalog.CourseInput {
	return catalog.CourseInput{
		Title:       strings.TrimSpace(r.PostFormValue("title")),
		Description: strings.TrimSpace(r.PostFormValue("description")),
		IsPublished: r.PostFormValue("is_published") == "on",
	}
}

func (h *Handler) uiCreateCourse(w http.ResponseWriter, r *http.Request) {
	in := courseForm(r)
	c, err := h.svc.CreateCourse(in)
	if errors.Is(err, types.ErrTitleRequired) {
		h.page(w, r, http.StatusOK, pageCourseForm, &view{Title: "New course", Error: msgCourseTitle, CourseForm: in})
		return
	}
	if err != nil {
		h.uiError(w, r, err)
		return
	}
	redirect(w, r, "/ui/courses/%s", c.ID)
}

func (h *Handler) uiEditCourse(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Course(mux.Vars(r)["id"])
	if err != nil {
		h.uiError(w, r, err)
		return
	}
	h.page(w, r, http.StatusOK, pageCourseForm, &view{
		Title:  "Edit course",
		Course: c,
		CourseForm: catalog.CourseInput{
			Title:       c.Title,
			Description: c.DescriptionText(),
			IsPublished: c.IsPublished,
		},
	})
}

func (h *Handler) uiUpdateCourse(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	current, err := h.svc.Course(id)
	if err != nil {
		h.uiError(w, r, err)
		return
	}
	in := courseForm(r)
	_, err = h.svc.UpdateCourse(id, in)
	if errors.Is(err, types.ErrTitleRequired) {
		h.page(w, r, http.StatusOK, pageCourseForm, &view{
			Title: "Edit course", Error: msgCourseTitle, Course: current, CourseForm: in,
		})
		return
	}
	if err != nil {
		h.uiError(w, r, err)
		return
	}
	redirect(w, r, "/ui/courses/%s", id)
}

func (h *Handler) uiDeleteCourse(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteCourse(mux.Vars(r)["id"]); err != nil {
		h.uiError(w, r, err)
		return
	}
	redirect(w, r, "/ui/courses")
}

func (h *Handler) uiDeleteLesson(w http.ResponseWriter, r *http.Request) {
	l, err := h.svc.Lesson(mux.Vars(r)["id"])
	if err != nil {
		h.uiError(w, r, err)
		return
	}
	if err := h.svc.DeleteLesson(l.ID); err != nil {
		h.uiError(w, r, err)
		return
	}
	redirect(w, r, "/ui/courses/%s", l.CourseID)
}

func (h *Handler) uiNewLesson(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	c, err := h.svc.Course(id)
	if err != nil {
		h.uiError(w, r, err)
		return
	}
	order, err := h.svc.NextLessonOrder(id)
	if err != nil {
		h.uiError(w, r, err)
		return
	}
	h.page(w, r, http.StatusOK, pageLessonForm, &view{
		Title:      "New lesson",
		Course:     c,
		LessonForm: catalog.LessonInput{Order: strconv.Itoa(order)},
	})
}

func (h *Handler) uiCreateLesson(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	c, err := h.svc.Course(id)
	if err != nil {
		h.uiError(w, r, err)
		return
	}
	in := catalog.LessonInput{
		Title:   strings.TrimSpace(r.PostFormValue("title")),
		Content: strings.TrimSpace(r.PostFormValue("content")),
		Order:   strings.TrimSpace(r.PostFormValue("order")),
	}
	_, err = h.svc.CreateLesson(id, in)
	if errors.Is(err, types.ErrTitleRequired) {
		if in.Order == "" {
			in.Order = "1"
		}
		h.page(w, r, http.StatusOK, pageLessonForm, &view{Title: "New lesson", Error: msgLessonTitle, Course: c, LessonForm: in})
		return
	}
	if err != nil {
		h.uiError(w, r, err)
		return
	}
	redirect(w, r, "/ui/courses/%s", id)
}

func (h *Handler) uiEditQuiz(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.QuizEditor(mux.Vars(r)["id"])
	if err != nil {
		h.uiError(w, r, err)
		return
	}
	h.page(w, r, http.StatusOK, pageQuizForm, &view{Title: "Lesson quiz", Course: e.Course, Lesson: e.Lesson, Draft: e.Draft})
}

func quizDraft(r *http.Request) types.QuizDraft {
	correct, err := strconv.Atoi(r.PostFormValue("correct_opt"))
	if err != nil {
		correct = 1
	}
	return types.QuizDraft{
		Title:        strings.TrimSpace(r.PostFormValue("test_title")),
		QuestionText: strings.TrimSpace(r.PostFormValue("question_text")),
		Options: [3]string{
			strings.TrimSpace(r.PostFormValue("opt1")),
			strings.TrimSpace(r.PostFormValue("opt2")),
			strings.TrimSpace(r.PostFormValue("opt3")),
		},
		CorrectIndex: correct,
	}
}

func (h *Handler) uiSaveQuiz(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	draft := quizDraft(r)
	_, err := h.svc.SaveQuiz(id, draft)

	var msg string
	switch {
	case errors.Is(err, types.ErrQuestionRequired):
		msg = msgQuizText
	case errors.Is(err, types.ErrTooFewOptions):
		msg = msgQuizOptions
	case err != nil:
		h.uiError(w, r, err)
		return
	default:
		redirect(w, r, "/ui/lessons/%s", id)
		return
	}

	e, err := h.svc.QuizEditor(id)
	if err != nil {
		h.uiError(w, r, err)
		return
	}
	h.page(w, r, http.StatusOK, pageQuizForm, &view{Title: "Lesson quiz", Error: msg, Course: e.Course, Lesson: e.Lesson, Draft: draft})
}
