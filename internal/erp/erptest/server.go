// Package erptest runs an in-process fake of the ERPNext resource API for tests.
package erptest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
)

// Call records one request received by the fake.
type Call struct {
	Method  string
	Doctype string
	Name    string
	Query   url.Values
	Form    url.Values
	Body    map[string]any
}

// Server is a fake ERPNext instance.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	users    map[string]string
	sessions map[string]string
	docs     map[string]map[string]map[string]any
	order    map[string][]string
	rows     map[string][]map[string]any
	failures map[string]int
	calls    []Call
	counter  int
}

// New starts a fake server that is closed with the test.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		users:    make(map[string]string),
		sessions: make(map[string]string),
		docs:     make(map[string]map[string]map[string]any),
		order:    make(map[string][]string),
		rows:     make(map[string][]map[string]any),
		failures: make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// AddUser registers login credentials.
func (s *Server) AddUser(user, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user] = password
}

// Put stores a document.
func (s *Server) Put(doctype, name string, doc map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.docs[doctype] == nil {
		s.docs[doctype] = make(map[string]map[string]any)
	}
	cp := clone(doc)
	cp["name"] = name
	if _, exists := s.docs[doctype][name]; !exists {
		s.order[doctype] = append(s.order[doctype], name)
	}
	s.docs[doctype][name] = cp
}

// Doc returns a copy of a stored document.
func (s *Server) Doc(doctype, name string) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[doctype][name]
	if !ok {
		return nil, false
	}
	return clone(doc), true
}

// Docs returns copies of all stored documents of a doctype in insertion order.
func (s *Server) Docs(doctype string) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, 0, len(s.order[doctype]))
	for _, name := range s.order[doctype] {
		out = append(out, clone(s.docs[doctype][name]))
	}
	return out
}

// SetRows overrides list responses for a doctype with raw flat rows.
func (s *Server) SetRows(doctype string, rows []map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[doctype] = rows
}

// Fail makes every matching request answer with status. An empty doctype
// matches any doctype.
func (s *Server) Fail(method, doctype string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+doctype] = status
}

// ClearFailures removes every injected failure.
func (s *Server) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = make(map[string]int)
}

// Calls returns the recorded resource calls.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallsMatching filters recorded calls by method and doctype.
func (s *Server) CallsMatching(method, doctype string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Method == method && (doctype == "" || c.Doctype == doctype) {
			out = append(out, c)
		}
	}
	return out
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/method/login":
		s.login(w, r)
		return
	case r.URL.Path == "/api/method/logout":
		writeJSON(w, http.StatusOK, map[string]any{})
		return
	case strings.HasPrefix(r.URL.Path, "/api/resource/"):
	default:
		http.NotFound(w, r)
		return
	}

	if !s.authorised(r) {
		writeJSON(w, http.StatusForbidden, map[string]any{"exc_type": "PermissionError"})
		return
	}

	parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/api/resource/"), "/", 2)
	call := Call{Method: r.Method, Doctype: parts[0], Query: r.URL.Query()}
	if len(parts) == 2 {
		call.Name = parts[1]
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		_ = r.ParseForm()
		call.Form = r.PostForm
	} else if r.Body != nil && (r.Method == http.MethodPost || r.Method == http.MethodPut) {
		_ = json.NewDecoder(r.Body).Decode(&call.Body)
	}

	s.mu.Lock()
	s.calls = append(s.calls, call)
	status, failing := s.failures[r.Method+" "+call.Doctype]
	if !failing {
		status, failing = s.failures[r.Method+" "]
	}
	s.mu.Unlock()
	if failing {
		writeJSON(w, status, map[string]any{"exc_type": "ValidationError", "exception": "injected failure"})
		return
	}

	switch {
	case r.Method == http.MethodGet && call.Name == "":
		s.list(w, call)
	case r.Method == http.MethodGet:
		s.get(w, call)
	case r.Method == http.MethodPut:
		s.update(w, call)
	case r.Method == http.MethodPost && call.Name == "":
		s.create(w, call)
	case r.Method == http.MethodPost && call.Form.Get("run_method") == "submit":
		s.submit(w, call)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{})
	}
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	user, pwd := r.PostForm.Get("usr"), r.PostForm.Get("pwd")
	s.mu.Lock()
	expected, ok := s.users[user]
	var sid string
	if ok && expected == pwd {
		s.counter++
		sid = fmt.Sprintf("sid-%d", s.counter)
		s.sessions[sid] = user
	}
	s.mu.Unlock()
	if sid == "" {
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "Guest", Path: "/"})
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid login credentials"})
		return
	}
	http.SetCookie(w, &http.Cookie{Name: "sid", Value: sid, Path: "/"})
	writeJSON(w, http.StatusOK, map[string]any{"message": "Logged In", "full_name": user})
}

func (s *Server) authorised(r *http.Request) bool {
	ck, err := r.Cookie("sid")
	if err != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[ck.Value]
	return ok
}

func (s *Server) list(w http.ResponseWriter, call Call) {
	var filters [][]any
	if raw := call.Query.Get("filters"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &filters); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"exception": err.Error()})
			return
		}
	}
	s.mu.Lock()
	source, overridden := s.rows[call.Doctype]
	if !overridden {
		for _, name := range s.order[call.Doctype] {
			source = append(source, s.docs[call.Doctype][name])
		}
	}
	data := make([]map[string]any, 0, len(source))
	for _, row := range source {
		if matches(row, filters) {
			data = append(data, clone(row))
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"data": data})
}

func (s *Server) get(w http.ResponseWriter, call Call) {
	doc, ok := s.Doc(call.Doctype, call.Name)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"exc_type": "DoesNotExistError"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": doc})
}

func (s *Server) update(w http.ResponseWriter, call Call) {
	s.mu.Lock()
	doc, ok := s.docs[call.Doctype][call.Name]
	if ok {
		for k, v := range call.Body {
			doc[k] = v
		}
		doc["name"] = call.Name
	}
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"exc_type": "DoesNotExistError"})
		return
	}
	got, _ := s.Doc(call.Doctype, call.Name)
	writeJSON(w, http.StatusOK, map[string]any{"data": got})
}

func (s *Server) create(w http.ResponseWriter, call Call) {
	s.mu.Lock()
	s.counter++
	name := fmt.Sprintf("%s-%04d", prefix(call.Doctype), s.counter)
	s.mu.Unlock()
	doc := clone(call.Body)
	doc["docstatus"] = 0
	s.Put(call.Doctype, name, doc)
	got, _ := s.Doc(call.Doctype, name)
	writeJSON(w, http.StatusOK, map[string]any{"data": got})
}

func (s *Server) submit(w http.ResponseWriter, call Call) {
	s.mu.Lock()
	doc, ok := s.docs[call.Doctype][call.Name]
	if ok {
		doc["docstatus"] = 1
	}
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"exc_type": "DoesNotExistError"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"docs": []any{}})
}

func matches(row map[string]any, filters [][]any) bool {
	for _, f := range filters {
		if len(f) != 3 {
			return false
		}
		field, _ := f[0].(string)
		if fmt.Sprint(row[field]) != fmt.Sprint(f[2]) {
			return false
		}
	}
	return true
}

func prefix(doctype string) string {
	var b strings.Builder
	for _, word := range strings.Fields(doctype) {
		b.WriteString(strings.ToUpper(word[:1]))
	}
	return b.String()
}

func clone(doc map[string]any) map[string]any {
	if doc == nil {
		return map[string]any{}
	}
	raw, _ := json.Marshal(doc)
	var out map[string]any
	_ = json.Unmarshal(raw, &out)
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
