package server

import (
	"net/http"
	"strconv"
	"time"

	"token-authority/internal/user/domain"
	"token-authority/internal/user/repository"
	userservice "token-authority/internal/user/service"
)

type registerRequest struct {
	EmployeeID string `json:"employee_id"`
	Password   string `json:"password"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Gender     string `json:"gender"`
	Department string `json:"department"`
	Position   string `json:"position"`
	Role       string `json:"role"`
	Scope      string `json:"scope"`
	Shift      string `json:"shift"`
}

type employeeResponse struct {
	ID         string    `json:"id"`
	EmployeeID string    `json:"employee_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Gender     string    `json:"gender,omitempty"`
	Department string    `json:"department,omitempty"`
	Position   string    `json:"position,omitempty"`
	Role       string    `json:"role"`
	Scope      string    `json:"scope,omitempty"`
	Shift      string    `json:"shift,omitempty"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toEmployeeResponse(e *domain.Employee) employeeResponse {
	return employeeResponse{
		ID:         e.ID,
		EmployeeID: e.EmployeeID,
		Name:       e.Name,
		Email:      e.Email,
		Gender:     e.Gender,
		Department: e.Department,
		Position:   e.Position,
		Role:       string(e.Role),
		Scope:      e.Scope,
		Shift:      e.Shift,
		Active:     e.Active,
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	admin, _ := GetPrincipal(r.Context())
	emp, err := s.users.Register(r.Context(), userservice.RegisterInput{
		EmployeeID: req.EmployeeID,
		Password:   req.Password,
		Name:       req.Name,
		Email:      req.Email,
		Gender:     req.Gender,
		Department: req.Department,
		Position:   req.Position,
		Role:       req.Role,
		Scope:      req.Scope,
		Shift:      req.Shift,
		CreatedBy:  admin,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeResponse(emp))
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	principal, _ := GetPrincipal(r.Context())
	if err := s.users.ChangePassword(r.Context(), principal, req.CurrentPassword, req.NewPassword); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type updateRequest struct {
	EmployeeID string `json:"employee_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Gender     string `json:"gender"`
	Department string `json:"department"`
	Position   string `json:"position"`
	Role       string `json:"role"`
	Scope      string `json:"scope"`
	Shift      string `json:"shift"`
	Active     *bool  `json:"active"`
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if req.EmployeeID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "employee_id is required")
		return
	}
	admin, _ := GetPrincipal(r.Context())
	emp, err := s.users.Update(r.Context(), userservice.UpdateInput{
		EmployeeID: req.EmployeeID,
		Name:       req.Name,
		Email:      req.Email,
		Gender:     req.Gender,
		Department: req.Department,
		Position:   req.Position,
		Role:       req.Role,
		Scope:      req.Scope,
		Shift:      req.Shift,
		Active:     req.Active,
		UpdatedBy:  admin,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeResponse(emp))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	employeeID := r.URL.Query().Get("employee_id")
	if employeeID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "employee_id is required")
		return
	}
	if err := s.users.Delete(r.Context(), employeeID); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type searchResponse struct {
	Employees []employeeResponse `json:"employees"`
	Total     int                `json:"total"`
	Page      int                `json:"page"`
	Size      int                `json:"size"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("size"))
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	filter := repository.SearchFilter{
		Name:       q.Get("name"),
		Email:      q.Get("email"),
		EmployeeID: q.Get("employee_id"),
		Page:       page,
		Size:       size,
	}
	employees, total, err := s.users.Search(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	out := searchResponse{
		Employees: make([]employeeResponse, 0, len(employees)),
		Total:     total,
		Page:      filter.Page,
		Size:      filter.Size,
	}
	for i := range employees {
		out.Employees = append(out.Employees, toEmployeeResponse(&employees[i]))
	}
	writeJSON(w, http.StatusOK, out)
}
