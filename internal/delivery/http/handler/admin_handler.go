package handler

import (
	"net/http"

	"go-medical-appointment/internal/usecase"
	"go-medical-appointment/pkg/response"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type AdminHandler struct {
	adminUsecase usecase.AdminUsecase
}

func NewAdminHandler(adminUsecase usecase.AdminUsecase) *AdminHandler {
	return &AdminHandler{
		adminUsecase: adminUsecase,
	}
}

func (h *AdminHandler) GetUsers(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)

	users, err := h.adminUsecase.GetUsers(r.Context(), page, limit)
	if err != nil {
		respondError(w, err, "Failed to get users")
		return
	}

	response.SuccessWithMeta(w, http.StatusOK, "Users retrieved successfully", users.Accounts, &response.Meta{
		Page:       page,
		Limit:      limit,
		Total:      users.Total,
		TotalPages: totalPages(users.Total, limit),
	})
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid user ID", nil)
		return
	}

	if err := h.adminUsecase.DeleteUser(r.Context(), userID); err != nil {
		respondError(w, err, "Failed to delete user")
		return
	}

	response.Success(w, http.StatusOK, "User deleted successfully", nil)
}

func (h *AdminHandler) GetDoctors(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)

	doctors, err := h.adminUsecase.GetDoctors(r.Context(), page, limit)
	if err != nil {
		respondError(w, err, "Failed to get doctors")
		return
	}

	total := int64(doctors.Total)
	response.SuccessWithMeta(w, http.StatusOK, "Doctors retrieved successfully", doctors.Doctors, &response.Meta{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages(total, limit),
	})
}

func (h *AdminHandler) DeleteDoctor(w http.ResponseWriter, r *http.Request) {
	doctorID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid doctor ID", nil)
		return
	}

	if err := h.adminUsecase.DeleteDoctor(r.Context(), doctorID); err != nil {
		respondError(w, err, "Failed to delete doctor")
		return
	}

	response.Success(w, http.StatusOK, "Doctor deleted successfully", nil)
}
