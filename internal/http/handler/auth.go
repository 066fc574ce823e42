package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/guitar-and-frostedglass/diaryd/internal/auth"
	"github.com/guitar-and-frostedglass/diaryd/internal/invite"
	"github.com/guitar-and-frostedglass/diaryd/internal/user"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type AuthHandler struct {
	DB  *gorm.DB
	JWT *auth.JWT
}

type userDTO struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	Avatar      *string   `json:"avatar"`
	Role        user.Role `json:"role"`
	HasPin      bool      `json:"hasPin"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toUserDTO(u *user.User) userDTO {
	return userDTO{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Avatar:      u.Avatar,
		Role:        u.Role,
		HasPin:      u.PinHash != nil,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

type registerReq struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
	InviteCode  string `json:"inviteCode"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	req.InviteCode = strings.ToUpper(strings.TrimSpace(req.InviteCode))

	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusBadRequest, "invalid email")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}
	if req.DisplayName == "" {
		writeError(w, http.StatusBadRequest, "display name required")
		return
	}
	if req.InviteCode == "" {
		writeError(w, http.StatusBadRequest, "invite code required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	u := user.User{
		Email:        req.Email,
		DisplayName:  req.DisplayName,
		PasswordHash: hash,
		Role:         user.RoleUser,
	}
	// user row and invite consumption commit together
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&u).Error; err != nil {
			return err
		}
		return invite.Consume(tx, req.InviteCode, u.ID)
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "email or display name already taken")
			return
		}
		writeServiceError(w, err)
		return
	}

	token, err := h.JWT.Sign(u.ID, string(u.Role))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusCreated, map[string]any{
		"user":  toUserDTO(&u),
		"token": token,
	})
}

type loginReq struct {
	// email or display name
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	req.Identifier = strings.TrimSpace(req.Identifier)
	if req.Identifier == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "identifier and password required")
		return
	}

	var u user.User
	err := h.DB.Where("email = ? OR display_name = ?",
		strings.ToLower(req.Identifier), req.Identifier).First(&u).Error
	if err != nil || !auth.ComparePassword(u.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "wrong email or password")
		return
	}

	token, err := h.JWT.Sign(u.ID, string(u.Role))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{
		"user":  toUserDTO(&u),
		"token": token,
	})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())

	var u user.User
	if err := h.DB.First(&u, "id = ?", id.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, toUserDTO(&u))
}

type profileReq struct {
	DisplayName *string `json:"displayName"`
	Avatar      *string `json:"avatar"`
}

func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())

	var req profileReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if req.DisplayName != nil && strings.TrimSpace(*req.DisplayName) == "" {
		writeError(w, http.StatusBadRequest, "display name cannot be empty")
		return
	}

	var u user.User
	if err := h.DB.First(&u, "id = ?", id.UserID).Error; err != nil {
		writeServiceError(w, err)
		return
	}
	if req.DisplayName != nil {
		u.DisplayName = strings.TrimSpace(*req.DisplayName)
	}
	if req.Avatar != nil {
		u.Avatar = req.Avatar
	}
	if err := h.DB.Save(&u).Error; err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "display name already taken")
			return
		}
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, toUserDTO(&u))
}

var pinRe = regexp.MustCompile(`^[0-9]{4,8}$`)

type pinReq struct {
	Pin string `json:"pin"`
}

func (h *AuthHandler) SetPin(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())

	var req pinReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if !pinRe.MatchString(req.Pin) {
		writeError(w, http.StatusBadRequest, "pin must be 4 to 8 digits")
		return
	}

	hash, err := auth.HashPin(req.Pin)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := h.DB.Model(&user.User{}).Where("id = ?", id.UserID).
		Update("pin_hash", hash).Error; err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, nil)
}

func (h *AuthHandler) VerifyPin(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())

	var req pinReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}

	var u user.User
	if err := h.DB.First(&u, "id = ?", id.UserID).Error; err != nil {
		writeServiceError(w, err)
		return
	}
	if u.PinHash == nil {
		writeError(w, http.StatusBadRequest, "no pin set")
		return
	}
	if !auth.ComparePin(*u.PinHash, req.Pin) {
		writeError(w, http.StatusBadRequest, "wrong pin")
		return
	}
	writeData(w, http.StatusOK, nil)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
