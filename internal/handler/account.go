package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/suteetoe/backoffice/internal/apperror"
	"github.com/suteetoe/backoffice/internal/middleware"
	"github.com/suteetoe/backoffice/internal/model"
	"github.com/suteetoe/backoffice/internal/repository"
	"github.com/suteetoe/backoffice/pkg/jwtutil"
	"github.com/suteetoe/backoffice/pkg/logger"
	"github.com/suteetoe/backoffice/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type signupRequest struct {
	FirstName string `json:"firstname" validate:"required"`
	LastName  string `json:"lastname" validate:"required"`
	ShopName  string `json:"shopname" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,max=72"`
}

// Signup registers a shop owner account
func (h *Handler) Signup(c echo.Context) error {
	log := logger.FromEcho(c)

	var req signupRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	shopName := strings.TrimSpace(req.ShopName)

	account := model.Account{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		ShopName:  &shopName,
		Email:     email,
		IsActive:  true,
	}
	if err := account.SetPassword(req.Password); err != nil {
		return apperror.Validation("%s", err.Error())
	}

	defer prometheus.TrackDBOperation("insert")()
	err := h.tx(c, func(tx *gorm.DB) error {
		existing, err := repository.AccountByEmail(tx, email)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperror.Conflict("User already exists").WithStatus(http.StatusForbidden)
		}
		taken, err := repository.Exists(tx, &model.Account{}, "shopname = ?", shopName)
		if err != nil {
			return err
		}
		if taken {
			return apperror.Conflict("Shop name already in use").WithStatus(http.StatusForbidden)
		}
		return tx.Create(&account).Error
	})
	if err != nil {
		return err
	}

	token, err := h.jwt.GenerateAccountToken(account.Email, account.ID, "")
	if err != nil {
		return apperror.Storage("failed to issue token", err)
	}

	prometheus.RecordRegister("account")
	log.Info("Account registered", zap.Uint("account_id", account.ID), zap.String("email", account.Email))

	return c.JSON(http.StatusCreated, echo.Map{
		"message":      "User created successfully",
		"access_token": token,
		"user":         account,
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login authenticates a shop owner
func (h *Handler) Login(c echo.Context) error {
	log := logger.FromEcho(c)

	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	defer prometheus.TrackDBOperation("query")()
	db := h.read(c)
	account, err := repository.AccountByEmail(db, email)
	if err != nil {
		return err
	}
	if account == nil || !account.CheckPassword(req.Password) {
		log.Warn("Login failed", zap.String("email", email))
		prometheus.RecordAuthError("login_failure")
		return apperror.Authentication("Incorrect credentials")
	}

	var logoURL string
	logo, err := repository.LogoByAccount(db, account.ID)
	if err != nil {
		return err
	}
	if logo != nil {
		logoURL = logo.LogoURL
	}

	token, err := h.jwt.GenerateAccountToken(account.Email, account.ID, logoURL)
	if err != nil {
		return apperror.Storage("failed to issue token", err)
	}

	prometheus.RecordLogin("account")
	log.Info("Account logged in", zap.Uint("account_id", account.ID))

	return c.JSON(http.StatusOK, echo.Map{
		"access_token": token,
		"user":         account,
	})
}

const sessionTokenKey = "token"

// CreateAnonymous bootstraps a throwaway account for visitors who have not signed up.
// Callers that already present the signed anonymous cookie with a valid token get no
// new account.
func (h *Handler) CreateAnonymous(c echo.Context) error {
	log := logger.FromEcho(c)

	session, err := h.sessions.Get(c.Request(), h.opts.AnonymousCookie)
	if err != nil {
		// A tampered or stale cookie is treated as absent
		log.Debug("Ignoring unreadable anonymous cookie", zap.Error(err))
	}
	if token, ok := session.Values[sessionTokenKey].(string); ok && token != "" {
		claims, err := h.jwt.ValidateToken(token)
		if err == nil && claims.Kind == jwtutil.KindAccount {
			return c.JSON(http.StatusOK, echo.Map{
				"message":      "Anonymous session already exists",
				"isNew":        false,
				"access_token": token,
			})
		}
		// The cookie outlives the token; an expired session gets a fresh account
		log.Debug("Replacing anonymous session with an invalid token", zap.Error(err))
	}

	account := model.Account{
		FirstName: "Anonymous",
		LastName:  "User",
		Email:     fmt.Sprintf("anon-%s@%s", uuid.NewString(), h.opts.AnonymousDomain),
		IsActive:  true,
	}
	if err := account.SetPassword(strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")); err != nil {
		return apperror.Storage("failed to hash password", err)
	}

	err = h.tx(c, func(tx *gorm.DB) error {
		if err := tx.Create(&account).Error; err != nil {
			return err
		}
		return tx.Create(&model.Logo{AccountID: account.ID, LogoURL: model.PlaceholderImageURL}).Error
	})
	if err != nil {
		return err
	}

	token, err := h.jwt.GenerateAccountToken(account.Email, account.ID, model.PlaceholderImageURL)
	if err != nil {
		return apperror.Storage("failed to issue token", err)
	}

	session.Values[sessionTokenKey] = token
	if err := session.Save(c.Request(), c.Response()); err != nil {
		return apperror.Storage("failed to save session", err)
	}

	prometheus.RecordRegister("anonymous")
	log.Info("Anonymous account created", zap.Uint("account_id", account.ID))

	return c.JSON(http.StatusCreated, echo.Map{
		"message":      "Anonymous user created",
		"isNew":        true,
		"access_token": token,
		"user":         account,
	})
}

// GetSettings returns the caller's profile
func (h *Handler) GetSettings(c echo.Context) error {
	var account model.Account
	if err := h.read(c).First(&account, middleware.CallerID(c)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("User not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"user": account})
}

type updateSettingsRequest struct {
	FirstName       *string `json:"firstname"`
	LastName        *string `json:"lastname"`
	ShopName        *string `json:"shopname"`
	Email           *string `json:"email" validate:"omitempty,email"`
	Password        *string `json:"password" validate:"omitempty,max=72"`
	CurrentPassword *string `json:"current_password"`
}

// UpdateSettings applies a partial profile update. Absent fields are left untouched.
func (h *Handler) UpdateSettings(c echo.Context) error {
	log := logger.FromEcho(c)
	accountID := middleware.CallerID(c)

	var req updateSettingsRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	var account model.Account
	err := h.tx(c, func(tx *gorm.DB) error {
		if err := tx.First(&account, accountID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("User not found")
			}
			return err
		}

		if v, ok := trimmed(req.FirstName); ok {
			account.FirstName = v
		}
		if v, ok := trimmed(req.LastName); ok {
			account.LastName = v
		}
		if v, ok := trimmed(req.Email); ok && v != "" {
			v = strings.ToLower(v)
			if v != account.Email {
				taken, err := repository.Exists(tx, &model.Account{}, "email = ? AND id <> ?", v, account.ID)
				if err != nil {
					return err
				}
				if taken {
					return apperror.Conflict("Email already in use")
				}
				account.Email = v
			}
		}
		if v, ok := trimmed(req.ShopName); ok {
			if v == "" {
				account.ShopName = nil
			} else if account.ShopName == nil || *account.ShopName != v {
				taken, err := repository.Exists(tx, &model.Account{}, "shopname = ? AND id <> ?", v, account.ID)
				if err != nil {
					return err
				}
				if taken {
					return apperror.Conflict("Shop name already in use")
				}
				account.ShopName = &v
			}
		}
		if req.Password != nil {
			if req.CurrentPassword == nil || *req.CurrentPassword == "" {
				return apperror.Validation("current_password is required to change the password")
			}
			if !account.CheckPassword(*req.CurrentPassword) {
				prometheus.RecordAuthError("password_mismatch")
				return apperror.Authentication("Current password is incorrect")
			}
			if err := account.SetPassword(*req.Password); err != nil {
				return apperror.Validation("%s", err.Error())
			}
		}

		return tx.Save(&account).Error
	})
	if err != nil {
		return err
	}

	log.Info("Account settings updated", zap.Uint("account_id", account.ID))
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Profile updated successfully",
		"user":    account,
	})
}

// DeleteAccount removes the caller and everything the account owns
func (h *Handler) DeleteAccount(c echo.Context) error {
	log := logger.FromEcho(c)
	accountID := middleware.CallerID(c)

	var logoKey string
	err := h.tx(c, func(tx *gorm.DB) error {
		logo, err := repository.LogoByAccount(tx, accountID)
		if err != nil {
			return err
		}
		if logo != nil {
			logoKey = logo.ObjectKey
		}
		if err := repository.DeleteAccount(tx, accountID); err != nil {
			if errors.Is(err, repository.ErrProductInUse) {
				return apperror.Conflict("Account has products with invoice history and cannot be deleted")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	h.deleteObject(c.Request().Context(), log, logoKey)
	log.Info("Account deleted", zap.Uint("account_id", accountID))
	return c.JSON(http.StatusOK, echo.Map{"message": "Account deleted successfully"})
}

type deviceTokenRequest struct {
	Token string `json:"token" validate:"required,max=512"`
}

// RegisterDeviceToken stores a push token for low stock alerts
func (h *Handler) RegisterDeviceToken(c echo.Context) error {
	log := logger.FromEcho(c)
	accountID := middleware.CallerID(c)

	var req deviceTokenRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	err := h.tx(c, func(tx *gorm.DB) error {
		return repository.SaveDeviceToken(tx, accountID, strings.TrimSpace(req.Token))
	})
	if err != nil {
		return err
	}

	log.Info("Device token registered", zap.Uint("account_id", accountID))
	return c.JSON(http.StatusOK, echo.Map{"message": "Device token registered"})
}

// ListRoles returns the caller's role tags
func (h *Handler) ListRoles(c echo.Context) error {
	roles, err := repository.RolesByAccount(h.read(c), middleware.CallerID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"roles": roles})
}

type roleRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

// AddRole attaches a new role tag to the caller
func (h *Handler) AddRole(c echo.Context) error {
	log := logger.FromEcho(c)

	var req roleRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	role := model.Role{Name: strings.TrimSpace(req.Name), AccountID: middleware.CallerID(c)}
	err := h.tx(c, func(tx *gorm.DB) error {
		taken, err := repository.Exists(tx, &model.Role{}, "name = ?", role.Name)
		if err != nil {
			return err
		}
		if taken {
			return apperror.Conflict("Role already exists")
		}
		return tx.Create(&role).Error
	})
	if err != nil {
		return err
	}

	log.Info("Role created", zap.Uint("role_id", role.ID), zap.String("name", role.Name))
	return c.JSON(http.StatusCreated, echo.Map{"message": "Role created", "role": role})
}
