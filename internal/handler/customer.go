package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/backoffice/internal/apperror"
	"github.com/suteetoe/backoffice/internal/middleware"
	"github.com/suteetoe/backoffice/internal/model"
	"github.com/suteetoe/backoffice/internal/repository"
	"github.com/suteetoe/backoffice/pkg/logger"
	"github.com/suteetoe/backoffice/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type customerRegisterRequest struct {
	FirstName string  `json:"firstname" validate:"required,max=120"`
	LastName  string  `json:"lastname" validate:"required,max=120"`
	Email     string  `json:"email" validate:"required,email,max=120"`
	Password  string  `json:"password" validate:"required,max=72"`
	Phone     *string `json:"phone" validate:"omitempty,max=20"`
	Address   *string `json:"address" validate:"omitempty,max=500"`
}

// RegisterCustomer creates a buyer account
func (h *Handler) RegisterCustomer(c echo.Context) error {
	log := logger.FromEcho(c)

	var req customerRegisterRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	customer := model.Customer{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:     req.Phone,
		Address:   req.Address,
		IsActive:  true,
	}
	if err := customer.SetPassword(req.Password); err != nil {
		return apperror.Validation("%s", err.Error())
	}

	defer prometheus.TrackDBOperation("insert")()
	err := h.tx(c, func(tx *gorm.DB) error {
		existing, err := repository.CustomerByEmail(tx, customer.Email)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperror.Conflict("A customer with this email already exists")
		}
		return tx.Create(&customer).Error
	})
	if err != nil {
		return err
	}

	token, err := h.jwt.GenerateCustomerToken(customer.Email, customer.ID)
	if err != nil {
		return apperror.Storage("failed to issue token", err)
	}

	prometheus.RecordRegister("customer")
	log.Info("Customer registered", zap.Uint("customer_id", customer.ID))

	return c.JSON(http.StatusCreated, echo.Map{
		"message":      "Customer registered successfully",
		"customer":     customer,
		"access_token": token,
	})
}

// LoginCustomer authenticates a buyer
func (h *Handler) LoginCustomer(c echo.Context) error {
	log := logger.FromEcho(c)

	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	defer prometheus.TrackDBOperation("query")()
	customer, err := repository.CustomerByEmail(h.read(c), email)
	if err != nil {
		return err
	}
	if customer == nil || !customer.CheckPassword(req.Password) {
		log.Warn("Customer login failed", zap.String("email", email))
		prometheus.RecordAuthError("login_failure")
		return apperror.Authentication("Invalid credentials")
	}

	token, err := h.jwt.GenerateCustomerToken(customer.Email, customer.ID)
	if err != nil {
		return apperror.Storage("failed to issue token", err)
	}

	prometheus.RecordLogin("customer")
	return c.JSON(http.StatusOK, echo.Map{
		"access_token": token,
		"customer":     customer,
	})
}

// GetCustomerProfile returns the calling customer
func (h *Handler) GetCustomerProfile(c echo.Context) error {
	var customer model.Customer
	if err := h.read(c).First(&customer, middleware.CallerID(c)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("Customer not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, customer)
}

type customerProfileRequest struct {
	FirstName       *string `json:"firstname" validate:"omitempty,max=120"`
	LastName        *string `json:"lastname" validate:"omitempty,max=120"`
	Email           *string `json:"email" validate:"omitempty,email,max=120"`
	Phone           *string `json:"phone" validate:"omitempty,max=20"`
	Address         *string `json:"address" validate:"omitempty,max=500"`
	NewPassword     *string `json:"new_password" validate:"omitempty,max=72"`
	CurrentPassword *string `json:"current_password"`
}

// UpdateCustomerProfile applies a partial profile update
func (h *Handler) UpdateCustomerProfile(c echo.Context) error {
	log := logger.FromEcho(c)
	customerID := middleware.CallerID(c)

	var req customerProfileRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	var customer model.Customer
	err := h.tx(c, func(tx *gorm.DB) error {
		if err := tx.First(&customer, customerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("Customer not found")
			}
			return err
		}

		if v, ok := trimmed(req.FirstName); ok && v != "" {
			customer.FirstName = v
		}
		if v, ok := trimmed(req.LastName); ok && v != "" {
			customer.LastName = v
		}
		if v, ok := trimmed(req.Email); ok && v != "" {
			v = strings.ToLower(v)
			if v != customer.Email {
				taken, err := repository.Exists(tx, &model.Customer{}, "email = ? AND id <> ?", v, customer.ID)
				if err != nil {
					return err
				}
				if taken {
					return apperror.Conflict("A customer with this email already exists")
				}
				customer.Email = v
			}
		}
		if req.Phone != nil {
			customer.Phone = req.Phone
		}
		if req.Address != nil {
			customer.Address = req.Address
		}
		if req.NewPassword != nil {
			if req.CurrentPassword == nil || *req.CurrentPassword == "" {
				return apperror.Validation("current_password is required to change the password")
			}
			if !customer.CheckPassword(*req.CurrentPassword) {
				prometheus.RecordAuthError("password_mismatch")
				return apperror.Authentication("Current password is incorrect")
			}
			if err := customer.SetPassword(*req.NewPassword); err != nil {
				return apperror.Validation("%s", err.Error())
			}
		}

		return tx.Save(&customer).Error
	})
	if err != nil {
		return err
	}

	log.Info("Customer profile updated", zap.Uint("customer_id", customer.ID))
	return c.JSON(http.StatusOK, echo.Map{
		"message":  "Profile updated successfully",
		"customer": customer,
	})
}
