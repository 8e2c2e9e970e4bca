// Package handlers contains the HTTP handlers of the REST API. A
// handler binds the request, builds a command or query DTO, calls the
// use case and maps the result or error back to HTTP.
package handlers

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/finboard/walletcore/internal/adapters/http/common"
	"github.com/finboard/walletcore/internal/domain/valueobjects"
)

var setupOnce sync.Once

// SetupValidator registers the custom validators with gin's binding
// engine. Idempotent.
func SetupValidator() {
	setupOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			v.RegisterTagNameFunc(func(fld reflect.StructField) string {
				name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
				if name == "-" {
					return ""
				}
				return name
			})

			_ = v.RegisterValidation("currency_code", validateCurrencyCode)
			_ = v.RegisterValidation("money_amount", validateMoneyAmount)
			_ = v.RegisterValidation("otp_code", validateOtpCode)
			_ = v.RegisterValidation("transfer_status", validateTransferStatus)
		}
	})
}

// validateCurrencyCode accepts only codes on the supported whitelist.
func validateCurrencyCode(fl validator.FieldLevel) bool {
	_, err := valueobjects.NewCurrency(fl.Field().String())
	return err == nil
}

// moneyPattern matches a positive decimal with at most two places.
var moneyPattern = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)

func validateMoneyAmount(fl validator.FieldLevel) bool {
	return moneyPattern.MatchString(fl.Field().String())
}

// otpPattern matches exactly six digits.
var otpPattern = regexp.MustCompile(`^\d{6}$`)

func validateOtpCode(fl validator.FieldLevel) bool {
	return otpPattern.MatchString(fl.Field().String())
}

func validateTransferStatus(fl validator.FieldLevel) bool {
	status := fl.Field().String()
	validStatuses := map[string]bool{
		"PENDING_OTP": true,
		"CONFIRMED":   true,
		"FAILED":      true,
		"EXPIRED":     true,
	}
	return validStatuses[status]
}

// HandleValidationErrors maps binding failures onto the field-error
// response shape.
func HandleValidationErrors(c *gin.Context, err error) {
	var fieldErrors []common.FieldError

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, fieldErr := range validationErrors {
			fieldErrors = append(fieldErrors, common.FieldError{
				Field:   fieldErr.Field(),
				Message: getValidationMessage(fieldErr),
				Code:    fieldErr.Tag(),
			})
		}
	}

	if len(fieldErrors) == 0 {
		common.BadRequestResponse(c, "Invalid request body: "+err.Error())
		return
	}

	common.ValidationErrorResponse(c, fieldErrors)
}

func getValidationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "uuid":
		return "Invalid UUID format"
	case "min":
		return "Value is too short (minimum: " + fe.Param() + ")"
	case "max":
		return "Value is too long (maximum: " + fe.Param() + ")"
	case "oneof":
		return "Value must be one of: " + fe.Param()
	case "currency_code":
		return "Unsupported currency code"
	case "money_amount":
		return "Invalid amount format (use a positive decimal like '100.50')"
	case "otp_code":
		return "Code must be exactly 6 digits"
	case "transfer_status":
		return "Invalid transfer status"
	default:
		return "Invalid value"
	}
}

// BindJSON binds the JSON body, writing the error response itself.
// Returns false when the response has already been sent.
func BindJSON[T any](c *gin.Context, req *T) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		HandleValidationErrors(c, err)
		return false
	}
	return true
}

// BindQuery binds query parameters.
func BindQuery[T any](c *gin.Context, req *T) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		HandleValidationErrors(c, err)
		return false
	}
	return true
}

// BindURI binds URI parameters.
func BindURI[T any](c *gin.Context, req *T) bool {
	if err := c.ShouldBindUri(req); err != nil {
		HandleValidationErrors(c, err)
		return false
	}
	return true
}
