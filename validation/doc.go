// Package validation validates request bodies and configuration sections
// with struct tags (go-playground/validator).
//
//	type CreateTokenRequest struct {
//	    Subject string   `json:"subject" validate:"required,max=128"`
//	    Roles   []string `json:"roles" validate:"dive,required"`
//	}
//	if err := validation.Validate(req); err != nil {
//	    // err is an *errors.AppError with per-field details
//	}
package validation
