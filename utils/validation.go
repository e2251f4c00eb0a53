package utils

import (
	"reflect"
	"strings"

	"github.com/anjiri1684/stuplan/models"
	"github.com/go-playground/validator/v10"
)

// Validate is shared by handlers and the profile store.
var Validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("avatarref", func(fl validator.FieldLevel) bool {
		ref := fl.Field().String()
		return IsCategoryAvatar(ref) || IsImageURL(ref)
	})
	_ = v.RegisterValidation("academiclevel", func(fl validator.FieldLevel) bool {
		return models.AcademicLevel(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		if fl.Field().Kind() != reflect.String {
			return true
		}
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

func ValidEmail(email string) bool {
	return email != "" && Validate.Var(email, "email") == nil
}
