package editor

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/easyref/easyref-api/internal/core/domain"
)

// Form is the referral modal's field set.
type Form struct {
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description,omitempty"`
	URL         string   `json:"url" validate:"required,url"`
	ImageURL    string   `json:"image_url,omitempty" validate:"omitempty,url"`
	Subtitle    string   `json:"subtitle,omitempty"`
	TagNames    []string `json:"tags" validate:"min=1"`
}

// FormFrom pre-populates a form from an existing referral.
func FormFrom(r domain.Referral) Form {
	names := make([]string, 0, len(r.Tags))
	for _, t := range r.Tags {
		names = append(names, t.Name)
	}
	return Form{
		Title:       r.Title,
		Description: r.Description,
		URL:         r.URL,
		ImageURL:    r.ImageURL,
		Subtitle:    r.Subtitle,
		TagNames:    names,
	}
}

// Normalized trims every field and normalizes tag names.
func (f Form) Normalized() Form {
	f.Title = strings.TrimSpace(f.Title)
	f.Description = strings.TrimSpace(f.Description)
	f.URL = strings.TrimSpace(f.URL)
	f.ImageURL = strings.TrimSpace(f.ImageURL)
	f.Subtitle = strings.TrimSpace(f.Subtitle)
	f.TagNames = domain.NormalizeTagNames(f.TagNames)
	return f
}

// Input converts the form into the remote call payload.
func (f Form) Input() domain.ReferralInput {
	return domain.ReferralInput{
		Title:       f.Title,
		Description: f.Description,
		URL:         f.URL,
		ImageURL:    f.ImageURL,
		Subtitle:    f.Subtitle,
		TagNames:    f.TagNames,
	}
}

var formValidator = newFormValidator()

func newFormValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the normalized form and reports every failing field at once.
func Validate(f Form) error {
	err := formValidator.Struct(f.Normalized())
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	fields := make([]domain.FieldError, 0, len(ve))
	for _, fe := range ve {
		fields = append(fields, domain.FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return &domain.ValidationError{Fields: fields}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "title":
		return "Title is required"
	case "url":
		if fe.Tag() == "required" {
			return "URL is required"
		}
		return "URL must be a valid absolute URL"
	case "image_url":
		return "Image URL must be a valid absolute URL"
	case "tags":
		return "Select at least one tag"
	}
	return fe.Field() + " is invalid"
}
