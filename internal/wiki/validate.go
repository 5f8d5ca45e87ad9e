package wiki

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ValidateInput checks a submitted page form before a save is attempted.
// requestedName is the page the visitor was editing; homeName is the
// reserved home-page name, which may never be renamed. The result maps
// field names to messages and is empty when the input is valid. Violations
// are collected across fields rather than stopping at the first failure.
func ValidateInput(input PageInput, requestedName, homeName string) validation.Errors {
	keepHomeName := validation.By(func(value interface{}) error {
		name, _ := value.(string)
		if NormalizeName(requestedName) != NormalizeName(homeName) {
			return nil
		}
		if NormalizeName(name) != NormalizeName(homeName) {
			return errors.New("the home page cannot be renamed")
		}
		return nil
	})

	err := validation.ValidateStruct(&input,
		validation.Field(&input.Name,
			validation.Required.Error("enter a page name"),
			keepHomeName,
		),
		validation.Field(&input.Content,
			validation.Required.Error("enter page content"),
		),
	)
	if err == nil {
		return nil
	}

	var fieldErrors validation.Errors
	if errors.As(err, &fieldErrors) {
		return fieldErrors
	}

	return validation.Errors{"input": err}
}

// IsHomePage reports whether the given page name addresses the reserved
// home page, ignoring case and spacing differences.
func IsHomePage(name, homeName string) bool {
	return strings.EqualFold(NormalizeName(name), NormalizeName(homeName))
}
