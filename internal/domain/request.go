package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRequest is returned when a run request fails validation.
var ErrInvalidRequest = errors.New("invalid run request")

// UserPrefs carries user preferences that shape the assessment.
type UserPrefs struct {
	UserLanguage    string `json:"user_language"`
	DietRestriction string `json:"diet_restriction"`
	Location        string `json:"location"`
}

// DefaultPrefs returns the preferences used when a request carries none.
func DefaultPrefs() UserPrefs {
	return UserPrefs{UserLanguage: "English", DietRestriction: "none"}
}

// RunRequest is the payload that starts a run.
type RunRequest struct {
	InputType   InputType  `json:"input_type"`
	UserPrompt  string     `json:"user_prompt,omitempty"`
	RawText     string     `json:"raw_text,omitempty"`
	Barcode     string     `json:"barcode,omitempty"`
	Recipe      string     `json:"recipe,omitempty"`
	ImageBase64 string     `json:"image_base64,omitempty"`
	MimeType    string     `json:"mime_type,omitempty"`
	Prefs       *UserPrefs `json:"prefs,omitempty"`
	Mode        RunMode    `json:"mode,omitempty"`
}

// Validate checks that the payload field for the input kind is present.
// An empty input type is inferred from the populated payload.
func (r *RunRequest) Validate() error {
	if r.InputType == "" {
		r.InputType = r.inferInputType()
	}
	switch r.InputType {
	case InputTypeText, InputTypeVoice:
		if strings.TrimSpace(r.RawText) == "" && strings.TrimSpace(r.UserPrompt) == "" {
			return fmt.Errorf("%w: raw_text is required for %s input", ErrInvalidRequest, r.InputType)
		}
	case InputTypeBarcode:
		if strings.TrimSpace(r.Barcode) == "" {
			return fmt.Errorf("%w: barcode is required for barcode input", ErrInvalidRequest)
		}
	case InputTypeRecipe:
		if strings.TrimSpace(r.Recipe) == "" && strings.TrimSpace(r.RawText) == "" {
			return fmt.Errorf("%w: recipe is required for recipe input", ErrInvalidRequest)
		}
	case InputTypeImage:
		if r.ImageBase64 == "" {
			return fmt.Errorf("%w: image_base64 is required for image input", ErrInvalidRequest)
		}
		if r.MimeType == "" {
			return fmt.Errorf("%w: mime_type is required for image input", ErrInvalidRequest)
		}
	default:
		return fmt.Errorf("%w: unsupported input_type %q", ErrInvalidRequest, r.InputType)
	}
	switch r.Mode {
	case "", RunModeLocal, RunModeAgent:
	default:
		return fmt.Errorf("%w: unsupported mode %q", ErrInvalidRequest, r.Mode)
	}
	return nil
}

func (r *RunRequest) inferInputType() InputType {
	switch {
	case r.Barcode != "":
		return InputTypeBarcode
	case r.ImageBase64 != "":
		return InputTypeImage
	case r.Recipe != "":
		return InputTypeRecipe
	default:
		return InputTypeText
	}
}

// ActiveText returns the text payload that is active for the input kind.
func (r *RunRequest) ActiveText() string {
	switch r.InputType {
	case InputTypeRecipe:
		if r.Recipe != "" {
			return r.Recipe
		}
		return r.RawText
	case InputTypeBarcode:
		return r.Barcode
	case InputTypeImage:
		return r.UserPrompt
	default:
		if r.RawText != "" {
			return r.RawText
		}
		return r.UserPrompt
	}
}

// EffectivePrefs returns the request preferences with defaults filled in.
func (r *RunRequest) EffectivePrefs() UserPrefs {
	prefs := DefaultPrefs()
	if r.Prefs == nil {
		return prefs
	}
	if r.Prefs.UserLanguage != "" {
		prefs.UserLanguage = r.Prefs.UserLanguage
	}
	if r.Prefs.DietRestriction != "" {
		prefs.DietRestriction = r.Prefs.DietRestriction
	}
	prefs.Location = r.Prefs.Location
	return prefs
}

// RunResponse is returned when a run is started.
type RunResponse struct {
	SessionID string `json:"session_id"`
}
