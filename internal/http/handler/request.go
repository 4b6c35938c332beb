package handler

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/vetmatch/identity/internal/domain"
	"github.com/vetmatch/identity/internal/http/response"
	"github.com/vetmatch/identity/internal/service"
)

var requestValidator = newRequestValidator()

func newRequestValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// bindJSON decodes and validates the request body. It writes the error
// response itself and reports whether the handler should continue.
func bindJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	return bind(w, r, dst, false)
}

// bindOptionalJSON accepts an empty body. The content type is still
// required: session-authenticated mutations must not be reachable with a
// simple cross-site form post.
func bindOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	return bind(w, r, dst, true)
}

func bind(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	if !isJSONRequest(r) {
		response.Error(w, r, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "content type must be application/json", nil)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case optional && errors.Is(err, io.EOF):
		case errors.As(err, &tooLarge):
			response.Error(w, r, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large", nil)
			return false
		default:
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid json payload", nil)
			return false
		}
	}
	if err := requestValidator.Struct(dst); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request", fieldErrors(err))
		return false
	}
	return true
}

func isJSONRequest(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

// hasBody reports whether the client sent anything to decode.
func hasBody(r *http.Request) bool {
	return r.ContentLength != 0 || r.Header.Get("Content-Type") != ""
}

func fieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}

// registrationFields is the role step shared by social completion and local
// sign-up. Consent and role-specific rules are enforced by the service.
type registrationFields struct {
	Role      string `json:"role" validate:"required,oneof=VETERINARIAN HOSPITAL VETERINARY_STUDENT"`
	Phone     string `json:"phone" validate:"required,max=32"`
	RealName  string `json:"real_name" validate:"max=100"`
	BirthDate string `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`

	Nickname        string `json:"nickname" validate:"max=50"`
	LicenseImageURL string `json:"license_image_url" validate:"omitempty,url,max=1024"`
	Experience      string `json:"experience" validate:"max=1000"`
	University      string `json:"university" validate:"max=100"`
	GraduationYear  *int   `json:"graduation_year" validate:"omitempty,min=1950,max=2100"`

	HospitalName    string `json:"hospital_name" validate:"max=100"`
	BusinessNumber  string `json:"business_number" validate:"max=20"`
	HospitalAddress string `json:"hospital_address" validate:"max=255"`
	HospitalPhone   string `json:"hospital_phone" validate:"max=32"`
	Website         string `json:"website" validate:"omitempty,url,max=255"`

	AgreeTerms     bool `json:"agree_terms"`
	AgreePrivacy   bool `json:"agree_privacy"`
	AgreeMarketing bool `json:"agree_marketing"`
}

func (f registrationFields) form() service.RegistrationForm {
	form := service.RegistrationForm{
		Role:            domain.Role(f.Role),
		Phone:           f.Phone,
		RealName:        f.RealName,
		Nickname:        f.Nickname,
		LicenseImageURL: f.LicenseImageURL,
		Experience:      f.Experience,
		University:      f.University,
		GraduationYear:  f.GraduationYear,
		HospitalName:    f.HospitalName,
		BusinessNumber:  f.BusinessNumber,
		HospitalAddress: f.HospitalAddress,
		HospitalPhone:   f.HospitalPhone,
		Website:         f.Website,
		AgreeTerms:      f.AgreeTerms,
		AgreePrivacy:    f.AgreePrivacy,
		AgreeMarketing:  f.AgreeMarketing,
	}
	if f.BirthDate != "" {
		if t, err := time.Parse(time.DateOnly, f.BirthDate); err == nil {
			form.BirthDate = &t
		}
	}
	return form
}

type socialCompleteRequest struct {
	registrationFields
}

type registerRequest struct {
	registrationFields
	Username string `json:"username" validate:"required,min=4,max=20"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type loginRequest struct {
	Login    string `json:"login" validate:"required_without_all=Email Username,max=255"`
	Email    string `json:"email" validate:"max=255"`
	Username string `json:"username" validate:"max=64"`
	Password string `json:"password" validate:"required,max=128"`
}

func (r loginRequest) identifier() string {
	for _, v := range []string{r.Login, r.Email, r.Username} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type withdrawRequest struct {
	Reason string `json:"reason"`
}

type recoverRequest struct {
	Phone    string `json:"phone" validate:"required,max=32"`
	Password string `json:"password" validate:"max=128"`
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
