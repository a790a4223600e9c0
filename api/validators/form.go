package validators

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-playground/form/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/harvestlink/harvestlink-backend/pkg/errors"
	"github.com/harvestlink/harvestlink-backend/pkg/types"
)

var formDecoder = newFormDecoder()

func newFormDecoder() *form.Decoder {
	d := form.NewDecoder()
	d.RegisterCustomTypeFunc(func(vals []string) (any, error) {
		raw := strings.TrimSpace(vals[0])
		if raw == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(raw)
	}, decimal.Decimal{})
	d.RegisterCustomTypeFunc(func(vals []string) (any, error) {
		raw := strings.TrimSpace(vals[0])
		if raw == "" {
			return types.Date{}, nil
		}
		return types.ParseDate(raw)
	}, types.Date{})
	d.RegisterCustomTypeFunc(func(vals []string) (any, error) {
		return uuid.Parse(strings.TrimSpace(vals[0]))
	}, uuid.UUID{})
	d.RegisterCustomTypeFunc(func(vals []string) (any, error) {
		return types.ParseNullableUUID(vals[0])
	}, types.NullableUUID{})
	return d
}

// DecodeFormBody decodes a url-encoded or multipart form into dest using
// its `form` tags, then validates it. File parts stay on the request.
func DecodeFormBody(r *http.Request, dest any) error {
	values, err := formValues(r)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid form body")
	}
	if err := formDecoder.Decode(dest, values); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid form body").
			WithDetails(map[string]any{"error": err.Error()})
	}
	return Validate(dest)
}

func formValues(r *http.Request) (url.Values, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(DefaultMultipartMemory); err != nil {
			return nil, err
		}
		return url.Values(r.MultipartForm.Value), nil
	}
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	return r.PostForm, nil
}
